package waitlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearbrook/scheduler/internal/scheduling"
)

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository stores waitlist entries.
type Repository struct {
	db db
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("waitlist: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

// ListActive returns all open waitlist entries, oldest first.
func (r *Repository) ListActive(ctx context.Context) ([]scheduling.WaitlistEntry, error) {
	query := `
		SELECT id, patient_id, patient_name, requested_service, duration_mins, priority, preferred_practitioner_id, notes, joined_at
		FROM waitlist_entries
		WHERE NOT removed
		ORDER BY joined_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("waitlist: list active: %w", err)
	}
	defer rows.Close()

	var entries []scheduling.WaitlistEntry
	for rows.Next() {
		var e scheduling.WaitlistEntry
		var priority string
		if err := rows.Scan(&e.ID, &e.PatientID, &e.PatientName, &e.RequestedService, &e.DurationMins, &priority, &e.PreferredPractitionerID, &e.Notes, &e.JoinedAt); err != nil {
			return nil, fmt.Errorf("waitlist: scan entry: %w", err)
		}
		e.Priority = scheduling.Priority(priority)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Add inserts a waitlist entry.
func (r *Repository) Add(ctx context.Context, e *scheduling.WaitlistEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	query := `
		INSERT INTO waitlist_entries (id, patient_id, patient_name, requested_service, duration_mins, priority, preferred_practitioner_id, notes, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.db.Exec(ctx, query,
		e.ID, e.PatientID, e.PatientName, e.RequestedService, e.DurationMins, string(e.Priority), e.PreferredPractitionerID, e.Notes, e.JoinedAt,
	); err != nil {
		return fmt.Errorf("waitlist: insert failed: %w", err)
	}
	return nil
}

// Remove soft-deletes an entry, e.g. after a successful offer.
func (r *Repository) Remove(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE waitlist_entries SET removed = TRUE WHERE id = $1 AND NOT removed`, id)
	if err != nil {
		return fmt.Errorf("waitlist: remove: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("waitlist: entry %s not found", id)
	}
	return nil
}
