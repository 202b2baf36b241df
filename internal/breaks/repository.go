// Package breaks stores practitioner break windows, one-off and
// weekly recurring.
package breaks

import (
	"context"
	"fmt"
	"time"

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

// Repository stores breaks.
type Repository struct {
	db db
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("breaks: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

// ListForPractitioner returns every break for a practitioner. Recurring
// breaks are returned once; callers project them onto concrete dates.
func (r *Repository) ListForPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]scheduling.Break, error) {
	query := `
		SELECT id, practitioner_id, type, start_at, end_at, recurring_weekdays, emergency_bookable
		FROM breaks
		WHERE practitioner_id = $1 AND NOT deleted
		ORDER BY start_at
	`
	rows, err := r.db.Query(ctx, query, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("breaks: list: %w", err)
	}
	defer rows.Close()

	var breaks []scheduling.Break
	for rows.Next() {
		var b scheduling.Break
		var weekdays []int32
		if err := rows.Scan(&b.ID, &b.PractitionerID, &b.Type, &b.StartAt, &b.EndAt, &weekdays, &b.EmergencyBookable); err != nil {
			return nil, fmt.Errorf("breaks: scan break: %w", err)
		}
		for _, d := range weekdays {
			b.RecurringWeekdays = append(b.RecurringWeekdays, time.Weekday(d))
		}
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}

// Create inserts a break.
func (r *Repository) Create(ctx context.Context, b *scheduling.Break) error {
	if !b.StartAt.Before(b.EndAt) {
		return fmt.Errorf("breaks: break start must precede end")
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	weekdays := make([]int32, 0, len(b.RecurringWeekdays))
	for _, d := range b.RecurringWeekdays {
		weekdays = append(weekdays, int32(d))
	}
	query := `
		INSERT INTO breaks (id, practitioner_id, type, start_at, end_at, recurring_weekdays, emergency_bookable)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.Exec(ctx, query,
		b.ID, b.PractitionerID, b.Type, b.StartAt, b.EndAt, weekdays, b.EmergencyBookable,
	); err != nil {
		return fmt.Errorf("breaks: insert failed: %w", err)
	}
	return nil
}

// Delete soft-deletes a break.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE breaks SET deleted = TRUE WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("breaks: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("breaks: break %s not found", id)
	}
	return nil
}
