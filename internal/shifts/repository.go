package shifts

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
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository stores manual shifts and recurring shift templates.
type Repository struct {
	db db
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("shifts: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

// ListForDate returns manual shifts for a practitioner on a calendar date.
func (r *Repository) ListForDate(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]scheduling.Shift, error) {
	dayStart := scheduling.AtTime(date, 0, 0)
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT id, practitioner_id, start_at, end_at, room_id, booking_option, series_id, repeat, repeat_until
		FROM shifts
		WHERE practitioner_id = $1 AND start_at >= $2 AND start_at < $3 AND NOT deleted
		ORDER BY start_at
	`
	rows, err := r.db.Query(ctx, query, practitionerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("shifts: list for date: %w", err)
	}
	defer rows.Close()

	return scanShifts(rows)
}

// ListRange returns manual shifts for a practitioner whose start falls in [from, to).
func (r *Repository) ListRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]scheduling.Shift, error) {
	query := `
		SELECT id, practitioner_id, start_at, end_at, room_id, booking_option, series_id, repeat, repeat_until
		FROM shifts
		WHERE practitioner_id = $1 AND start_at >= $2 AND start_at < $3 AND NOT deleted
		ORDER BY start_at
	`
	rows, err := r.db.Query(ctx, query, practitionerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("shifts: list range: %w", err)
	}
	defer rows.Close()

	return scanShifts(rows)
}

// ListTemplates returns all shift templates for a practitioner, active or not.
func (r *Repository) ListTemplates(ctx context.Context, practitionerID uuid.UUID) ([]scheduling.ShiftTemplate, error) {
	query := `
		SELECT id, practitioner_id, weekdays, start_hour, start_minute, end_hour, end_minute, room_id, active
		FROM shift_templates
		WHERE practitioner_id = $1
		ORDER BY start_hour, start_minute
	`
	rows, err := r.db.Query(ctx, query, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("shifts: list templates: %w", err)
	}
	defer rows.Close()

	var templates []scheduling.ShiftTemplate
	for rows.Next() {
		var t scheduling.ShiftTemplate
		var weekdays []int32
		if err := rows.Scan(&t.ID, &t.PractitionerID, &weekdays, &t.StartHour, &t.StartMinute, &t.EndHour, &t.EndMinute, &t.RoomID, &t.Active); err != nil {
			return nil, fmt.Errorf("shifts: scan template: %w", err)
		}
		for _, d := range weekdays {
			t.Weekdays = append(t.Weekdays, time.Weekday(d))
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Create inserts a manual shift.
func (r *Repository) Create(ctx context.Context, s *scheduling.Shift) error {
	if !s.Valid() {
		return fmt.Errorf("shifts: shift start must precede end")
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `
		INSERT INTO shifts (id, practitioner_id, start_at, end_at, room_id, booking_option, series_id, repeat, repeat_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.db.Exec(ctx, query,
		s.ID, s.PractitionerID, s.StartAt, s.EndAt, s.RoomID, string(s.BookingOption), s.SeriesID, s.Repeat, s.RepeatUntil,
	); err != nil {
		return fmt.Errorf("shifts: insert failed: %w", err)
	}
	return nil
}

// ReplaceOverlapping saves a manual shift, soft-deleting any existing
// shifts of the same practitioner whose windows overlap the new one.
// This mirrors how staff edit a day: the new entry wins the window.
func (r *Repository) ReplaceOverlapping(ctx context.Context, s *scheduling.Shift) error {
	if !s.Valid() {
		return fmt.Errorf("shifts: shift start must precede end")
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("shifts: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Half-open overlap: existing.start < new.end AND new.start < existing.end.
	if _, err := tx.Exec(ctx, `
		UPDATE shifts SET deleted = TRUE
		WHERE practitioner_id = $1 AND start_at < $2 AND $3 < end_at AND NOT deleted
	`, s.PractitionerID, s.EndAt, s.StartAt); err != nil {
		return fmt.Errorf("shifts: clear overlapping: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO shifts (id, practitioner_id, start_at, end_at, room_id, booking_option, series_id, repeat, repeat_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.PractitionerID, s.StartAt, s.EndAt, s.RoomID, string(s.BookingOption), s.SeriesID, s.Repeat, s.RepeatUntil); err != nil {
		return fmt.Errorf("shifts: insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("shifts: commit: %w", err)
	}
	return nil
}

// Delete soft-deletes a manual shift.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE shifts SET deleted = TRUE WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("shifts: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shifts: shift %s not found", id)
	}
	return nil
}

// EffectiveForDate loads both shift sources and resolves the effective
// working hours for the practitioner on the given date.
func (r *Repository) EffectiveForDate(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]scheduling.Shift, error) {
	manual, err := r.ListForDate(ctx, practitionerID, date)
	if err != nil {
		return nil, err
	}
	templates, err := r.ListTemplates(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	return EffectiveShifts(practitionerID, date, manual, templates), nil
}

func scanShifts(rows pgx.Rows) ([]scheduling.Shift, error) {
	var shifts []scheduling.Shift
	for rows.Next() {
		var s scheduling.Shift
		var opt string
		if err := rows.Scan(&s.ID, &s.PractitionerID, &s.StartAt, &s.EndAt, &s.RoomID, &opt, &s.SeriesID, &s.Repeat, &s.RepeatUntil); err != nil {
			return nil, fmt.Errorf("shifts: scan shift: %w", err)
		}
		s.BookingOption = scheduling.BookingOption(opt)
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}
