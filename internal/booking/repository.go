package booking

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
}

const appointmentColumns = `id, patient_id, patient_name, practitioner_id, room_id, service_name, duration_mins,
		start_at, end_at, status, conflict_overridden, cancelled_at, cancelled_by, cancellation_reason`

// Repository stores appointments.
type Repository struct {
	db db
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

// Get returns a single appointment by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (scheduling.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return scheduling.Appointment{}, fmt.Errorf("booking: appointment %s not found", id)
		}
		return scheduling.Appointment{}, fmt.Errorf("booking: get appointment: %w", err)
	}
	return appt, nil
}

// ListConflictCandidates returns active appointments that could collide
// with a booking for the given practitioner or room inside [from, to).
func (r *Repository) ListConflictCandidates(ctx context.Context, practitionerID, roomID uuid.UUID, from, to time.Time) ([]scheduling.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE (practitioner_id = $1 OR ($2 != $5 AND room_id = $2))
		  AND start_at < $4 AND $3 < end_at
		  AND status NOT IN ('cancelled', 'deleted')
		ORDER BY start_at
	`
	rows, err := r.db.Query(ctx, query, practitionerID, roomID, from, to, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("booking: list conflict candidates: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListForPractitionerRange returns all appointments for a practitioner
// whose windows intersect [from, to), soft-deleted rows included so
// calendars can render cancellations.
func (r *Repository) ListForPractitionerRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]scheduling.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE practitioner_id = $1 AND start_at < $3 AND $2 < end_at
		ORDER BY start_at
	`
	rows, err := r.db.Query(ctx, query, practitionerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("booking: list range: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// Create inserts an appointment.
func (r *Repository) Create(ctx context.Context, a *scheduling.Appointment) error {
	if !a.StartAt.Before(a.EndAt) {
		return fmt.Errorf("booking: appointment start must precede end")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = scheduling.StatusScheduled
	}
	query := `
		INSERT INTO appointments (id, patient_id, patient_name, practitioner_id, room_id, service_name, duration_mins,
			start_at, end_at, status, conflict_overridden)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := r.db.Exec(ctx, query,
		a.ID, a.PatientID, a.PatientName, a.PractitionerID, a.RoomID, a.ServiceName, a.DurationMins,
		a.StartAt, a.EndAt, string(a.Status), a.ConflictOverridden,
	); err != nil {
		return fmt.Errorf("booking: insert failed: %w", err)
	}
	return nil
}

// Reschedule moves an appointment to a new window.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, startAt, endAt time.Time, overridden bool) error {
	if !startAt.Before(endAt) {
		return fmt.Errorf("booking: appointment start must precede end")
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET start_at = $2, end_at = $3, conflict_overridden = $4
		WHERE id = $1 AND status NOT IN ('cancelled', 'deleted')
	`, id, startAt, endAt, overridden)
	if err != nil {
		return fmt.Errorf("booking: reschedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking: appointment %s not found", id)
	}
	return nil
}

// UpdateStatus transitions an appointment's lifecycle state.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status scheduling.AppointmentStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("booking: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking: appointment %s not found", id)
	}
	return nil
}

// Cancel soft-deletes an appointment, keeping it for audit history.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, cancelledBy, reason string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled', cancelled_at = $2, cancelled_by = $3, cancellation_reason = $4
		WHERE id = $1 AND status NOT IN ('cancelled', 'deleted')
	`, id, at, cancelledBy, reason)
	if err != nil {
		return fmt.Errorf("booking: cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking: appointment %s not found", id)
	}
	return nil
}

func scanAppointment(row pgx.Row) (scheduling.Appointment, error) {
	var a scheduling.Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.PractitionerID, &a.RoomID, &a.ServiceName, &a.DurationMins,
		&a.StartAt, &a.EndAt, &status, &a.ConflictOverridden, &a.CancelledAt, &a.CancelledBy, &a.CancellationReason)
	if err != nil {
		return scheduling.Appointment{}, err
	}
	a.Status = scheduling.AppointmentStatus(status)
	return a, nil
}

func scanAppointments(rows pgx.Rows) ([]scheduling.Appointment, error) {
	var appts []scheduling.Appointment
	for rows.Next() {
		var a scheduling.Appointment
		var status string
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.PractitionerID, &a.RoomID, &a.ServiceName, &a.DurationMins,
			&a.StartAt, &a.EndAt, &status, &a.ConflictOverridden, &a.CancelledAt, &a.CancelledBy, &a.CancellationReason); err != nil {
			return nil, fmt.Errorf("booking: scan appointment: %w", err)
		}
		a.Status = scheduling.AppointmentStatus(status)
		appts = append(appts, a)
	}
	return appts, rows.Err()
}
