// Package audit provides an append-only log of scheduling decisions that
// bypass or reject the normal booking rules.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of scheduling audit event.
type EventType string

const (
	// EventOverrideEnabled is logged when the double-booking override mode is activated.
	EventOverrideEnabled EventType = "scheduler.override_enabled"
	// EventOverrideDisabled is logged when override mode ends, by user action or timeout.
	EventOverrideDisabled EventType = "scheduler.override_disabled"
	// EventConflictOverridden is logged when a booking proceeds despite known conflicts.
	EventConflictOverridden EventType = "scheduler.conflict_overridden"
	// EventBookingRejected is logged when a conflicting booking is refused.
	EventBookingRejected EventType = "scheduler.booking_rejected"
	// EventAppointmentCancelled is logged when an appointment is cancelled.
	EventAppointmentCancelled EventType = "scheduler.appointment_cancelled"
	// EventWaitlistOfferSent is logged when a freed slot is offered to a waitlisted patient.
	EventWaitlistOfferSent EventType = "scheduler.waitlist_offer_sent"
)

// Event represents an immutable scheduling audit record.
type Event struct {
	ID            string          `json:"id"`
	EventType     EventType       `json:"event_type"`
	Actor         string          `json:"actor"`
	AppointmentID string          `json:"appointment_id,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Details contains event-specific payloads.
type Details struct {
	// For override enable/disable
	Initiator string `json:"initiator,omitempty"` // "user" or "timeout"

	// For conflict overrides and rejections
	ConflictingAppointmentIDs []string `json:"conflicting_appointment_ids,omitempty"`
	ConflictingBreakIDs       []string `json:"conflicting_break_ids,omitempty"`
	OriginalStart             string   `json:"original_start,omitempty"`
	OriginalEnd               string   `json:"original_end,omitempty"`
	RequestedStart            string   `json:"requested_start,omitempty"`
	RequestedEnd              string   `json:"requested_end,omitempty"`
	Summary                   string   `json:"summary,omitempty"`

	// For waitlist offers
	WaitlistEntryID string `json:"waitlist_entry_id,omitempty"`
	MatchReasons    string `json:"match_reasons,omitempty"`
}

// Recorder is the append-only sink the engine writes audit entries to.
// Implementations must not mutate the event.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Service persists audit events to the relational database.
type Service struct {
	db *sql.DB
}

// NewService creates a new audit service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record appends a scheduling audit event.
func (s *Service) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO scheduling_audit_events (id, event_type, actor, appointment_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Actor,
		nullString(event.AppointmentID),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record event: %w", err)
	}
	return nil
}

// Filter specifies criteria for querying audit events.
type Filter struct {
	EventType     EventType
	Actor         string
	AppointmentID string
	StartTime     time.Time
	EndTime       time.Time
	Limit         int
}

// QueryEvents retrieves audit events with filters, newest first.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, event_type, actor, appointment_id, details, created_at
		FROM scheduling_audit_events
		WHERE 1=1
	`
	var args []interface{}
	argIdx := 1

	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if filter.Actor != "" {
		query += fmt.Sprintf(" AND actor = $%d", argIdx)
		args = append(args, filter.Actor)
		argIdx++
	}
	if filter.AppointmentID != "" {
		query += fmt.Sprintf(" AND appointment_id = $%d", argIdx)
		args = append(args, filter.AppointmentID)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var apptID sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &e.Actor, &apptID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		e.AppointmentID = apptID.String
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
