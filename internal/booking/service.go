// Package booking creates, moves, and cancels appointments. It enforces
// conflict checks against existing appointments and practitioner breaks,
// honors the front-desk override session for intentional double-booking,
// and triggers waitlist auto-fill offers after cancellations.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clearbrook/scheduler/internal/audit"
	"github.com/clearbrook/scheduler/internal/conflicts"
	"github.com/clearbrook/scheduler/internal/locks"
	"github.com/clearbrook/scheduler/internal/scheduling"
	"github.com/clearbrook/scheduler/internal/waitlist"
	"github.com/clearbrook/scheduler/pkg/logging"
)

var bookingTracer = otel.Tracer("clearbrook.internal.booking")

// AppointmentStore is the persistence surface the service needs.
type AppointmentStore interface {
	Get(ctx context.Context, id uuid.UUID) (scheduling.Appointment, error)
	ListConflictCandidates(ctx context.Context, practitionerID, roomID uuid.UUID, from, to time.Time) ([]scheduling.Appointment, error)
	Create(ctx context.Context, a *scheduling.Appointment) error
	Reschedule(ctx context.Context, id uuid.UUID, startAt, endAt time.Time, overridden bool) error
	Cancel(ctx context.Context, id uuid.UUID, cancelledBy, reason string, at time.Time) error
}

// BreakSource supplies practitioner breaks for conflict checks.
type BreakSource interface {
	ListForPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]scheduling.Break, error)
}

// OverrideState reports whether intentional double-booking is currently
// allowed and who enabled it.
type OverrideState interface {
	Active() bool
	Actor() string
}

// WaitlistSource supplies open waitlist entries for auto-fill.
type WaitlistSource interface {
	ListActive(ctx context.Context) ([]scheduling.WaitlistEntry, error)
}

// OfferSender emails the best waitlist match for a freed slot.
type OfferSender interface {
	OfferFreedSlot(ctx context.Context, cancelled scheduling.Appointment, entries []scheduling.WaitlistEntry) (waitlist.Suggestion, error)
}

// ConflictError is returned when a booking is rejected for colliding
// with existing appointments or breaks while no override is active.
// PractitionerID is the practitioner the rejected booking was for;
// a conflicting appointment held by someone else collided through a
// shared room.
type ConflictError struct {
	PractitionerID uuid.UUID
	Appointments   []scheduling.Appointment
	Breaks         []scheduling.Break
	Message        string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking: %s", e.Message)
}

// Config wires the booking service's collaborators. Store is required.
// Locker, Breaks, Override, Recorder, Waitlist, and Offers are optional
// and degrade to no-ops.
type Config struct {
	Store    AppointmentStore
	Breaks   BreakSource
	Override OverrideState
	Locker   locks.SlotLocker
	Recorder audit.Recorder
	Waitlist WaitlistSource
	Offers   OfferSender
	Logger   *logging.Logger
	Now      func() time.Time
}

// Service coordinates the booking lifecycle.
type Service struct {
	store    AppointmentStore
	breaks   BreakSource
	override OverrideState
	locker   locks.SlotLocker
	recorder audit.Recorder
	waitlist WaitlistSource
	offers   OfferSender
	logger   *logging.Logger
	now      func() time.Time
}

// NewService constructs a booking service.
func NewService(cfg Config) *Service {
	if cfg.Store == nil {
		panic("booking: appointment store required")
	}
	if cfg.Locker == nil {
		cfg.Locker = locks.NoopLocker{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:    cfg.Store,
		breaks:   cfg.Breaks,
		override: cfg.Override,
		locker:   cfg.Locker,
		recorder: cfg.Recorder,
		waitlist: cfg.Waitlist,
		offers:   cfg.Offers,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

// BookRequest describes a new appointment.
type BookRequest struct {
	PatientID      uuid.UUID
	PatientName    string
	PractitionerID uuid.UUID
	RoomID         uuid.UUID // uuid.Nil when no room is assigned
	ServiceName    string
	DurationMins   int
	StartAt        time.Time
	// Actor is the staff member performing the booking, recorded in the
	// audit trail on overrides and rejections.
	Actor string
}

// Book creates an appointment. Conflicting requests are rejected with a
// *ConflictError unless the override session is active, in which case
// the appointment is created flagged and the override is audited.
func (s *Service) Book(ctx context.Context, req BookRequest) (scheduling.Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("scheduler.practitioner_id", req.PractitionerID.String()),
		attribute.String("scheduler.service", req.ServiceName),
	)

	if req.PractitionerID == uuid.Nil {
		return scheduling.Appointment{}, fmt.Errorf("booking: practitioner required")
	}
	if req.DurationMins <= 0 {
		return scheduling.Appointment{}, fmt.Errorf("booking: duration must be positive")
	}
	endAt := req.StartAt.Add(time.Duration(req.DurationMins) * time.Minute)

	var appt scheduling.Appointment
	err := s.locker.WithSlotLock(ctx, req.PractitionerID, req.StartAt, func(ctx context.Context) error {
		candidate := conflicts.Candidate{
			PractitionerID: req.PractitionerID,
			RoomID:         req.RoomID,
			StartAt:        req.StartAt,
			EndAt:          endAt,
		}
		overridden, err := s.checkConflicts(ctx, candidate, req.Actor, audit.Details{
			RequestedStart: req.StartAt.Format(time.RFC3339),
			RequestedEnd:   endAt.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}

		appt = scheduling.Appointment{
			PatientID:          req.PatientID,
			PatientName:        req.PatientName,
			PractitionerID:     req.PractitionerID,
			RoomID:             req.RoomID,
			ServiceName:        req.ServiceName,
			DurationMins:       req.DurationMins,
			StartAt:            req.StartAt,
			EndAt:              endAt,
			Status:             scheduling.StatusScheduled,
			ConflictOverridden: overridden,
		}
		return s.store.Create(ctx, &appt)
	})
	if err != nil {
		span.RecordError(err)
		return scheduling.Appointment{}, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"practitioner_id", appt.PractitionerID,
		"service", appt.ServiceName,
		"start_at", appt.StartAt,
		"conflict_overridden", appt.ConflictOverridden)
	return appt, nil
}

// Reschedule moves an existing appointment to a new start time, keeping
// its duration. The appointment itself never conflicts with its own
// previous window.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, actor string) (scheduling.Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("scheduler.appointment_id", id.String()))

	appt, err := s.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return scheduling.Appointment{}, err
	}
	if !appt.Active() {
		return scheduling.Appointment{}, fmt.Errorf("booking: appointment %s is cancelled", id)
	}

	newEnd := newStart.Add(appt.Window().Duration())
	err = s.locker.WithSlotLock(ctx, appt.PractitionerID, newStart, func(ctx context.Context) error {
		candidate := conflicts.Candidate{
			AppointmentID:  appt.ID,
			PractitionerID: appt.PractitionerID,
			RoomID:         appt.RoomID,
			StartAt:        newStart,
			EndAt:          newEnd,
		}
		overridden, err := s.checkConflicts(ctx, candidate, actor, audit.Details{
			OriginalStart:  appt.StartAt.Format(time.RFC3339),
			OriginalEnd:    appt.EndAt.Format(time.RFC3339),
			RequestedStart: newStart.Format(time.RFC3339),
			RequestedEnd:   newEnd.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		return s.store.Reschedule(ctx, appt.ID, newStart, newEnd, overridden)
	})
	if err != nil {
		span.RecordError(err)
		return scheduling.Appointment{}, err
	}

	appt.StartAt = newStart
	appt.EndAt = newEnd
	s.logger.Info("appointment rescheduled", "appointment_id", appt.ID, "start_at", newStart)
	return appt, nil
}

// Cancel soft-deletes an appointment, audits the cancellation, and
// offers the freed slot to the waitlist. Auto-fill failures are logged
// but never fail the cancellation itself.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (waitlist.Suggestion, error) {
	appt, err := s.cancel(ctx, id, actor, reason)
	if err != nil {
		return waitlist.Suggestion{}, err
	}
	return s.autoFill(ctx, appt), nil
}

// Release cancels an appointment created earlier in a multi-step booking
// that later failed, e.g. a group member rolled back after another
// participant conflicted. The slot was never genuinely free, so no
// waitlist offer goes out.
func (s *Service) Release(ctx context.Context, id uuid.UUID, actor, reason string) error {
	_, err := s.cancel(ctx, id, actor, reason)
	return err
}

func (s *Service) cancel(ctx context.Context, id uuid.UUID, actor, reason string) (scheduling.Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("scheduler.appointment_id", id.String()))

	appt, err := s.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return scheduling.Appointment{}, err
	}
	if !appt.Active() {
		return scheduling.Appointment{}, fmt.Errorf("booking: appointment %s is already cancelled", id)
	}

	now := s.now().UTC()
	if err := s.store.Cancel(ctx, id, actor, reason, now); err != nil {
		span.RecordError(err)
		return scheduling.Appointment{}, err
	}
	appt.Status = scheduling.StatusCancelled
	appt.CancelledAt = now
	appt.CancelledBy = actor
	appt.CancellationReason = reason

	s.record(ctx, audit.EventAppointmentCancelled, actor, appt.ID, audit.Details{
		Summary: fmt.Sprintf("cancelled %s at %s: %s", appt.ServiceName, appt.StartAt.Format(time.RFC3339), reason),
	})
	s.logger.Info("appointment cancelled", "appointment_id", id, "actor", actor)

	return appt, nil
}

// autoFill offers the freed slot to the waitlist's best match.
func (s *Service) autoFill(ctx context.Context, cancelled scheduling.Appointment) waitlist.Suggestion {
	if s.waitlist == nil || s.offers == nil {
		return waitlist.Suggestion{}
	}
	entries, err := s.waitlist.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to load waitlist for auto-fill", "error", err, "appointment_id", cancelled.ID)
		return waitlist.Suggestion{}
	}
	suggestion, err := s.offers.OfferFreedSlot(ctx, cancelled, entries)
	if err != nil {
		s.logger.Error("waitlist auto-fill offer failed", "error", err, "appointment_id", cancelled.ID)
	}
	return suggestion
}

// checkConflicts validates the candidate window. It returns whether the
// booking proceeds as an audited override, or a *ConflictError when the
// window collides and no override session is active.
func (s *Service) checkConflicts(ctx context.Context, candidate conflicts.Candidate, actor string, details audit.Details) (bool, error) {
	existing, err := s.store.ListConflictCandidates(ctx, candidate.PractitionerID, candidate.RoomID, candidate.StartAt, candidate.EndAt)
	if err != nil {
		return false, err
	}
	apptConflicts := conflicts.FindAppointmentConflicts(candidate, existing)

	var breakConflicts []scheduling.Break
	if s.breaks != nil {
		brs, err := s.breaks.ListForPractitioner(ctx, candidate.PractitionerID)
		if err != nil {
			return false, fmt.Errorf("booking: load breaks: %w", err)
		}
		breakConflicts = conflicts.FindBreakConflicts(candidate, brs)
	}

	if len(apptConflicts) == 0 && len(breakConflicts) == 0 {
		return false, nil
	}

	details.ConflictingAppointmentIDs = appointmentIDs(apptConflicts)
	details.ConflictingBreakIDs = breakIDs(breakConflicts)
	details.Summary = conflictSummary(apptConflicts, breakConflicts, candidate.RoomID)

	if s.override != nil && s.override.Active() {
		overrideActor := s.override.Actor()
		if overrideActor == "" {
			overrideActor = actor
		}
		s.record(ctx, audit.EventConflictOverridden, overrideActor, candidate.AppointmentID, details)
		s.logger.Warn("booking proceeding despite conflicts",
			"practitioner_id", candidate.PractitionerID,
			"conflicting_appointments", len(apptConflicts),
			"conflicting_breaks", len(breakConflicts),
			"actor", overrideActor)
		return true, nil
	}

	s.record(ctx, audit.EventBookingRejected, actor, candidate.AppointmentID, details)
	return false, &ConflictError{
		PractitionerID: candidate.PractitionerID,
		Appointments:   apptConflicts,
		Breaks:         breakConflicts,
		Message:        details.Summary,
	}
}

func (s *Service) record(ctx context.Context, eventType audit.EventType, actor string, appointmentID uuid.UUID, details audit.Details) {
	if s.recorder == nil {
		return
	}
	payload, _ := json.Marshal(details)
	event := audit.Event{
		EventType: eventType,
		Actor:     actor,
		Details:   payload,
		CreatedAt: s.now().UTC(),
	}
	if appointmentID != uuid.Nil {
		event.AppointmentID = appointmentID.String()
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.Error("failed to record audit event", "error", err, "event_type", eventType)
	}
}

func conflictSummary(appts []scheduling.Appointment, breaks []scheduling.Break, roomID uuid.UUID) string {
	var parts []string
	if msg := conflicts.ConflictMessage(appts, roomID); msg != "" {
		parts = append(parts, msg)
	}
	if msg := conflicts.BreakConflictMessage(breaks); msg != "" {
		parts = append(parts, msg)
	}
	return strings.Join(parts, ". ")
}

func appointmentIDs(appts []scheduling.Appointment) []string {
	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		ids = append(ids, a.ID.String())
	}
	return ids
}

func breakIDs(breaks []scheduling.Break) []string {
	ids := make([]string, 0, len(breaks))
	for _, b := range breaks {
		ids = append(ids, b.ID.String())
	}
	return ids
}
