package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/booking"
	"github.com/clearbrook/scheduler/internal/http/middleware"
	"github.com/clearbrook/scheduler/internal/locks"
	"github.com/clearbrook/scheduler/internal/observability/metrics"
	"github.com/clearbrook/scheduler/internal/scheduling"
	"github.com/clearbrook/scheduler/internal/waitlist"
	"github.com/clearbrook/scheduler/pkg/logging"
)

type waitlistSuggestion = waitlist.Suggestion

type bookingService interface {
	Book(ctx context.Context, req booking.BookRequest) (scheduling.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, actor string) (scheduling.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (waitlistSuggestion, error)
	Release(ctx context.Context, id uuid.UUID, actor, reason string) error
}

// AppointmentsConfig wires the appointment lifecycle handler.
type AppointmentsConfig struct {
	Bookings     bookingService
	Appointments appointmentLister
	Metrics      *metrics.SchedulingMetrics
	Logger       *logging.Logger
}

// AppointmentsHandler serves booking, rescheduling, and cancellation.
type AppointmentsHandler struct {
	bookings     bookingService
	appointments appointmentLister
	metrics      *metrics.SchedulingMetrics
	logger       *logging.Logger
}

func NewAppointmentsHandler(cfg AppointmentsConfig) *AppointmentsHandler {
	if cfg.Bookings == nil {
		panic("handlers: booking service required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AppointmentsHandler{
		bookings:     cfg.Bookings,
		appointments: cfg.Appointments,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

type bookRequest struct {
	PatientID      string    `json:"patient_id,omitempty"`
	PatientName    string    `json:"patient_name"`
	PractitionerID string    `json:"practitioner_id"`
	RoomID         string    `json:"room_id,omitempty"`
	ServiceName    string    `json:"service_name"`
	DurationMins   int       `json:"duration_mins"`
	StartAt        time.Time `json:"start_at"`
}

type appointmentResponse struct {
	ID                 string    `json:"id"`
	PatientName        string    `json:"patient_name"`
	PractitionerID     string    `json:"practitioner_id"`
	RoomID             string    `json:"room_id,omitempty"`
	ServiceName        string    `json:"service_name"`
	StartAt            time.Time `json:"start_at"`
	EndAt              time.Time `json:"end_at"`
	Status             string    `json:"status"`
	ConflictOverridden bool      `json:"conflict_overridden,omitempty"`
}

type conflictResponse struct {
	Error                     string   `json:"error"`
	ConflictingAppointmentIDs []string `json:"conflicting_appointment_ids,omitempty"`
	ConflictingBreakIDs       []string `json:"conflicting_break_ids,omitempty"`
}

func toAppointmentResponse(a scheduling.Appointment) appointmentResponse {
	resp := appointmentResponse{
		ID:                 a.ID.String(),
		PatientName:        a.PatientName,
		PractitionerID:     a.PractitionerID.String(),
		ServiceName:        a.ServiceName,
		StartAt:            a.StartAt,
		EndAt:              a.EndAt,
		Status:             string(a.Status),
		ConflictOverridden: a.ConflictOverridden,
	}
	if a.RoomID != uuid.Nil {
		resp.RoomID = a.RoomID.String()
	}
	return resp
}

// Book handles POST /appointments.
func (h *AppointmentsHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	practitionerID, err := uuid.Parse(req.PractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "practitioner_id must be a UUID")
		return
	}
	var patientID, roomID uuid.UUID
	if req.PatientID != "" {
		if patientID, err = uuid.Parse(req.PatientID); err != nil {
			writeError(w, http.StatusBadRequest, "patient_id must be a UUID")
			return
		}
	}
	if req.RoomID != "" {
		if roomID, err = uuid.Parse(req.RoomID); err != nil {
			writeError(w, http.StatusBadRequest, "room_id must be a UUID")
			return
		}
	}

	appt, err := h.bookings.Book(r.Context(), booking.BookRequest{
		PatientID:      patientID,
		PatientName:    req.PatientName,
		PractitionerID: practitionerID,
		RoomID:         roomID,
		ServiceName:    req.ServiceName,
		DurationMins:   req.DurationMins,
		StartAt:        req.StartAt,
		Actor:          middleware.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.writeBookingError(w, "book", err)
		return
	}

	outcome := "ok"
	if appt.ConflictOverridden {
		outcome = "overridden"
	}
	h.metrics.ObserveBooking("book", outcome)
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

type rescheduleRequest struct {
	StartAt time.Time `json:"start_at"`
}

// Reschedule handles POST /appointments/{id}/reschedule.
func (h *AppointmentsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appt, err := h.bookings.Reschedule(r.Context(), id, req.StartAt, middleware.ActorFromContext(r.Context()))
	if err != nil {
		h.writeBookingError(w, "reschedule", err)
		return
	}

	outcome := "ok"
	if appt.ConflictOverridden {
		outcome = "overridden"
	}
	h.metrics.ObserveBooking("reschedule", outcome)
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type cancelResponse struct {
	Cancelled     bool   `json:"cancelled"`
	OfferedToID   string `json:"offered_to_waitlist_entry_id,omitempty"`
	OfferedToName string `json:"offered_to_patient_name,omitempty"`
	MatchCount    int    `json:"waitlist_match_count"`
}

// Cancel handles DELETE /appointments/{id}.
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req cancelRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	suggestion, err := h.bookings.Cancel(r.Context(), id, middleware.ActorFromContext(r.Context()), req.Reason)
	if err != nil {
		h.writeBookingError(w, "cancel", err)
		return
	}

	h.metrics.ObserveBooking("cancel", "ok")
	resp := cancelResponse{Cancelled: true, MatchCount: len(suggestion.AllMatches)}
	if suggestion.TopMatch != nil {
		resp.OfferedToID = suggestion.TopMatch.Entry.ID.String()
		resp.OfferedToName = suggestion.TopMatch.Entry.PatientName
		h.metrics.ObserveWaitlistOffer()
	}
	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /appointments.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	practitionerID, err := uuid.Parse(q.Get("practitioner_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "practitioner_id must be a UUID")
		return
	}
	from, err := time.Parse(time.DateOnly, q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to := from.AddDate(0, 0, 1)
	if raw := q.Get("to"); raw != "" {
		if to, err = time.Parse(time.DateOnly, raw); err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
	}

	appts, err := h.appointments.ListForPractitionerRange(r.Context(), practitionerID, from, to)
	if err != nil {
		h.logger.Error("list appointments failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

func (h *AppointmentsHandler) writeBookingError(w http.ResponseWriter, operation string, err error) {
	var conflictErr *booking.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		h.metrics.ObserveBooking(operation, "rejected")
		for _, a := range conflictErr.Appointments {
			if a.PractitionerID != conflictErr.PractitionerID {
				h.metrics.ObserveConflict("room")
				continue
			}
			h.metrics.ObserveConflict("appointment")
		}
		for range conflictErr.Breaks {
			h.metrics.ObserveConflict("break")
		}
		resp := conflictResponse{Error: conflictErr.Message}
		for _, a := range conflictErr.Appointments {
			resp.ConflictingAppointmentIDs = append(resp.ConflictingAppointmentIDs, a.ID.String())
		}
		for _, b := range conflictErr.Breaks {
			resp.ConflictingBreakIDs = append(resp.ConflictingBreakIDs, b.ID.String())
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, locks.ErrSlotHeld):
		h.metrics.ObserveBooking(operation, "rejected")
		writeError(w, http.StatusConflict, "another booking for this slot is in progress")
	default:
		h.metrics.ObserveBooking(operation, "error")
		h.logger.Error("booking operation failed", "operation", operation, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}
