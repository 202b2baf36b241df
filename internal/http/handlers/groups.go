package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/booking"
	"github.com/clearbrook/scheduler/internal/groups"
	"github.com/clearbrook/scheduler/internal/http/middleware"
	"github.com/clearbrook/scheduler/internal/observability/metrics"
	"github.com/clearbrook/scheduler/pkg/logging"
)

// GroupsConfig wires the group booking handler.
type GroupsConfig struct {
	Bookings bookingService
	Tiers    groups.DiscountTiers
	Metrics  *metrics.SchedulingMetrics
	Logger   *logging.Logger
}

// GroupsHandler books parties of two or more patients together and
// quotes group pricing.
type GroupsHandler struct {
	bookings bookingService
	tiers    groups.DiscountTiers
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
}

func NewGroupsHandler(cfg GroupsConfig) *GroupsHandler {
	if cfg.Bookings == nil {
		panic("handlers: booking service required")
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = groups.DefaultDiscountTiers()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &GroupsHandler{
		bookings: cfg.Bookings,
		tiers:    cfg.Tiers,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

type groupParticipantRequest struct {
	PatientID      string    `json:"patient_id,omitempty"`
	PatientName    string    `json:"patient_name"`
	PractitionerID string    `json:"practitioner_id"`
	ServiceName    string    `json:"service_name"`
	DurationMins   int       `json:"duration_mins"`
	PriceCents     int64     `json:"price_cents,omitempty"`
	CustomStart    time.Time `json:"custom_start,omitempty"`
}

type groupBookRequest struct {
	Mode         string                    `json:"mode"`
	BaseStart    time.Time                 `json:"base_start"`
	GapMins      int                       `json:"gap_mins,omitempty"`
	Participants []groupParticipantRequest `json:"participants"`
}

type groupPricingResponse struct {
	OriginalCents   int64 `json:"original_cents"`
	DiscountPercent int   `json:"discount_percent"`
	DiscountCents   int64 `json:"discount_cents"`
	TotalCents      int64 `json:"total_cents"`
}

type scheduledParticipantResponse struct {
	PatientName   string    `json:"patient_name"`
	ServiceName   string    `json:"service_name"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	AppointmentID string    `json:"appointment_id,omitempty"`
}

type groupBookResponse struct {
	Participants []scheduledParticipantResponse `json:"participants"`
	Pricing      groupPricingResponse           `json:"pricing"`
}

func (h *GroupsHandler) parse(r *http.Request) (*groupBookRequest, []groups.Participant, groups.Mode, error) {
	var req groupBookRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, nil, "", err
	}
	if len(req.Participants) < 2 {
		return nil, nil, "", errors.New("a group booking needs at least two participants")
	}
	mode := groups.Mode(req.Mode)
	switch mode {
	case groups.Simultaneous, groups.Staggered, groups.Custom:
	case "":
		mode = groups.Simultaneous
	default:
		return nil, nil, "", errors.New("mode must be simultaneous, staggered, or custom")
	}

	participants := make([]groups.Participant, 0, len(req.Participants))
	for _, p := range req.Participants {
		practitionerID, err := uuid.Parse(p.PractitionerID)
		if err != nil {
			return nil, nil, "", errors.New("participant practitioner_id must be a UUID")
		}
		if p.DurationMins <= 0 {
			return nil, nil, "", errors.New("participant duration_mins must be positive")
		}
		var patientID uuid.UUID
		if p.PatientID != "" {
			if patientID, err = uuid.Parse(p.PatientID); err != nil {
				return nil, nil, "", errors.New("participant patient_id must be a UUID")
			}
		}
		participants = append(participants, groups.Participant{
			PatientID:   patientID,
			PatientName: p.PatientName,
			Service: schedulingService(p.ServiceName, p.DurationMins, p.PriceCents),
			PractitionerID: practitionerID,
			CustomStart:    p.CustomStart,
		})
	}
	return &req, participants, mode, nil
}

// Quote handles POST /group-bookings/quote: schedule and pricing
// without creating appointments.
func (h *GroupsHandler) Quote(w http.ResponseWriter, r *http.Request) {
	req, participants, mode, err := h.parse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scheduled := groups.ComputeSchedule(participants, req.BaseStart, mode, time.Duration(req.GapMins)*time.Minute)
	writeJSON(w, http.StatusOK, h.respond(scheduled, participants, nil))
}

// Book handles POST /group-bookings: computes the schedule, then books
// every participant. If any participant's slot conflicts, the already
// created appointments are cancelled and the whole group is rejected.
func (h *GroupsHandler) Book(w http.ResponseWriter, r *http.Request) {
	req, participants, mode, err := h.parse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	scheduled := groups.ComputeSchedule(participants, req.BaseStart, mode, time.Duration(req.GapMins)*time.Minute)

	created := make([]uuid.UUID, 0, len(scheduled))
	for i, sp := range scheduled {
		appt, err := h.bookings.Book(r.Context(), booking.BookRequest{
			PatientID:      sp.PatientID,
			PatientName:    sp.PatientName,
			PractitionerID: sp.PractitionerID,
			ServiceName:    sp.Service.Name,
			DurationMins:   sp.Service.DurationMins,
			StartAt:        sp.StartAt,
			Actor:          actor,
		})
		if err != nil {
			h.rollback(r, created, actor)
			var conflictErr *booking.ConflictError
			if errors.As(err, &conflictErr) {
				h.metrics.ObserveBooking("group", "rejected")
				writeJSON(w, http.StatusConflict, conflictResponse{
					Error: "participant " + sp.PatientName + ": " + conflictErr.Message,
				})
				return
			}
			h.metrics.ObserveBooking("group", "error")
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		created = append(created, appt.ID)
		scheduled[i].StartAt = appt.StartAt
		scheduled[i].EndAt = appt.EndAt
	}

	h.metrics.ObserveBooking("group", "ok")
	writeJSON(w, http.StatusCreated, h.respond(scheduled, participants, created))
}

// rollback releases appointments created before a later participant
// failed. Release skips the waitlist offer: the slots were never
// genuinely freed. Failures here are logged, not surfaced.
func (h *GroupsHandler) rollback(r *http.Request, created []uuid.UUID, actor string) {
	for _, id := range created {
		if err := h.bookings.Release(r.Context(), id, actor, "group booking rolled back"); err != nil {
			h.logger.Error("group rollback failed", "appointment_id", id, "error", err)
		}
	}
}

func (h *GroupsHandler) respond(scheduled []groups.ScheduledParticipant, participants []groups.Participant, created []uuid.UUID) groupBookResponse {
	pricing := groups.ComputePricing(participants, h.tiers)
	resp := groupBookResponse{
		Pricing: groupPricingResponse{
			OriginalCents:   pricing.OriginalCents,
			DiscountPercent: pricing.DiscountPercent,
			DiscountCents:   pricing.DiscountCents,
			TotalCents:      pricing.TotalCents,
		},
	}
	for i, sp := range scheduled {
		out := scheduledParticipantResponse{
			PatientName: sp.PatientName,
			ServiceName: sp.Service.Name,
			StartAt:     sp.StartAt,
			EndAt:       sp.EndAt,
		}
		if i < len(created) {
			out.AppointmentID = created[i].String()
		}
		resp.Participants = append(resp.Participants, out)
	}
	return resp
}
