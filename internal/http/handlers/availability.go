package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/observability/metrics"
	"github.com/clearbrook/scheduler/internal/scheduling"
	"github.com/clearbrook/scheduler/internal/slots"
	"github.com/clearbrook/scheduler/pkg/logging"
)

type appointmentLister interface {
	ListForPractitionerRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]scheduling.Appointment, error)
}

type breakLister interface {
	ListForPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]scheduling.Break, error)
}

type shiftLister interface {
	ListRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]scheduling.Shift, error)
	ListTemplates(ctx context.Context, practitionerID uuid.UUID) ([]scheduling.ShiftTemplate, error)
}

// AvailabilityConfig wires the availability search handler.
type AvailabilityConfig struct {
	Finder       *slots.Finder
	Appointments appointmentLister
	Breaks       breakLister
	Shifts       shiftLister
	Metrics      *metrics.SchedulingMetrics
	Logger       *logging.Logger
}

// AvailabilityHandler serves slot searches for the booking UI.
type AvailabilityHandler struct {
	finder       *slots.Finder
	appointments appointmentLister
	breaks       breakLister
	shifts       shiftLister
	metrics      *metrics.SchedulingMetrics
	logger       *logging.Logger
}

func NewAvailabilityHandler(cfg AvailabilityConfig) *AvailabilityHandler {
	if cfg.Finder == nil {
		cfg.Finder = slots.NewFinder(slots.DefaultGranularityMins)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AvailabilityHandler{
		finder:       cfg.Finder,
		appointments: cfg.Appointments,
		breaks:       cfg.Breaks,
		shifts:       cfg.Shifts,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

type slotResponse struct {
	PractitionerID string    `json:"practitioner_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
}

type blockResponse struct {
	PractitionerID string    `json:"practitioner_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
}

type availabilityResponse struct {
	Slots  []slotResponse  `json:"slots"`
	Blocks []blockResponse `json:"blocks,omitempty"`
}

// Search handles GET /availability.
// Query: practitioner_id, duration_mins, from (YYYY-MM-DD), days,
// stagger_mins, merge.
func (h *AvailabilityHandler) Search(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	q := r.URL.Query()

	practitionerID, err := uuid.Parse(q.Get("practitioner_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "practitioner_id must be a UUID")
		return
	}
	durationMins, err := strconv.Atoi(q.Get("duration_mins"))
	if err != nil || durationMins <= 0 {
		writeError(w, http.StatusBadRequest, "duration_mins must be a positive integer")
		return
	}
	from, err := time.Parse(time.DateOnly, q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	days := 1
	if raw := q.Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days <= 0 || days > 31 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 31")
			return
		}
	}
	staggerMins := 0
	if raw := q.Get("stagger_mins"); raw != "" {
		if staggerMins, err = strconv.Atoi(raw); err != nil || staggerMins < 0 {
			writeError(w, http.StatusBadRequest, "stagger_mins must be a non-negative integer")
			return
		}
	}

	ctx := r.Context()
	to := from.AddDate(0, 0, days)

	appointments, err := h.appointments.ListForPractitionerRange(ctx, practitionerID, from, to)
	if err != nil {
		h.logger.Error("availability: load appointments failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}
	breaks, err := h.breaks.ListForPractitioner(ctx, practitionerID)
	if err != nil {
		h.logger.Error("availability: load breaks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load breaks")
		return
	}
	manualShifts, err := h.shifts.ListRange(ctx, practitionerID, from, to)
	if err != nil {
		h.logger.Error("availability: load shifts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load shifts")
		return
	}
	templates, err := h.shifts.ListTemplates(ctx, practitionerID)
	if err != nil {
		h.logger.Error("availability: load templates failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load shift templates")
		return
	}

	dates := make([]time.Time, 0, days)
	for d := 0; d < days; d++ {
		dates = append(dates, from.AddDate(0, 0, d))
	}

	service := scheduling.Service{DurationMins: durationMins}
	practitioner := scheduling.Practitioner{ID: practitionerID, StaggerMins: staggerMins}
	found := h.finder.FindAvailableSlots(service, practitioner, dates, appointments, breaks, manualShifts, templates)

	resp := availabilityResponse{Slots: make([]slotResponse, 0, len(found))}
	for _, s := range found {
		resp.Slots = append(resp.Slots, slotResponse{
			PractitionerID: s.PractitionerID.String(),
			StartAt:        s.StartAt,
			EndAt:          s.EndAt,
		})
	}
	if q.Get("merge") == "true" || q.Get("merge") == "1" {
		// Slots sit on the practitioner's stagger grid when one is
		// configured, so merge with that step, not the default grid.
		for _, b := range slots.MergeIntoContinuousBlocks(found, h.finder.StepFor(practitioner)) {
			resp.Blocks = append(resp.Blocks, blockResponse{
				PractitionerID: b.PractitionerID.String(),
				StartAt:        b.StartAt,
				EndAt:          b.EndAt,
			})
		}
	}

	h.metrics.ObserveSlotSearchLatency(strconv.Itoa(days), time.Since(started).Seconds())
	writeJSON(w, http.StatusOK, resp)
}
