package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/scheduling"
	"github.com/clearbrook/scheduler/pkg/logging"
)

type shiftStore interface {
	EffectiveForDate(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]scheduling.Shift, error)
	ReplaceOverlapping(ctx context.Context, s *scheduling.Shift) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type breakStore interface {
	ListForPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]scheduling.Break, error)
	Create(ctx context.Context, b *scheduling.Break) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ShiftsConfig wires the working-hours handler.
type ShiftsConfig struct {
	Shifts shiftStore
	Breaks breakStore
	Logger *logging.Logger
}

// ShiftsHandler manages practitioner working hours and breaks.
type ShiftsHandler struct {
	shifts shiftStore
	breaks breakStore
	logger *logging.Logger
}

func NewShiftsHandler(cfg ShiftsConfig) *ShiftsHandler {
	if cfg.Shifts == nil {
		panic("handlers: shift store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &ShiftsHandler{
		shifts: cfg.Shifts,
		breaks: cfg.Breaks,
		logger: cfg.Logger,
	}
}

type shiftResponse struct {
	ID             string    `json:"id"`
	PractitionerID string    `json:"practitioner_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	RoomID         string    `json:"room_id,omitempty"`
	BookingOption  string    `json:"booking_option"`
}

// Effective handles GET /practitioners/{practitionerID}/shifts?date=.
// Manual shifts win the day outright over template-derived ones.
func (h *ShiftsHandler) Effective(w http.ResponseWriter, r *http.Request) {
	practitionerID, err := urlUUID(r, "practitionerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	effective, err := h.shifts.EffectiveForDate(r.Context(), practitionerID, date)
	if err != nil {
		h.logger.Error("resolve effective shifts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve shifts")
		return
	}
	out := make([]shiftResponse, 0, len(effective))
	for _, s := range effective {
		resp := shiftResponse{
			ID:             s.ID.String(),
			PractitionerID: s.PractitionerID.String(),
			StartAt:        s.StartAt,
			EndAt:          s.EndAt,
			BookingOption:  string(s.BookingOption),
		}
		if s.RoomID != uuid.Nil {
			resp.RoomID = s.RoomID.String()
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"shifts": out})
}

type createShiftRequest struct {
	PractitionerID string    `json:"practitioner_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	RoomID         string    `json:"room_id,omitempty"`
	BookingOption  string    `json:"booking_option,omitempty"`
}

// Create handles POST /shifts. Overlapping manual shifts for the same
// practitioner are replaced by the new window.
func (h *ShiftsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createShiftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	practitionerID, err := uuid.Parse(req.PractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "practitioner_id must be a UUID")
		return
	}
	var roomID uuid.UUID
	if req.RoomID != "" {
		if roomID, err = uuid.Parse(req.RoomID); err != nil {
			writeError(w, http.StatusBadRequest, "room_id must be a UUID")
			return
		}
	}
	option := scheduling.BookingOption(req.BookingOption)
	if option == "" {
		option = scheduling.Bookable
	}

	shift := scheduling.Shift{
		PractitionerID: practitionerID,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		RoomID:         roomID,
		BookingOption:  option,
	}
	if err := h.shifts.ReplaceOverlapping(r.Context(), &shift); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, shiftResponse{
		ID:             shift.ID.String(),
		PractitionerID: shift.PractitionerID.String(),
		StartAt:        shift.StartAt,
		EndAt:          shift.EndAt,
		BookingOption:  string(shift.BookingOption),
	})
}

// Delete handles DELETE /shifts/{id}.
func (h *ShiftsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.shifts.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type createBreakRequest struct {
	PractitionerID    string    `json:"practitioner_id"`
	Type              string    `json:"type,omitempty"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
	RecurringWeekdays []int     `json:"recurring_weekdays,omitempty"`
	EmergencyBookable bool      `json:"emergency_bookable,omitempty"`
}

// CreateBreak handles POST /breaks.
func (h *ShiftsHandler) CreateBreak(w http.ResponseWriter, r *http.Request) {
	var req createBreakRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	practitionerID, err := uuid.Parse(req.PractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "practitioner_id must be a UUID")
		return
	}

	br := scheduling.Break{
		PractitionerID:    practitionerID,
		Type:              req.Type,
		StartAt:           req.StartAt,
		EndAt:             req.EndAt,
		EmergencyBookable: req.EmergencyBookable,
	}
	for _, d := range req.RecurringWeekdays {
		if d < 0 || d > 6 {
			writeError(w, http.StatusBadRequest, "recurring_weekdays must be 0 (Sunday) through 6 (Saturday)")
			return
		}
		br.RecurringWeekdays = append(br.RecurringWeekdays, time.Weekday(d))
	}
	if err := h.breaks.Create(r.Context(), &br); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": br.ID.String()})
}

// DeleteBreak handles DELETE /breaks/{id}.
func (h *ShiftsHandler) DeleteBreak(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.breaks.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
