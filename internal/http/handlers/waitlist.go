package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/scheduling"
	"github.com/clearbrook/scheduler/internal/waitlist"
	"github.com/clearbrook/scheduler/pkg/logging"
)

type waitlistStore interface {
	ListActive(ctx context.Context) ([]scheduling.WaitlistEntry, error)
	Add(ctx context.Context, e *scheduling.WaitlistEntry) error
	Remove(ctx context.Context, id uuid.UUID) error
}

type appointmentGetter interface {
	Get(ctx context.Context, id uuid.UUID) (scheduling.Appointment, error)
}

// WaitlistConfig wires the waitlist handler.
type WaitlistConfig struct {
	Store        waitlistStore
	Appointments appointmentGetter
	Logger       *logging.Logger
	Now          func() time.Time
}

// WaitlistHandler manages waitlist entries and match suggestions.
type WaitlistHandler struct {
	store        waitlistStore
	appointments appointmentGetter
	logger       *logging.Logger
	now          func() time.Time
}

func NewWaitlistHandler(cfg WaitlistConfig) *WaitlistHandler {
	if cfg.Store == nil {
		panic("handlers: waitlist store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &WaitlistHandler{
		store:        cfg.Store,
		appointments: cfg.Appointments,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
}

type waitlistEntryRequest struct {
	PatientID               string `json:"patient_id"`
	PatientName             string `json:"patient_name"`
	RequestedService        string `json:"requested_service"`
	DurationMins            int    `json:"duration_mins,omitempty"`
	Priority                string `json:"priority,omitempty"`
	PreferredPractitionerID string `json:"preferred_practitioner_id,omitempty"`
	Notes                   string `json:"notes,omitempty"`
}

type waitlistEntryResponse struct {
	ID                      string    `json:"id"`
	PatientID               string    `json:"patient_id"`
	PatientName             string    `json:"patient_name"`
	RequestedService        string    `json:"requested_service"`
	DurationMins            int       `json:"duration_mins,omitempty"`
	Priority                string    `json:"priority"`
	PreferredPractitionerID string    `json:"preferred_practitioner_id,omitempty"`
	Notes                   string    `json:"notes,omitempty"`
	JoinedAt                time.Time `json:"joined_at"`
}

func toWaitlistEntryResponse(e scheduling.WaitlistEntry) waitlistEntryResponse {
	resp := waitlistEntryResponse{
		ID:               e.ID.String(),
		PatientID:        e.PatientID.String(),
		PatientName:      e.PatientName,
		RequestedService: e.RequestedService,
		DurationMins:     e.DurationMins,
		Priority:         string(e.Priority),
		Notes:            e.Notes,
		JoinedAt:         e.JoinedAt,
	}
	if e.PreferredPractitionerID != uuid.Nil {
		resp.PreferredPractitionerID = e.PreferredPractitionerID.String()
	}
	return resp
}

// List handles GET /waitlist.
func (h *WaitlistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListActive(r.Context())
	if err != nil {
		h.logger.Error("list waitlist failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load waitlist")
		return
	}
	out := make([]waitlistEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toWaitlistEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// Add handles POST /waitlist.
func (h *WaitlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req waitlistEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "patient_id must be a UUID")
		return
	}
	if req.RequestedService == "" {
		writeError(w, http.StatusBadRequest, "requested_service is required")
		return
	}
	priority := scheduling.Priority(req.Priority)
	if priority == "" {
		priority = scheduling.PriorityMedium
	}
	if priority.Weight() == 0 {
		writeError(w, http.StatusBadRequest, "priority must be high, medium, or low")
		return
	}
	var preferred uuid.UUID
	if req.PreferredPractitionerID != "" {
		if preferred, err = uuid.Parse(req.PreferredPractitionerID); err != nil {
			writeError(w, http.StatusBadRequest, "preferred_practitioner_id must be a UUID")
			return
		}
	}

	entry := scheduling.WaitlistEntry{
		PatientID:               patientID,
		PatientName:             req.PatientName,
		RequestedService:        req.RequestedService,
		DurationMins:            req.DurationMins,
		Priority:                priority,
		PreferredPractitionerID: preferred,
		Notes:                   req.Notes,
		JoinedAt:                h.now().UTC(),
	}
	if err := h.store.Add(r.Context(), &entry); err != nil {
		h.logger.Error("add waitlist entry failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add waitlist entry")
		return
	}
	writeJSON(w, http.StatusCreated, toWaitlistEntryResponse(entry))
}

// Remove handles DELETE /waitlist/{id}.
func (h *WaitlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Remove(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

type matchResponse struct {
	Entry        waitlistEntryResponse `json:"entry"`
	Score        int                   `json:"score"`
	MatchReasons []string              `json:"match_reasons"`
}

// Suggest handles GET /waitlist/suggest/{appointmentID}: ranks the
// waitlist against an appointment's slot, typically after cancellation.
func (h *WaitlistHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "appointmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := h.appointments.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	entries, err := h.store.ListActive(r.Context())
	if err != nil {
		h.logger.Error("list waitlist failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load waitlist")
		return
	}

	suggestion := waitlist.SuggestAutoFill(appt, entries)
	matches := make([]matchResponse, 0, len(suggestion.AllMatches))
	for _, m := range suggestion.AllMatches {
		matches = append(matches, matchResponse{
			Entry:        toWaitlistEntryResponse(m.Entry),
			Score:        m.Score,
			MatchReasons: m.MatchReasons,
		})
	}
	resp := map[string]any{"matches": matches}
	if suggestion.TopMatch != nil {
		resp["top_match_id"] = suggestion.TopMatch.Entry.ID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}
