package handlers

import (
	"net/http"

	"github.com/clearbrook/scheduler/internal/http/middleware"
	"github.com/clearbrook/scheduler/internal/observability/metrics"
	"github.com/clearbrook/scheduler/internal/override"
	"github.com/clearbrook/scheduler/pkg/logging"
)

// OverrideConfig wires the override session handler.
type OverrideConfig struct {
	Session *override.Session
	Metrics *metrics.SchedulingMetrics
	Logger  *logging.Logger
}

// OverrideHandler exposes the double-booking override session. All
// routes sit behind staff auth; the JWT subject becomes the audited
// actor.
type OverrideHandler struct {
	session *override.Session
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
}

func NewOverrideHandler(cfg OverrideConfig) *OverrideHandler {
	if cfg.Session == nil {
		panic("handlers: override session required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &OverrideHandler{
		session: cfg.Session,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

type overrideStatusResponse struct {
	Active bool   `json:"active"`
	Actor  string `json:"actor,omitempty"`
}

// Enable handles POST /override/enable.
func (h *OverrideHandler) Enable(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	h.session.Enable(r.Context(), actor)
	h.metrics.ObserveOverride("enabled")
	writeJSON(w, http.StatusOK, overrideStatusResponse{Active: true, Actor: actor})
}

// Disable handles POST /override/disable.
func (h *OverrideHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.session.Disable(r.Context(), middleware.ActorFromContext(r.Context()))
	h.metrics.ObserveOverride("disabled")
	writeJSON(w, http.StatusOK, overrideStatusResponse{Active: false})
}

// Touch handles POST /override/touch. Any scheduling activity resets
// the inactivity timeout.
func (h *OverrideHandler) Touch(w http.ResponseWriter, r *http.Request) {
	h.session.Touch()
	h.status(w)
}

// Status handles GET /override/status.
func (h *OverrideHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.status(w)
}

func (h *OverrideHandler) status(w http.ResponseWriter) {
	resp := overrideStatusResponse{Active: h.session.Active()}
	if resp.Active {
		resp.Actor = h.session.Actor()
	}
	writeJSON(w, http.StatusOK, resp)
}
