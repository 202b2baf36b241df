package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/clearbrook/scheduler/internal/audit"
	"github.com/clearbrook/scheduler/pkg/logging"
)

type auditQuerier interface {
	QueryEvents(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

// AuditHandler exposes the scheduling audit trail to staff.
type AuditHandler struct {
	service auditQuerier
	logger  *logging.Logger
}

func NewAuditHandler(service auditQuerier, logger *logging.Logger) *AuditHandler {
	if service == nil {
		panic("handlers: audit service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AuditHandler{service: service, logger: logger}
}

// Query handles GET /audit/events.
// Query: event_type, actor, appointment_id, since (RFC3339), limit.
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		EventType:     audit.EventType(q.Get("event_type")),
		Actor:         q.Get("actor"),
		AppointmentID: q.Get("appointment_id"),
		Limit:         100,
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.StartTime = since
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = limit
	}

	events, err := h.service.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query audit events")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
