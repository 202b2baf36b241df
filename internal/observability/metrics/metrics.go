package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the booking engine.
type SchedulingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	overrideSessions  *prometheus.CounterVec
	waitlistOffers    prometheus.Counter
	slotSearchLatency *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearbrook",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"operation", "outcome"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearbrook",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Total conflicts detected, split by what the booking collided with",
		}, []string{"kind"}),
		overrideSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearbrook",
			Subsystem: "scheduling",
			Name:      "override_sessions_total",
			Help:      "Override session transitions",
		}, []string{"transition"}),
		waitlistOffers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clearbrook",
			Subsystem: "scheduling",
			Name:      "waitlist_offers_total",
			Help:      "Total auto-fill offers sent to waitlisted patients",
		}),
		slotSearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clearbrook",
			Subsystem: "scheduling",
			Name:      "slot_search_latency_seconds",
			Help:      "Latency of availability searches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"days"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal, m.overrideSessions, m.waitlistOffers, m.slotSearchLatency)
	return m
}

// ObserveBooking records a booking attempt. Operation is "book",
// "reschedule", or "cancel"; outcome is "ok", "rejected", "overridden",
// or "error".
func (m *SchedulingMetrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveConflict records a detected collision by kind: "appointment",
// "room", or "break".
func (m *SchedulingMetrics) ObserveConflict(kind string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(kind).Inc()
}

// ObserveOverride records a session transition: "enabled", "disabled",
// or "expired".
func (m *SchedulingMetrics) ObserveOverride(transition string) {
	if m == nil {
		return
	}
	m.overrideSessions.WithLabelValues(transition).Inc()
}

func (m *SchedulingMetrics) ObserveWaitlistOffer() {
	if m == nil {
		return
	}
	m.waitlistOffers.Inc()
}

func (m *SchedulingMetrics) ObserveSlotSearchLatency(days string, seconds float64) {
	if m == nil {
		return
	}
	m.slotSearchLatency.WithLabelValues(days).Observe(seconds)
}
