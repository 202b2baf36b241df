package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	m := NewSchedulingMetrics(prometheus.NewRegistry())
	m.ObserveBooking("book", "ok")
	m.ObserveConflict("appointment")
	m.ObserveOverride("enabled")
	m.ObserveWaitlistOffer()
	m.ObserveSlotSearchLatency("7", 0.02)
}

func TestSchedulingMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)
	m.ObserveBooking("book", "rejected")
	m.ObserveBooking("book", "rejected")
	m.ObserveBooking("cancel", "ok")

	families, err := reg.Gather()
	require.NoError(t, err)

	var bookings *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "clearbrook_scheduling_bookings_total" {
			bookings = mf
		}
	}
	require.NotNil(t, bookings)

	counts := map[string]float64{}
	for _, metric := range bookings.GetMetric() {
		var op, outcome string
		for _, label := range metric.GetLabel() {
			switch label.GetName() {
			case "operation":
				op = label.GetValue()
			case "outcome":
				outcome = label.GetValue()
			}
		}
		counts[op+"/"+outcome] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, counts["book/rejected"])
	assert.Equal(t, 1.0, counts["cancel/ok"])
}

func TestSchedulingMetricsNilSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveBooking("book", "ok")
	m.ObserveConflict("break")
	m.ObserveOverride("expired")
	m.ObserveWaitlistOffer()
	m.ObserveSlotSearchLatency("1", 0.1)
}
