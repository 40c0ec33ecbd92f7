package stream

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for generation sessions.
type Metrics struct {
	// Session lifecycle
	SessionsTotal   *prometheus.CounterVec
	SessionDuration *prometheus.HistogramVec
	SessionsActive  prometheus.Gauge

	// Model output
	DeltasTotal prometheus.Counter
	EventsTotal *prometheus.CounterVec

	// Relevance gating
	RejectedChangesTotal prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics for generation sessions.
//
// This function uses sync.Once to ensure metrics are only registered once
// globally, preventing "duplicate metrics collector registration" panics.
//
// All metrics are prefixed with "relnotes_" for namespacing.
//
// Metrics:
//   - relnotes_sessions_total{outcome} - Count of closed sessions by outcome
//   - relnotes_session_duration_seconds{outcome} - Histogram of session durations
//   - relnotes_sessions_active - Number of sessions currently running
//   - relnotes_deltas_total - Count of model deltas received
//   - relnotes_events_total{type} - Count of events written to clients
//   - relnotes_rejected_changes_total - Count of changes filtered before generation
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			SessionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relnotes_sessions_total",
					Help: "Total number of closed generation sessions",
				},
				[]string{"outcome"}, // "success", "error", "cancelled"
			),

			SessionDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "relnotes_session_duration_seconds",
					Help:    "Duration of generation sessions in seconds",
					Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
				},
				[]string{"outcome"},
			),

			SessionsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "relnotes_sessions_active",
					Help: "Number of generation sessions currently running",
				},
			),

			DeltasTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "relnotes_deltas_total",
					Help: "Total number of model deltas received across sessions",
				},
			),

			EventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relnotes_events_total",
					Help: "Total number of events written to clients",
				},
				[]string{"type"}, // "start", "progress", "notes", "message", "error", "complete"
			),

			RejectedChangesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "relnotes_rejected_changes_total",
					Help: "Total number of changes filtered out before generation",
				},
			),
		}
	})

	return globalMetrics
}

// RecordSessionStart marks a session as running.
func (m *Metrics) RecordSessionStart() {
	m.SessionsActive.Inc()
}

// RecordSessionClose records a closed session with its outcome and duration.
func (m *Metrics) RecordSessionClose(outcome string, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionsTotal.WithLabelValues(outcome).Inc()
	m.SessionDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordDelta records one model delta.
func (m *Metrics) RecordDelta() {
	m.DeltasTotal.Inc()
}

// RecordEvent records an event written to a client.
func (m *Metrics) RecordEvent(eventType string) {
	m.EventsTotal.WithLabelValues(eventType).Inc()
}

// RecordRejectedChange records a change dropped by the relevance filter.
func (m *Metrics) RecordRejectedChange() {
	m.RejectedChangesTotal.Inc()
}
