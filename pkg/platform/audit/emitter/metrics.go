package emitter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit emission.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	PersistFailures prometheus.Counter
	Rejected        prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics registers emitter metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hrcore_audit_envelopes_emitted_total",
			Help: "Total number of audit envelopes persisted, by action",
		}, []string{"action"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hrcore_audit_persist_failures_total",
			Help: "Total number of audit envelopes the store failed to persist",
		}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "hrcore_audit_envelopes_rejected_total",
			Help: "Total number of audit envelopes rejected before persistence (invalid or unredactable)",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hrcore_audit_persist_duration_seconds",
			Help:    "Latency of audit store writes",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncEmitted(action string) {
	m.Emitted.WithLabelValues(action).Inc()
}

func (m *Metrics) IncPersistFailures() {
	m.PersistFailures.Inc()
}

func (m *Metrics) IncRejected() {
	m.Rejected.Inc()
}

func (m *Metrics) ObservePersistDuration(seconds float64) {
	m.PersistDuration.Observe(seconds)
}
