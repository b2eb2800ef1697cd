package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the enforcement engine.
type Metrics struct {
	EventsEmitted      prometheus.Counter
	Invocations        *prometheus.CounterVec
	Violations         prometheus.Counter
	ExceptionGaps      prometheus.Counter
	ValidationDuration prometheus.Histogram
}

// Invocation outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeViolation = "violation"
	OutcomeError     = "error"
)

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditflow_events_emitted_total",
			Help: "Total number of audit events emitted by guarded operations",
		}),
		Invocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auditflow_invocations_total",
			Help: "Total guarded invocations by operation and outcome",
		}, []string{"operation", "outcome"}),
		Violations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditflow_compliance_violations_total",
			Help: "Total invocations that returned normally without a compliant audit trail",
		}),
		ExceptionGaps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditflow_exception_path_gaps_total",
			Help: "Total invocations that failed before completing their audit trail",
		}),
		ValidationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "auditflow_validation_duration_seconds",
			Help:    "Time spent validating emission logs against specifications",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

// ObserveInvocation records one completed guarded invocation.
func (m *Metrics) ObserveInvocation(operation, outcome string, emitted int) {
	m.Invocations.WithLabelValues(operation, outcome).Inc()
	m.EventsEmitted.Add(float64(emitted))
}
