package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus instruments.
type Metrics struct {
	assessmentsTotal *prometheus.CounterVec
	scoringDuration  prometheus.Histogram
	publishFailures  *prometheus.CounterVec
	duplicatesTotal  prometheus.Counter
	breakerState     *prometheus.GaugeVec
}

// New registers the service instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		assessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fraud_risk",
			Name:      "assessments_total",
			Help:      "Completed risk assessments by decision.",
		}, []string{"decision"}),
		scoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fraud_risk",
			Name:      "scoring_duration_seconds",
			Help:      "End-to-end assessment latency.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fraud_risk",
			Name:      "event_publish_failures_total",
			Help:      "Domain event publish failures by topic.",
		}, []string{"topic"}),
		duplicatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fraud_risk",
			Name:      "duplicate_transactions_total",
			Help:      "Transactions skipped by the idempotency guard.",
		}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fraud_risk",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per client (0 closed, 1 half-open, 2 open).",
		}, []string{"client"}),
	}

	reg.MustRegister(
		m.assessmentsTotal,
		m.scoringDuration,
		m.publishFailures,
		m.duplicatesTotal,
		m.breakerState,
	)

	return m
}

// RecordAssessment counts a completed assessment and observes its latency.
func (m *Metrics) RecordAssessment(decision string, duration time.Duration) {
	m.assessmentsTotal.WithLabelValues(decision).Inc()
	m.scoringDuration.Observe(duration.Seconds())
}

// RecordPublishFailure counts a failed event publish.
func (m *Metrics) RecordPublishFailure(topic string) {
	m.publishFailures.WithLabelValues(topic).Inc()
}

// RecordDuplicate counts a transaction skipped as already processed.
func (m *Metrics) RecordDuplicate() {
	m.duplicatesTotal.Inc()
}

// SetBreakerState records a circuit breaker transition.
func (m *Metrics) SetBreakerState(client string, state float64) {
	m.breakerState.WithLabelValues(client).Set(state)
}
