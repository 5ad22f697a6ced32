package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the checkpoint.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	StageTransitions  *prometheus.CounterVec
	StageFailures     *prometheus.CounterVec
	ClaimOutcomes     *prometheus.CounterVec
	OracleLatency     *prometheus.HistogramVec
	EndpointLatency   *prometheus.HistogramVec
	OutboxRelayed     prometheus.Counter
	OutboxRelayErrors prometheus.Counter
}

// New creates and registers all metrics on reg. Pass prometheus.DefaultRegisterer
// in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "ballotgate_sessions_started_total",
			Help: "Total number of verification sessions started",
		}),
		StageTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotgate_stage_transitions_total",
			Help: "Verification stage transitions by destination stage",
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotgate_stage_failures_total",
			Help: "Failed verification attempts by stage and error code",
		}, []string{"stage", "code"}),
		ClaimOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotgate_vote_claims_total",
			Help: "Vote registry claim outcomes",
		}, []string{"outcome"}),
		OracleLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ballotgate_oracle_latency_seconds",
			Help:    "Latency of external verification oracles",
			Buckets: prometheus.DefBuckets,
		}, []string{"oracle"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ballotgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		OutboxRelayed: f.NewCounter(prometheus.CounterOpts{
			Name: "ballotgate_outbox_relayed_total",
			Help: "Audit outbox entries published to Kafka",
		}),
		OutboxRelayErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "ballotgate_outbox_relay_errors_total",
			Help: "Audit outbox relay batches that failed",
		}),
	}
}

func (m *Metrics) IncrementSessionsStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

func (m *Metrics) RecordTransition(stage string) {
	if m == nil {
		return
	}
	m.StageTransitions.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordStageFailure(stage, code string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage, code).Inc()
}

func (m *Metrics) RecordClaim(outcome string) {
	if m == nil {
		return
	}
	m.ClaimOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveOracleLatency(oracle string, d time.Duration) {
	if m == nil {
		return
	}
	m.OracleLatency.WithLabelValues(oracle).Observe(d.Seconds())
}

func (m *Metrics) ObserveEndpointLatency(route, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.EndpointLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) IncrementOutboxRelayed(n int) {
	if m == nil {
		return
	}
	m.OutboxRelayed.Add(float64(n))
}

func (m *Metrics) IncrementOutboxRelayErrors() {
	if m == nil {
		return
	}
	m.OutboxRelayErrors.Inc()
}
