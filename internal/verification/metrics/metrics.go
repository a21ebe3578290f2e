// Package metrics provides Prometheus metrics for trust verification.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider call outcomes used as label values.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
)

// Verification request results used as label values.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultCached  = "cached"
)

// Metrics contains the verification metrics.
type Metrics struct {
	ProviderCallsTotal     *prometheus.CounterVec   // calls by provider and outcome (success, skipped, or error category)
	ProviderCallDuration   *prometheus.HistogramVec // call latency by provider
	CircuitOpenTotal       *prometheus.CounterVec   // circuit trips by provider
	TrustScore             prometheus.Histogram
	VerificationsTotal     *prometheus.CounterVec // requests by result
	ReportCacheHitsTotal   prometheus.Counter
	ReportCacheMissesTotal prometheus.Counter
}

// New registers the metrics with the default Prometheus registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProviderCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landtrust_provider_calls_total",
			Help: "Total verification provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),

		ProviderCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "landtrust_provider_call_duration_seconds",
			Help:    "Duration of verification provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"provider"}),

		CircuitOpenTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landtrust_provider_circuit_open_total",
			Help: "Number of times a provider circuit breaker opened",
		}, []string{"provider"}),

		TrustScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "landtrust_trust_score",
			Help:    "Distribution of computed trust scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),

		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "landtrust_verifications_total",
			Help: "Total verification requests by result",
		}, []string{"result"}),

		ReportCacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "landtrust_report_cache_hits_total",
			Help: "Total trust report cache hits",
		}),

		ReportCacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "landtrust_report_cache_misses_total",
			Help: "Total trust report cache misses",
		}),
	}
}

// RecordProviderCall records one settled provider call.
func (m *Metrics) RecordProviderCall(provider, outcome string, latency time.Duration) {
	m.ProviderCallsTotal.WithLabelValues(provider, outcome).Inc()
	m.ProviderCallDuration.WithLabelValues(provider).Observe(latency.Seconds())
}

func (m *Metrics) RecordCircuitOpen(provider string) {
	m.CircuitOpenTotal.WithLabelValues(provider).Inc()
}

func (m *Metrics) ObserveTrustScore(score int) {
	m.TrustScore.Observe(float64(score))
}

func (m *Metrics) RecordVerification(result string) {
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCacheHit() {
	m.ReportCacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.ReportCacheMissesTotal.Inc()
}
