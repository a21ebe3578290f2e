package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the per-route HTTP series. Routes are chi patterns, so
// cardinality stays bounded by the route table.
type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
}

// NewMetrics registers the HTTP metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "landtrust_endpoint_latency_seconds",
			Help:    "Latency of HTTP endpoints in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "landtrust_http_requests_total",
			Help: "HTTP requests by endpoint and status class",
		}, []string{"endpoint", "status"}),
	}
}

func (m *Metrics) observe(endpoint string, status int, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
	m.Requests.WithLabelValues(endpoint, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
