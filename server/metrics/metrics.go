// Package metrics holds the Prometheus collectors for the gateway. Every
// collector lives in a private registry so tests can build as many Metrics
// as they like.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream call outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

// Metrics encapsulates Prometheus metrics for the server.
type Metrics struct {
	registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ActiveRequests     *prometheus.GaugeVec
	ErrorsTotal        *prometheus.CounterVec
	UpstreamRequests   *prometheus.CounterVec
	KeyRotations       *prometheus.CounterVec
	ExtractionFailures *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with a custom registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_http_requests_total",
				Help: "Total number of HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sift_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ActiveRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sift_http_active_requests",
				Help: "Number of currently active HTTP requests",
			},
			[]string{"endpoint"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_errors_total",
				Help: "Total number of error responses by error type",
			},
			[]string{"type"},
		),
		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_upstream_requests_total",
				Help: "Calls to the completion and search APIs by outcome",
			},
			[]string{"service", "outcome"},
		),
		KeyRotations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_key_rotations_total",
				Help: "Rotation signals sent to callers, by the exhausted key index",
			},
			[]string{"key_index"},
		),
		ExtractionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sift_extraction_failures_total",
				Help: "Completion replies with no usable JSON, by query type",
			},
			[]string{"kind"},
		),
	}

	// Register default Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m.RequestsTotal.WithLabelValues("/health", "200").Add(0)
	m.RequestDuration.WithLabelValues("/health").Observe(0)

	return m
}

// RecordUpstream counts one upstream call.
func (m *Metrics) RecordUpstream(service, outcome string) {
	m.UpstreamRequests.WithLabelValues(service, outcome).Inc()
}

// RecordRotation counts a rotation signal for the key at keyIndex.
func (m *Metrics) RecordRotation(keyIndex int) {
	m.KeyRotations.WithLabelValues(strconv.Itoa(keyIndex)).Inc()
}

// RecordExtractionFailure counts an unparseable completion reply.
func (m *Metrics) RecordExtractionFailure(kind string) {
	m.ExtractionFailures.WithLabelValues(kind).Inc()
}

// RecordError counts an error response by its sift error type.
func (m *Metrics) RecordError(errType string) {
	m.ErrorsTotal.WithLabelValues(errType).Inc()
}

// Handler returns a handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})
}
