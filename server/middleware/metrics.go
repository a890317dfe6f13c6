package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/teilomillet/sift/server/metrics"
)

// UnmatchedEndpoint labels requests that match no route.
const UnmatchedEndpoint = "unmatched"

// PrometheusMetrics middleware records HTTP metrics using Prometheus.
// Requests are labeled by route pattern, so aliases of one route are
// counted separately and unknown paths collapse into one series.
func PrometheusMetrics(m *metrics.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			endpoint := endpointLabel(r)

			m.ActiveRequests.WithLabelValues(endpoint).Inc()
			defer m.ActiveRequests.WithLabelValues(endpoint).Dec()

			rw := NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			m.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(rw.Status())).Inc()
			m.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		})
	}
}

// endpointLabel resolves the chi route pattern ahead of routing.
func endpointLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return UnmatchedEndpoint
	}
	tctx := chi.NewRouteContext()
	if !rctx.Routes.Match(tctx, r.Method, r.URL.Path) {
		return UnmatchedEndpoint
	}
	if pattern := tctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return UnmatchedEndpoint
}
