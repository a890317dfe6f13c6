// Package routing mounts the configured routes on a chi router behind the
// shared middleware chain.
package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/errors"
	"github.com/teilomillet/sift/server/metrics"
	"github.com/teilomillet/sift/server/middleware"
	"go.uber.org/zap"
)

// Router handles HTTP routing for the gateway.
// It provides:
// - Config-driven routes, each with optional alias paths
// - The global middleware chain (request ID, logging, metrics, recovery, CORS)
// - JSON 404 envelopes for unknown paths
type Router struct {
	router   chi.Router
	handler  http.Handler
	handlers map[string]http.Handler
	logger   *zap.Logger
	cfg      *config.Config
}

// NewRouter creates a new router with the given configuration.
// Routes name their handler by key in handlers; a route naming a missing
// handler is logged and skipped. Routes and CORS settings are fixed at
// construction, while handlers read the live configuration per request.
func NewRouter(cfg *config.Config, handlers map[string]http.Handler, m *metrics.Metrics, logger *zap.Logger) *Router {
	r := &Router{
		router:   chi.NewRouter(),
		handlers: handlers,
		logger:   logger,
		cfg:      cfg,
	}

	// Add global middleware stack
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.Logging(logger))
	r.router.Use(middleware.PrometheusMetrics(m))
	r.router.Use(errors.ErrorHandler(logger))
	r.router.Use(middleware.CORS(cfg.Server.CORS))

	r.router.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errors.WriteError(w, errors.NewError(
			errors.InvalidRequestError,
			"Not found",
			http.StatusNotFound,
			middleware.GetRequestID(req.Context()),
			map[string]interface{}{"path": req.URL.Path},
			nil,
		))
	})

	r.handler = r.router
	if r.setupRoutes() == 0 {
		// chi only assembles its middleware chain once a route is mounted;
		// without one the 404 would bypass request IDs, logging and metrics.
		r.handler = chi.Chain(r.router.Middlewares()...).Handler(r.router)
	}

	return r
}

// setupRoutes mounts every configured path and alias and returns how many
// paths were mounted. Handlers receive all methods and answer 405
// themselves, so the error envelope stays uniform.
func (r *Router) setupRoutes() int {
	mounted := 0
	for _, route := range r.cfg.Routes {
		handler, ok := r.handlers[route.Handler]
		if !ok {
			r.logger.Error("handler not found",
				zap.String("handler", route.Handler),
				zap.String("path", route.Path),
			)
			continue
		}

		for _, path := range append([]string{route.Path}, route.Aliases...) {
			r.router.Handle(path, handler)
			mounted++
			r.logger.Debug("route mounted",
				zap.String("path", path),
				zap.String("handler", route.Handler),
			)
		}
	}
	return mounted
}

// ServeHTTP implements the http.Handler interface.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}
