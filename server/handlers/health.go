package handlers

import (
	"net/http"

	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/errors"
	"github.com/teilomillet/sift/server/metrics"
	"github.com/teilomillet/sift/server/search"
	"go.uber.org/zap"
)

// HealthResponse reports whether each upstream has the configuration it
// needs. It makes no upstream calls.
type HealthResponse struct {
	Status     string          `json:"status"`
	Completion ComponentHealth `json:"completion"`
	Search     ComponentHealth `json:"search"`
}

// ComponentHealth describes one upstream.
type ComponentHealth struct {
	Configured bool `json:"configured"`
	Keys       int  `json:"keys,omitempty"`
}

// HealthHandler answers liveness probes. It always returns 200 while the
// process is serving; missing credentials show up as "degraded".
type HealthHandler struct {
	base
}

// NewHealthHandler creates a health handler reading configuration from watcher.
func NewHealthHandler(watcher config.Watcher, m *metrics.Metrics, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{base: base{watcher: watcher, metrics: m, logger: logger}}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger, requestID := h.requestLogger(r)
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.fail(w, logger, requestID, errors.NewMethodNotAllowedError(requestID, r.Method, http.MethodGet, http.MethodHead))
		return
	}

	cfg := h.watcher.GetCurrentConfig()
	pool := search.NewPool(cfg.Search.APIKeys)

	resp := HealthResponse{
		Status: "ok",
		Completion: ComponentHealth{
			Configured: cfg.Completion.APIKey != "",
		},
		Search: ComponentHealth{
			Configured: pool.Len() > 0 && cfg.Search.EngineID != "",
			Keys:       pool.Len(),
		},
	}
	if !resp.Completion.Configured || !resp.Search.Configured {
		resp.Status = "degraded"
	}

	h.writeJSON(w, logger, requestID, resp)
}
