package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/server/metrics"
	"go.uber.org/zap/zaptest"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   HealthResponse
	}{
		{
			name:   "nothing configured",
			mutate: func(*config.Config) {},
			want:   HealthResponse{Status: "degraded"},
		},
		{
			name: "fully configured",
			mutate: func(c *config.Config) {
				c.Completion.APIKey = "gsk"
				c.Search.APIKeys = []string{"k1", "", "k3"}
				c.Search.EngineID = "cx"
			},
			want: HealthResponse{
				Status:     "ok",
				Completion: ComponentHealth{Configured: true},
				Search:     ComponentHealth{Configured: true, Keys: 2},
			},
		},
		{
			name: "search keys without engine",
			mutate: func(c *config.Config) {
				c.Completion.APIKey = "gsk"
				c.Search.APIKeys = []string{"k1"}
			},
			want: HealthResponse{
				Status:     "degraded",
				Completion: ComponentHealth{Configured: true},
				Search:     ComponentHealth{Configured: false, Keys: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(staticConfig(tt.mutate), metrics.NewMetrics(), zaptest.NewLogger(t))
			rec := serve(h, http.MethodGet, "/health", "")

			require.Equal(t, http.StatusOK, rec.Code)
			var got HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHealthHandlerDoesNotLeakKeys(t *testing.T) {
	h := NewHealthHandler(staticConfig(func(c *config.Config) {
		c.Completion.APIKey = "gsk-secret"
		c.Search.APIKeys = []string{"google-secret"}
	}), metrics.NewMetrics(), zaptest.NewLogger(t))

	rec := serve(h, http.MethodGet, "/health", "")
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestHealthHandlerRejectsPost(t *testing.T) {
	h := NewHealthHandler(staticConfig(func(*config.Config) {}), metrics.NewMetrics(), zaptest.NewLogger(t))
	rec := serve(h, http.MethodPost, "/health", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
