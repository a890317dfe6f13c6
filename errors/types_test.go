package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigError(t *testing.T) {
	inner := errors.New("GROQ_API_KEY unset")
	err := NewConfigError("test-123", "API key not configured", inner)

	assert.Equal(t, ConfigError, err.Type)
	assert.Equal(t, http.StatusInternalServerError, err.Code)
	assert.Equal(t, "test-123", err.RequestID)
	assert.Equal(t, inner, err.Unwrap())
}

func TestNewInvalidRequestError(t *testing.T) {
	details := map[string]interface{}{"type": "bogus"}
	err := NewInvalidRequestError("test-456", "Invalid request type", details)

	assert.Equal(t, InvalidRequestError, err.Type)
	assert.Equal(t, http.StatusBadRequest, err.Code)
	assert.Equal(t, "bogus", err.Details["type"])
}

func TestNewMethodNotAllowedError(t *testing.T) {
	err := NewMethodNotAllowedError("test-789", http.MethodGet, http.MethodPost)

	assert.Equal(t, InvalidRequestError, err.Type)
	assert.Equal(t, http.StatusMethodNotAllowed, err.Code)
	assert.Equal(t, "Method not allowed", err.Message)
	assert.Equal(t, []string{http.MethodPost}, err.Details["allowed_methods"])
}

func TestNewUpstreamError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode int
	}{
		{name: "client error mirrored", status: http.StatusUnauthorized, wantCode: http.StatusUnauthorized},
		{name: "server error mirrored", status: http.StatusServiceUnavailable, wantCode: http.StatusServiceUnavailable},
		{name: "no status", status: 0, wantCode: http.StatusInternalServerError},
		{name: "success status is not an error code", status: http.StatusOK, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewUpstreamError("req", "search", tt.status, "upstream failed", nil)
			assert.Equal(t, UpstreamError, err.Type)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, "search", err.Details["service"])
			if tt.status == 0 {
				assert.NotContains(t, err.Details, "upstream_status")
			} else {
				assert.Equal(t, tt.status, err.Details["upstream_status"])
			}
		})
	}
}

func TestNewCredentialsExhaustedError(t *testing.T) {
	err := NewCredentialsExhaustedError("req", 5, 3)

	assert.Equal(t, CredentialsExhaustedError, err.Type)
	assert.Equal(t, http.StatusTooManyRequests, err.Code)
	assert.Equal(t, "All API keys exhausted", err.Message)
	assert.Equal(t, 5, err.Details["key_index"])
	assert.Equal(t, 3, err.Details["pool_size"])
}

func TestNewParseError(t *testing.T) {
	err := NewParseError("req", nil)

	assert.Equal(t, ParseError, err.Type)
	assert.Equal(t, http.StatusInternalServerError, err.Code)
	assert.Equal(t, "Could not parse AI response", err.Message)
}
