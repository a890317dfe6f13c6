// Package handlers provides the HTTP handlers for the sift gateway.
//
// Every handler follows the same shape:
//  1. Reject methods other than POST with a 405 envelope
//  2. Decode the body over its defaults and validate it
//  3. Read the current configuration snapshot and build the core
//     component for this request only
//  4. Write the result, or stamp the error with the request ID, record it,
//     log it and write the envelope
//
// No handler keeps state between requests beyond its metrics collectors.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/errors"
	"github.com/teilomillet/sift/server/dispatch"
	"github.com/teilomillet/sift/server/metrics"
	"github.com/teilomillet/sift/server/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracerName identifies spans created around upstream calls.
const TracerName = "github.com/teilomillet/sift/server/handlers"

// Option configures the query and search handlers.
type Option func(*options)

type options struct {
	httpClient *http.Client
	counter    dispatch.TokenCounter
	tracer     trace.Tracer
}

// WithHTTPClient sets the client used for upstream calls. The default is
// the SDK's own client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTokenCounter sets the counter used when completion.max_prompt_tokens
// is configured.
func WithTokenCounter(c dispatch.TokenCounter) Option {
	return func(o *options) { o.counter = c }
}

// WithTracer sets the tracer for upstream call spans. The default comes
// from the global provider, which is a no-op until one is installed.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(TracerName)
	}
	return o
}

// base carries what every handler needs to answer and fail.
type base struct {
	watcher config.Watcher
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func (b *base) requestLogger(r *http.Request) (*zap.Logger, string) {
	requestID := middleware.GetRequestID(r.Context())
	return b.logger.With(
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
	), requestID
}

// fail stamps, records, logs and writes err.
func (b *base) fail(w http.ResponseWriter, logger *zap.Logger, requestID string, err *errors.SiftError) {
	err = err.WithRequestID(requestID)
	b.metrics.RecordError(string(err.Type))
	errors.LogError(logger, err, requestID)
	errors.WriteError(w, err)
}

// requirePost writes a 405 envelope and returns false for any other method.
func (b *base) requirePost(w http.ResponseWriter, r *http.Request, logger *zap.Logger, requestID string) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", http.MethodPost)
	b.fail(w, logger, requestID, errors.NewMethodNotAllowedError(requestID, r.Method, http.MethodPost))
	return false
}

func (b *base) writeJSON(w http.ResponseWriter, logger *zap.Logger, requestID string, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		b.fail(w, logger, requestID, errors.NewInternalError(requestID, fmt.Errorf("failed to encode response: %w", err)))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// asSiftError converts anything a core component returned into the envelope
// type; core packages only return *errors.SiftError, so the fallback is an
// internal error.
func asSiftError(err error) *errors.SiftError {
	var se *errors.SiftError
	if errors.As(err, &se) {
		return se
	}
	return errors.NewInternalError("", err)
}
