package handlers

import (
	"context"
	"net/http"

	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/errors"
	"github.com/teilomillet/sift/server/dispatch"
	"github.com/teilomillet/sift/server/metrics"
	"github.com/teilomillet/sift/server/provider"
	"github.com/teilomillet/sift/server/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// QueryRequest is the body of a query call. Type is checked by the
// dispatcher so that an unknown or missing type yields one consistent
// "Invalid request type" error.
type QueryRequest struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

// QueryHandler serves typed prompt queries against the completion API.
type QueryHandler struct {
	base
	opts options
}

// NewQueryHandler creates a query handler reading configuration from watcher.
func NewQueryHandler(watcher config.Watcher, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *QueryHandler {
	return &QueryHandler{
		base: base{watcher: watcher, metrics: m, logger: logger},
		opts: buildOptions(opts),
	}
}

func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger, requestID := h.requestLogger(r)
	if !h.requirePost(w, r, logger, requestID) {
		return
	}

	var req QueryRequest
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, logger, requestID, err)
		return
	}
	logger = logger.With(zap.String("kind", req.Type))

	cfg := h.watcher.GetCurrentConfig().Completion

	completer := &instrumentedCompleter{
		next:    provider.NewCompletionClient(cfg, h.opts.httpClient),
		metrics: h.metrics,
		tracer:  h.opts.tracer,
		kind:    req.Type,
	}
	dispatchOpts := []dispatch.Option{dispatch.WithLogger(logger)}
	if h.opts.counter != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithTokenCounter(h.opts.counter))
	}

	d, err := dispatch.New(cfg, completer, dispatchOpts...)
	if err != nil {
		h.fail(w, logger, requestID, errors.NewConfigError(requestID, "Invalid prompt configuration", err))
		return
	}

	result, err := d.Dispatch(r.Context(), req.Type, req.Query)
	if err != nil {
		se := asSiftError(err)
		if se.Type == errors.ParseError {
			h.metrics.RecordExtractionFailure(req.Type)
		}
		h.fail(w, logger, requestID, se)
		return
	}

	logger.Debug("Query answered", zap.Int("fields", len(result)))
	h.writeJSON(w, logger, requestID, result)
}

// instrumentedCompleter counts completion calls by outcome and wraps each
// one in a span.
type instrumentedCompleter struct {
	next    dispatch.Completer
	metrics *metrics.Metrics
	tracer  trace.Tracer
	kind    string
}

func (c *instrumentedCompleter) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	ctx, span := c.tracer.Start(ctx, "completion.Complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sift.kind", c.kind),
			attribute.String("sift.model", req.Model),
			attribute.Int("sift.max_tokens", req.MaxTokens),
		),
	)
	defer span.End()

	content, err := c.next.Complete(ctx, req)
	if err != nil {
		c.metrics.RecordUpstream("completion", metrics.OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	c.metrics.RecordUpstream("completion", metrics.OutcomeSuccess)
	span.SetAttributes(attribute.Int("sift.content_length", len(content)))
	return content, nil
}
