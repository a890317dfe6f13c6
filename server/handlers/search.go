package handlers

import (
	"context"
	"net/http"

	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/errors"
	"github.com/teilomillet/sift/server/metrics"
	"github.com/teilomillet/sift/server/provider"
	"github.com/teilomillet/sift/server/search"
	"github.com/teilomillet/sift/server/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/api/customsearch/v1"
)

// SearchHandler serves one page of web search with caller-driven key
// rotation.
type SearchHandler struct {
	base
	opts options
}

// NewSearchHandler creates a search handler reading configuration from watcher.
func NewSearchHandler(watcher config.Watcher, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *SearchHandler {
	return &SearchHandler{
		base: base{watcher: watcher, metrics: m, logger: logger},
		opts: buildOptions(opts),
	}
}

func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger, requestID := h.requestLogger(r)
	if !h.requirePost(w, r, logger, requestID) {
		return
	}

	req := search.DefaultRequest()
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, logger, requestID, err)
		return
	}
	logger = logger.With(zap.Int("key_index", req.KeyIndex))

	cfg := h.watcher.GetCurrentConfig().Search

	client, err := provider.NewSearchClient(r.Context(), cfg, h.opts.httpClient)
	if err != nil {
		h.fail(w, logger, requestID, errors.NewInternalError(requestID, err))
		return
	}

	rotator := search.NewRotator(cfg, &instrumentedSearcher{
		next:     client,
		metrics:  h.metrics,
		tracer:   h.opts.tracer,
		keyIndex: req.KeyIndex,
	}, logger)
	outcome, err := rotator.Search(r.Context(), req)
	if err != nil {
		h.fail(w, logger, requestID, asSiftError(err))
		return
	}

	if outcome.Signal != nil {
		h.metrics.RecordRotation(outcome.KeyIndex)
	}
	h.writeJSON(w, logger, requestID, outcome.Body())
}

// instrumentedSearcher counts search calls by outcome and wraps each one
// in a span. The key itself never reaches the span; its index does.
type instrumentedSearcher struct {
	next     search.Searcher
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	keyIndex int
}

func (s *instrumentedSearcher) Search(ctx context.Context, apiKey string, req provider.SearchRequest) (*customsearch.Search, error) {
	ctx, span := s.tracer.Start(ctx, "search.Search",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("sift.key_index", s.keyIndex),
			attribute.Int("sift.start", req.Start),
			attribute.Int("sift.num", req.Num),
		),
	)
	defer span.End()

	res, err := s.next.Search(ctx, apiKey, req)
	switch {
	case err == nil:
		s.metrics.RecordUpstream("search", metrics.OutcomeSuccess)
	case search.IsQuotaError(err):
		s.metrics.RecordUpstream("search", metrics.OutcomeRateLimited)
		span.SetAttributes(attribute.Bool("sift.rate_limited", true))
	default:
		s.metrics.RecordUpstream("search", metrics.OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
	}
	return res, err
}
