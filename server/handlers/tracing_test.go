package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/server/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func newRecordingTracer(t *testing.T) (Option, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return WithTracer(tp.Tracer(TracerName)), exporter
}

func spanAttrs(kvs []attribute.KeyValue) map[string]interface{} {
	out := make(map[string]interface{}, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func TestQueryHandlerTracesCompletion(t *testing.T) {
	upstream := newFakeUpstream(t, completionReply(`{"safe": false}`))
	tracer, exporter := newRecordingTracer(t)
	h, _ := newQueryHandler(t, upstream, "gsk-test", tracer)

	rec := serve(h, http.MethodPost, "/v1/query", `{"type": "safety", "query": "x"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "completion.Complete", spans[0].Name)
	attrs := spanAttrs(spans[0].Attributes)
	assert.Equal(t, "safety", attrs["sift.kind"])
	assert.Equal(t, int64(50), attrs["sift.max_tokens"])
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestQueryHandlerTracesCompletionFailure(t *testing.T) {
	upstream := newFakeUpstream(t, jsonReply(http.StatusBadGateway, `{"error": {"message": "down"}}`))
	tracer, exporter := newRecordingTracer(t)
	h, _ := newQueryHandler(t, upstream, "gsk-test", tracer)

	rec := serve(h, http.MethodPost, "/v1/query", `{"type": "answer", "query": "x"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestQueryHandlerNoSpanWithoutCall(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)
	h, _ := newQueryHandler(t, nil, "gsk-test", tracer)

	rec := serve(h, http.MethodPost, "/v1/query", `{"type": "weather", "query": "x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, exporter.GetSpans())
}

func TestSearchHandlerTracesRotation(t *testing.T) {
	upstream := newFakeUpstream(t, jsonReply(http.StatusTooManyRequests, searchQuota))
	tracer, exporter := newRecordingTracer(t)
	watcher := staticConfig(func(c *config.Config) {
		c.Search.APIKeys = []string{"k0", "k1"}
		c.Search.EngineID = "cx"
		c.Search.Endpoint = upstream.URL + "/"
	})
	h := NewSearchHandler(watcher, metrics.NewMetrics(), zaptest.NewLogger(t),
		WithHTTPClient(upstream.Client()), tracer)

	rec := serve(h, http.MethodPost, "/v1/search", `{"query": "go", "keyIndex": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "search.Search", spans[0].Name)
	attrs := spanAttrs(spans[0].Attributes)
	assert.Equal(t, int64(1), attrs["sift.key_index"])
	assert.Equal(t, int64(10), attrs["sift.num"])
	assert.Equal(t, true, attrs["sift.rate_limited"])
	for _, kv := range spans[0].Attributes {
		assert.NotEqual(t, "k1", kv.Value.Emit(), "api key leaked into span")
	}
}
