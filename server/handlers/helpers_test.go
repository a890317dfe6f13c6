package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/errors"
	"github.com/teilomillet/sift/server/middleware"
)

// fakeUpstream is an httptest server standing in for the completion or
// search API. It counts every request it receives.
type fakeUpstream struct {
	*httptest.Server
	calls int32
}

func newFakeUpstream(t *testing.T, handler http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) Calls() int {
	return int(atomic.LoadInt32(&f.calls))
}

func completionReply(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "llama-3.3-70b-versatile",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		})
	}
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

// serve runs h behind the RequestID middleware so responses carry an ID.
func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.RequestIDHeader, "test-123")
	rec := httptest.NewRecorder()
	middleware.RequestID(h).ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func staticConfig(mutate func(*config.Config)) config.Watcher {
	cfg := config.DefaultConfig()
	mutate(cfg)
	return config.NewStaticWatcher(cfg)
}
