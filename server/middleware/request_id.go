// Package middleware provides the HTTP middleware chain shared by every
// sift route.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// maxRequestIDLen caps caller-supplied IDs; longer ones are replaced.
const maxRequestIDLen = 128

// RequestID middleware adds a unique request ID to the context
// and sets it in the response header. A well-formed ID sent by the
// caller is reused so client and server logs line up.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.New().String()
			r.Header.Set(RequestIDHeader, requestID)
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		// Printable ASCII only; the value is echoed into headers and logs.
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
