package middleware

type contextKey string

const (
	// RequestIDKey holds the request ID in the request context.
	RequestIDKey contextKey = "request_id"

	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
)
