package errors

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// ErrorHandler wraps an http.Handler and converts panics into an
// InternalError envelope.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := w.Header().Get("X-Request-ID")
					logger.Error("panic recovered",
						zap.Any("error", err),
						zap.ByteString("stacktrace", debug.Stack()),
						zap.String("request_id", requestID),
					)
					WriteError(w, NewInternalError(requestID, nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// LogError logs an error with its context. Client errors are logged at warn,
// everything else at error.
func LogError(logger *zap.Logger, err error, requestID string) {
	var siftErr *SiftError
	if !As(err, &siftErr) {
		logger.Error("unexpected error",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		return
	}

	fields := []zap.Field{
		zap.String("error_type", string(siftErr.Type)),
		zap.String("message", siftErr.Message),
		zap.Int("code", siftErr.Code),
		zap.String("request_id", requestID),
		zap.Any("details", siftErr.Details),
	}
	if siftErr.err != nil {
		fields = append(fields, zap.NamedError("cause", siftErr.err))
	}
	if siftErr.Code >= 400 && siftErr.Code < 500 {
		logger.Warn("request error", fields...)
		return
	}
	logger.Error("request error", fields...)
}
