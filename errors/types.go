package errors

import (
	"net/http"
)

// NewError creates a new SiftError with the given parameters.
// It is a general-purpose constructor that allows full control over
// the error's fields. For most cases, you should use one of the
// specialized constructors below.
//
// Example:
//
//	err := NewError(InternalError, "encode failed", 500, "req_123", nil, encErr)
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *SiftError {
	return &SiftError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewConfigError reports a missing credential or setting. It is fatal for
// the invocation and never retried.
//
// Example:
//
//	err := NewConfigError("req_123", "Search credentials not configured", nil)
func NewConfigError(requestID, message string, err error) *SiftError {
	return &SiftError{
		Type:      ConfigError,
		Message:   message,
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}

// NewInvalidRequestError creates a client error for bad input, such as:
//   - an unsupported query type
//   - a body that is not valid JSON
//   - field constraint violations
//
// Example:
//
//	err := NewInvalidRequestError("req_123", "Invalid request type", map[string]interface{}{
//	    "type": "bogus",
//	})
func NewInvalidRequestError(requestID, message string, details map[string]interface{}) *SiftError {
	return &SiftError{
		Type:      InvalidRequestError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		Details:   details,
	}
}

// NewMethodNotAllowedError rejects any method other than the allowed ones.
func NewMethodNotAllowedError(requestID, method string, allowed ...string) *SiftError {
	return &SiftError{
		Type:      InvalidRequestError,
		Message:   "Method not allowed",
		Code:      http.StatusMethodNotAllowed,
		RequestID: requestID,
		Details: map[string]interface{}{
			"method":          method,
			"allowed_methods": allowed,
		},
	}
}

// NewUpstreamError wraps a failed call to an external API. The response
// status mirrors the upstream status when it is an HTTP error code and
// falls back to 500 otherwise (transport failures, malformed replies).
//
// Example:
//
//	err := NewUpstreamError("req_123", "completion", 503, "AI service error", apiErr)
func NewUpstreamError(requestID, service string, upstreamStatus int, message string, err error) *SiftError {
	code := upstreamStatus
	if code < http.StatusBadRequest || code > 599 {
		code = http.StatusInternalServerError
	}
	details := map[string]interface{}{
		"service": service,
	}
	if upstreamStatus != 0 {
		details["upstream_status"] = upstreamStatus
	}
	return &SiftError{
		Type:      UpstreamError,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewCredentialsExhaustedError signals that the caller has walked past the
// last search credential. It is terminal: the caller should stop rotating.
func NewCredentialsExhaustedError(requestID string, keyIndex, poolSize int) *SiftError {
	return &SiftError{
		Type:      CredentialsExhaustedError,
		Message:   "All API keys exhausted",
		Code:      http.StatusTooManyRequests,
		RequestID: requestID,
		Details: map[string]interface{}{
			"key_index": keyIndex,
			"pool_size": poolSize,
		},
	}
}

// NewParseError reports a completion reply with no usable JSON payload.
func NewParseError(requestID string, err error) *SiftError {
	return &SiftError{
		Type:      ParseError,
		Message:   "Could not parse AI response",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}

// NewInternalError creates an internal server error with appropriate defaults.
// Use this for unexpected errors that are not covered by other error types:
//   - Panics
//   - Response encoding failures
//
// Example:
//
//	err := NewInternalError("req_123", encodeErr)
func NewInternalError(requestID string, err error) *SiftError {
	return &SiftError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
