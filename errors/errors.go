// Package errors provides the error envelope used by every sift endpoint.
// It includes structured error types, JSON response formatting, request ID
// tracking, and integrated logging with Uber's zap logger.
//
// Every failure a handler can produce is a *SiftError carrying one of the
// ErrorType values below. Handlers never write ad-hoc error bodies; they
// build a SiftError with one of the constructors in types.go and hand it to
// WriteError, so clients always see the same shape:
//
//	{"error": "All API keys exhausted", "type": "credentials_exhausted", "request_id": "..."}
//
// Basic usage:
//
//	errors.WriteError(w, errors.NewConfigError(requestID, "API key not configured", nil))
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorType names a category in the sift error taxonomy. The category,
// not the message, is what clients should branch on.
type ErrorType string

const (
	// ConfigError means a required credential or setting is absent.
	ConfigError ErrorType = "config_error"

	// InvalidRequestError covers unsupported query types, malformed bodies
	// and wrong HTTP methods.
	InvalidRequestError ErrorType = "invalid_request"

	// UpstreamError is a non-success answer from the completion or search
	// API that is not a recognized quota condition.
	UpstreamError ErrorType = "upstream_error"

	// CredentialsExhaustedError means the caller's keyIndex is past the end
	// of the search credential pool. Callers should stop rotating.
	CredentialsExhaustedError ErrorType = "credentials_exhausted"

	// ParseError means the completion reply held no extractable JSON.
	ParseError ErrorType = "parse_error"

	// InternalError represents unexpected internal server errors
	InternalError ErrorType = "internal_error"
)

// SiftError implements the error interface and carries everything needed to
// render the JSON envelope. Code and the wrapped error stay out of the body.
type SiftError struct {
	// Message is the human-readable description. It is serialized under
	// "error" so existing clients reading body.error keep working.
	Message string `json:"error"`

	// Type categorizes the error for client handling
	Type ErrorType `json:"type"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a specific request
	RequestID string `json:"request_id,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	err error
}

// Error implements the error interface.
func (e *SiftError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *SiftError) Unwrap() error {
	return e.err
}

// Is matches on Type only, so errors.Is(err, &SiftError{Type: ParseError})
// works regardless of message or request.
func (e *SiftError) Is(target error) bool {
	t, ok := target.(*SiftError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithRequestID returns a copy of e stamped with the given request ID.
// Core packages build errors without knowing the request; handlers stamp
// them at the boundary.
func (e *SiftError) WithRequestID(requestID string) *SiftError {
	cp := *e
	cp.RequestID = requestID
	return &cp
}

// WriteError formats and writes a SiftError to an http.ResponseWriter.
func WriteError(w http.ResponseWriter, err *SiftError) {
	if err.RequestID == "" {
		err.RequestID = w.Header().Get("X-Request-ID")
	}
	code := err.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(err)
}
