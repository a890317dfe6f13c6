// Package errors provides error response utilities.
package errors

import (
	"errors"
)

// ErrorResponse is the decoded form of the envelope written by WriteError.
// Tests and Go clients decode into it.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Type      ErrorType              `json:"type"`
	RequestID string                 `json:"request_id"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// As is a wrapper around errors.As for better error type assertion
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is a wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
