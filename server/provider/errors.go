package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCompletion means the completion API answered 2xx but without
	// a first choice to read.
	ErrEmptyCompletion = errors.New("completion response has no choices")
)

// StatusError is a non-success answer from an upstream API. Reasons holds
// the machine-readable reason codes the upstream attached, if any.
type StatusError struct {
	Service    string
	StatusCode int
	Message    string
	Reasons    []string

	err error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Service, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.err
}

// HasReason reports whether the upstream attached the given reason code.
func (e *StatusError) HasReason(reason string) bool {
	for _, r := range e.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}
