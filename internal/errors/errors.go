// Package errors provides structured error types for the company backend.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoProject     = errors.New("no current project")
	ErrNotApproved   = errors.New("project not approved")
	ErrMissingQuery  = errors.New("missing query parameter")
	ErrEmptyBody     = errors.New("no JSON data provided")
	ErrNotConfigured = errors.New("integration not configured")
)

// APIError represents an error from an external API call.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// IsPrecondition reports whether err is a workflow precondition failure
// rather than an unexpected error. Precondition failures are returned to
// HTTP clients as structured domain errors, not 500s.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoProject) || errors.Is(err, ErrNotApproved)
}
