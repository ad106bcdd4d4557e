// Package common provides shared utilities and types used across the
// application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Cache errors.
	ErrNotFound       = errors.New("not found")
	ErrMalformedState = errors.New("malformed sync state")

	// Upstream errors.
	ErrUpstreamConnection = errors.New("upstream connection failed")
	ErrUpstreamRateLimit  = errors.New("upstream rate limit exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError reports client input that cannot be accepted, such as a
// patch that strips a field the upstream write contract requires.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UpstreamError reports a failed call to the remote aggregation service,
// retaining the HTTP status and response body for diagnosis.
type UpstreamError struct {
	Op     string
	Body   string
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %d - %s", e.Op, e.Status, e.Body)
}

// Retryable reports whether the upstream failure is transient. Rate limits
// and server-side errors are worth retrying; client errors are terminal.
func (e *UpstreamError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrUpstreamRateLimit) ||
		errors.Is(err, ErrUpstreamConnection) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Retryable()
	}

	return false
}
