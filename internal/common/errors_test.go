package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("coa.id", "required for upstream write")

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if vErr.Field != "coa.id" {
		t.Errorf("field = %q, want coa.id", vErr.Field)
	}
	if vErr.Error() != "validation failed for coa.id: required for upstream write" {
		t.Errorf("unexpected message: %s", vErr.Error())
	}
}

func TestUpstreamError_Retryable(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "rate limit", status: 429, retryable: true},
		{name: "server error", status: 500, retryable: true},
		{name: "unavailable", status: 503, retryable: true},
		{name: "bad request", status: 400, retryable: false},
		{name: "not found", status: 404, retryable: false},
		{name: "unprocessable", status: 422, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &UpstreamError{Op: "get transactions", Status: tt.status}
			if got := err.Retryable(); got != tt.retryable {
				t.Errorf("Retryable() for %d = %v, want %v", tt.status, got, tt.retryable)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "connection failure", err: fmt.Errorf("%w: dial tcp", ErrUpstreamConnection), want: true},
		{name: "rate limit sentinel", err: ErrUpstreamRateLimit, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "wrapped upstream 503", err: fmt.Errorf("sync: %w", &UpstreamError{Status: 503}), want: true},
		{name: "wrapped upstream 404", err: fmt.Errorf("sync: %w", &UpstreamError{Status: 404}), want: false},
		{name: "not found", err: ErrNotFound, want: false},
		{name: "arbitrary", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
