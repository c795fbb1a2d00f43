// ABOUTME: Error taxonomy for the gateway pipeline with stable codes.
// ABOUTME: Every failure a caller can see maps to one of these kinds.

package hooks

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies an error kind. Codes are stable; channel adapters key
// their user-facing translations off them.
type Code string

const (
	CodeAuthenticationFailed Code = "authentication_failed"
	CodeRateLimitExceeded    Code = "rate_limit_exceeded"
	CodeServiceUnavailable   Code = "service_unavailable"
	CodePIIDetected          Code = "pii_detected"
	CodeInternalError        Code = "internal_error"
)

// Error is a pipeline failure carrying a stable code plus kind-specific
// detail. The caller decides whether Message is shown verbatim or
// translated into a channel-specific reply.
type Error struct {
	Code    Code
	Message string

	// RetryAfter, Limit, and Window are set for rate-limit errors.
	RetryAfter time.Duration
	Limit      int
	Window     time.Duration

	// Categories lists the PII categories found, for pii_detected.
	Categories []string

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// AuthenticationFailed builds an authentication error wrapping its cause.
func AuthenticationFailed(message string, cause error) *Error {
	return &Error{Code: CodeAuthenticationFailed, Message: message, cause: cause}
}

// RateLimitExceeded builds a rate-limit error with retry guidance.
func RateLimitExceeded(limit int, window, retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeRateLimitExceeded,
		Message:    fmt.Sprintf("rate limit of %d requests per %s exceeded", limit, window),
		Limit:      limit,
		Window:     window,
		RetryAfter: retryAfter,
	}
}

// ServiceUnavailable builds an error for a down or disabled dependency.
func ServiceUnavailable(message string) *Error {
	return &Error{Code: CodeServiceUnavailable, Message: message}
}

// PIIDetected builds an error naming the PII categories found.
func PIIDetected(categories []string) *Error {
	return &Error{
		Code:       CodePIIDetected,
		Message:    fmt.Sprintf("response blocked, detected: %v", categories),
		Categories: categories,
	}
}

// Internal wraps an unexpected collaborator failure.
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternalError, Message: message, cause: cause}
}

// CodeOf extracts the taxonomy code from err, defaulting to internal_error
// for unclassified failures.
func CodeOf(err error) Code {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Code
	}
	return CodeInternalError
}
