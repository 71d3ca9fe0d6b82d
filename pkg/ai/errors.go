package ai

import (
	"errors"
	"fmt"
)

// TransientReason distinguishes retryable failure causes.
type TransientReason string

const (
	// TransientRateLimited indicates the provider rejected the call for rate limiting.
	TransientRateLimited TransientReason = "rate_limited"
	// TransientTimeout indicates the call timed out or the provider was unavailable.
	TransientTimeout TransientReason = "timeout"
)

// TerminalKind distinguishes non-retryable failure causes.
type TerminalKind string

const (
	// TerminalSchemaViolation indicates the model response did not satisfy the grading schema.
	TerminalSchemaViolation TerminalKind = "schema_violation"
	// TerminalAuth indicates the provider rejected the credentials.
	TerminalAuth TerminalKind = "auth_error"
)

// TransientError wraps a failure worth retrying with the identical request.
type TransientError struct {
	Reason TransientReason
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient grading error (%s): %v", e.Reason, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// TerminalError wraps a failure that retrying the same request cannot fix.
type TerminalError struct {
	Kind TerminalKind
	Err  error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("terminal grading error (%s): %v", e.Kind, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable grading failure.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsSchemaViolation reports whether err is a terminal schema violation. Schema
// violations are still eligible for retry: a malformed response from one call
// says nothing about the next.
func IsSchemaViolation(err error) bool {
	var terminal *TerminalError
	return errors.As(err, &terminal) && terminal.Kind == TerminalSchemaViolation
}
