package llm

import (
	"errors"
	"fmt"
	"time"
)

// Error represents a backend-neutral language model error.
type Error struct {
	Kind       ErrorKind
	Message    string
	Retryable  bool
	RetryAfter *time.Duration
	StatusCode int
	Cause      error // Original backend-specific error
}

// ErrorKind represents the category of error.
type ErrorKind string

const (
	// ErrorKindAuthenticationRequired means the provider has no reachable
	// backend or an empty model set; the caller must authenticate first.
	ErrorKindAuthenticationRequired ErrorKind = "authentication_required"
	// ErrorKindBackendUnreachable is a transport failure, retryable by the caller.
	ErrorKindBackendUnreachable ErrorKind = "backend_unreachable"
	// ErrorKindTimeout is a stall exceeding the configured low-activity
	// window, retryable by the caller.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindUnsupportedOperation means the backend does not implement the
	// requested operation (e.g. tool calling).
	ErrorKindUnsupportedOperation ErrorKind = "unsupported_operation"
	// ErrorKindSchemaViolation means backend output did not parse against the
	// requested schema.
	ErrorKindSchemaViolation ErrorKind = "schema_violation"
	// ErrorKindInvalidResponse is a malformed backend payload.
	ErrorKindInvalidResponse ErrorKind = "invalid_response"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying backend error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the ErrorKind of an error, or "" if it is not an llm.Error.
func KindOf(err error) ErrorKind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return ""
}

// IsAuthenticationRequired checks if an error is an authentication-required error.
func IsAuthenticationRequired(err error) bool {
	return KindOf(err) == ErrorKindAuthenticationRequired
}

// IsTimeout checks if an error is a low-activity timeout error.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrorKindTimeout
}

// IsUnsupportedOperation checks if an error is an unsupported-operation error.
func IsUnsupportedOperation(err error) bool {
	return KindOf(err) == ErrorKindUnsupportedOperation
}

// IsSchemaViolation checks if an error is a schema-violation error.
func IsSchemaViolation(err error) bool {
	return KindOf(err) == ErrorKindSchemaViolation
}

// IsRetryableError checks if an error is retryable by the caller.
// The core performs no implicit retries; see RetryBackoff.
func IsRetryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// ExtractRetryAfter extracts the retry-after duration from an error, if the
// backend reported one.
func ExtractRetryAfter(err error) *time.Duration {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return nil
}

// NewAuthenticationRequiredError creates an error for a provider with no
// usable backend or credentials.
func NewAuthenticationRequiredError(provider ProviderName) *Error {
	return &Error{
		Kind:    ErrorKindAuthenticationRequired,
		Message: fmt.Sprintf("%s is not authenticated", provider),
	}
}

// NewBackendUnreachableError creates a retryable transport-failure error.
func NewBackendUnreachableError(message string, cause error) *Error {
	return &Error{
		Kind:      ErrorKindBackendUnreachable,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewTimeoutError creates a retryable low-activity timeout error.
func NewTimeoutError(message string, cause error) *Error {
	return &Error{
		Kind:      ErrorKindTimeout,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewUnsupportedOperationError creates an error for an operation the backend
// does not implement.
func NewUnsupportedOperationError(provider ProviderName, operation string) *Error {
	return &Error{
		Kind:    ErrorKindUnsupportedOperation,
		Message: fmt.Sprintf("%s does not support %s", provider, operation),
	}
}

// NewSchemaViolationError creates an error for backend output that does not
// parse against the requested schema.
func NewSchemaViolationError(toolName string, cause error) *Error {
	return &Error{
		Kind:    ErrorKindSchemaViolation,
		Message: fmt.Sprintf("tool %s returned output violating its schema", toolName),
		Cause:   cause,
	}
}

// NewInvalidResponseError creates an error for a malformed backend payload.
func NewInvalidResponseError(message string, cause error) *Error {
	return &Error{
		Kind:    ErrorKindInvalidResponse,
		Message: message,
		Cause:   cause,
	}
}
