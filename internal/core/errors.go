package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation  ErrorCategory = "validation"  // Invalid configuration, rejected before any attempt
	ErrCatSpawn       ErrorCategory = "spawn"       // Child or tracer could not be started
	ErrCatPermission  ErrorCategory = "permission"  // Privileged counter could not be read
	ErrCatIO          ErrorCategory = "io"          // Diagnostic file could not be written
	ErrCatInterrupted ErrorCategory = "interrupted" // Operator signal requested early finalize
	ErrCatInternal    ErrorCategory = "internal"    // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
	Details  map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates an invalid configuration error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatValidation,
		Code:     code,
		Message:  message,
	}
}

// ErrSpawn creates a spawn failure error.
func ErrSpawn(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatSpawn,
		Code:     code,
		Message:  message,
	}
}

// ErrPermission creates a permission denied error.
func ErrPermission(subject string) *DomainError {
	return &DomainError{
		Category: ErrCatPermission,
		Code:     CodePermissionDenied,
		Message:  fmt.Sprintf("reading %s counters requires elevated privilege", subject),
	}
}

// ErrIO creates a diagnostic I/O failure error.
func ErrIO(path string) *DomainError {
	return &DomainError{
		Category: ErrCatIO,
		Code:     CodeWriteFailed,
		Message:  fmt.Sprintf("writing %s", path),
		Details:  map[string]interface{}{"path": path},
	}
}

// ErrInterrupted creates an error signalling an operator interrupt.
func ErrInterrupted(signal string) *DomainError {
	return &DomainError{
		Category: ErrCatInterrupted,
		Code:     CodeInterrupted,
		Message:  fmt.Sprintf("session interrupted by %s", signal),
	}
}

// ErrInternal creates an unexpected internal error.
func ErrInternal(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatInternal,
		Code:     code,
		Message:  message,
	}
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsValidation reports whether err is an invalid configuration error.
func IsValidation(err error) bool { return err != nil && IsCategory(err, ErrCatValidation) }

// IsSpawn reports whether err is a spawn failure.
func IsSpawn(err error) bool { return err != nil && IsCategory(err, ErrCatSpawn) }

// IsPermission reports whether err is a permission failure.
func IsPermission(err error) bool { return err != nil && IsCategory(err, ErrCatPermission) }

// Predefined error codes
const (
	// Validation error codes
	CodeInvalidCount       = "INVALID_COUNT"
	CodeInvalidFailedCount = "INVALID_FAILED_COUNT"
	CodeEmptyCommand       = "EMPTY_COMMAND"
	CodeInvalidConfig      = "INVALID_CONFIG"

	// Spawn error codes
	CodeChildSpawnFailed  = "CHILD_SPAWN_FAILED"
	CodeTracerSpawnFailed = "TRACER_SPAWN_FAILED"
	CodePreflightFailed   = "PREFLIGHT_FAILED"

	// Recovered locally
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeWriteFailed      = "WRITE_FAILED"

	CodeInterrupted   = "INTERRUPTED"
	CodeAttemptPanic  = "ATTEMPT_PANIC"
	CodeSessionSealed = "SESSION_SEALED"
)
