package shared

import (
	"errors"
	"fmt"
)

// Error codes shared across the approval domain. HTTP handlers map these
// codes to transport status codes.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeUnauthorizedRole  = "UNAUTHORIZED_ROLE"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConcurrency       = "CONCURRENCY_CONFLICT"
	CodeStorageFailure    = "STORAGE_FAILURE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrForbidden) matches any forbidden error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps the underlying cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrValidation          = NewDomainError(CodeValidation, "Validation failed")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrUnauthorizedRole    = NewDomainError(CodeUnauthorizedRole, "Role is not allowed to perform this action")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Transition is not allowed from the current state")
	ErrStorageFailure      = NewDomainError(CodeStorageFailure, "Storage backend is unavailable")
)

// NewNotFoundError builds a not-found error naming the resource
func NewNotFoundError(resource string, id fmt.Stringer) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

// NewValidationError builds a validation error with a formatted message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewForbiddenError builds a forbidden error with a formatted message
func NewForbiddenError(format string, args ...any) *DomainError {
	return NewDomainError(CodeForbidden, fmt.Sprintf(format, args...))
}

// NewUnauthorizedRoleError builds a role-mismatch error with a formatted message
func NewUnauthorizedRoleError(format string, args ...any) *DomainError {
	return NewDomainError(CodeUnauthorizedRole, fmt.Sprintf(format, args...))
}

// NewInvalidTransitionError builds an invalid-transition error with a formatted message
func NewInvalidTransitionError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidTransition, fmt.Sprintf(format, args...))
}

// NewStorageError wraps an infrastructure error as a retryable storage failure
func NewStorageError(op string, cause error) *DomainError {
	return WrapDomainError(CodeStorageFailure, fmt.Sprintf("storage failure during %s", op), cause)
}

// IsCode reports whether err is a DomainError carrying code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
