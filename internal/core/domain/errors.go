package domain

import (
	"errors"
	"fmt"
)

// DomainError is an error with a stable, machine-readable code.
type DomainError struct {
	Code    string // Error code (e.g., "CRUD-RES-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of the error wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return code == "" || de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from err, or "" if err is not a
// DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Resource errors (RES).
var (
	ErrResourceNotFound = NewDomainError("CRUD-RES-4040", "resource not found")

	// ErrResourceIDExhausted means every generated identifier collided with
	// an existing record.
	ErrResourceIDExhausted = NewDomainError("CRUD-RES-5000", "could not allocate a resource identifier")
)

// Request errors (REQ), raised by the HTTP adapter.
var (
	ErrBadRequest           = NewDomainError("CRUD-REQ-4000", "bad request")
	ErrRouteNotFound        = NewDomainError("CRUD-REQ-4040", "route not found")
	ErrMethodDisabled       = NewDomainError("CRUD-REQ-4050", "method not allowed")
	ErrPayloadTooLarge      = NewDomainError("CRUD-REQ-4130", "request body too large")
	ErrUnsupportedMediaType = NewDomainError("CRUD-REQ-4150", "unsupported media type")
	ErrRateLimited          = NewDomainError("CRUD-REQ-4290", "too many requests")
)

// System errors (SYS).
var (
	ErrInternal           = NewDomainError("CRUD-SYS-5000", "internal server error")
	ErrStorageWrite       = NewDomainError("CRUD-SYS-5001", "storage write failed")
	ErrServiceUnavailable = NewDomainError("CRUD-SYS-5030", "storage unavailable")
)

// Admin errors (ADMIN).
var (
	ErrAdminDisabled   = NewDomainError("CRUD-ADMIN-4040", "admin api disabled")
	ErrBackupInvalid   = NewDomainError("CRUD-ADMIN-4000", "invalid backup stream")
	ErrBackupKeyNeeded = NewDomainError("CRUD-ADMIN-4001", "backup is sealed and no encryption key is configured")
)
