package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "without details",
			err:      NewDomainError("CRUD-TEST-1000", "test message"),
			expected: "[CRUD-TEST-1000] test message",
		},
		{
			name:     "with details",
			err:      NewDomainError("CRUD-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[CRUD-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	a := NewDomainError("CRUD-TEST-1000", "message 1")
	b := NewDomainError("CRUD-TEST-1000", "message 2")
	c := NewDomainError("CRUD-TEST-1001", "message 1")

	if !errors.Is(a, b) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(a, c) {
		t.Error("errors.Is should not match a different code")
	}
	if errors.Is(a, fmt.Errorf("some error")) {
		t.Error("errors.Is should not match a non-DomainError")
	}
}

func TestDomainError_CopyOnWrite(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := ErrResourceNotFound.WithDetails("id=abc").WithCause(cause)

	if ErrResourceNotFound.Details != "" || ErrResourceNotFound.Cause != nil {
		t.Fatal("With* must not modify the shared sentinel")
	}
	if err.Code != ErrResourceNotFound.Code || err.Details != "id=abc" {
		t.Errorf("got %+v", err)
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap() should return the cause")
	}
	if !errors.Is(err, ErrResourceNotFound) {
		t.Error("errors.Is should survive chaining")
	}
}

func TestIsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", ErrResourceNotFound)

	if !IsDomainError(wrapped, "CRUD-RES-4040") {
		t.Error("IsDomainError should see through wrapping")
	}
	if !IsDomainError(wrapped, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
	if IsDomainError(wrapped, "CRUD-RES-9999") {
		t.Error("IsDomainError should not match a different code")
	}
	if IsDomainError(fmt.Errorf("plain"), "") {
		t.Error("IsDomainError should not match a plain error")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrStorageWrite, "CRUD-SYS-5001"},
		{"wrapped", fmt.Errorf("w: %w", ErrUnsupportedMediaType), "CRUD-REQ-4150"},
		{"plain", fmt.Errorf("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	all := []*DomainError{
		ErrResourceNotFound, ErrResourceIDExhausted,
		ErrBadRequest, ErrRouteNotFound, ErrMethodDisabled, ErrPayloadTooLarge,
		ErrUnsupportedMediaType, ErrRateLimited,
		ErrInternal, ErrStorageWrite, ErrServiceUnavailable,
		ErrAdminDisabled, ErrBackupInvalid, ErrBackupKeyNeeded,
	}

	seen := make(map[string]bool)
	for _, err := range all {
		t.Run(err.Code, func(t *testing.T) {
			if !strings.HasPrefix(err.Code, "CRUD-") {
				t.Errorf("code %q lacks CRUD- prefix", err.Code)
			}
			if seen[err.Code] {
				t.Errorf("duplicate code %q", err.Code)
			}
			seen[err.Code] = true
			if err.Message == "" {
				t.Error("message should not be empty")
			}
		})
	}
}
