package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionInvalid covers expired, revoked, and unknown sessions alike.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrPolicyNotFound marks a missing policy row. It wraps ErrNotFound so
	// resolution fallthrough and HTTP mapping treat it as an ordinary miss.
	ErrPolicyNotFound = fmt.Errorf("security policy: %w", ErrNotFound)
	// ErrPasswordExpired is returned once an expired password has also used
	// up its grace-login budget.
	ErrPasswordExpired = errors.New("password expired")
	ErrTokenExpired   = errors.New("reset token expired")
	ErrTokenExhausted = errors.New("reset token attempt budget exhausted")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
)

// ValidationError carries the full violation list for a rejected password so
// callers can present every problem at once.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, string(v))
	}
	return "password validation failed: " + strings.Join(parts, ", ")
}

// LockedError carries the lockout horizon so callers can surface it without
// re-querying lockout state.
type LockedError struct {
	LockedUntil time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.LockedUntil.UTC().Format(time.RFC3339))
}
