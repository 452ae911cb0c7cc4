package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account holds the credential state this engine owns for one identity.
// Identity and organization data live elsewhere; both IDs are opaque here.
type Account struct {
	UserID            uuid.UUID
	TenantID          uuid.UUID
	Email             string
	PasswordHash      string
	PasswordChangedAt *time.Time
	PasswordExpiresAt *time.Time
	GraceLoginsUsed   int
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LoginAttempt is an immutable, append-only authentication outcome record.
// Attempts against unknown emails keep a nil UserID so rate visibility does
// not leak account existence.
type LoginAttempt struct {
	ID            int64
	UserID        *uuid.UUID
	Email         string
	Success       bool
	FailureReason string
	IPAddress     string
	UserAgent     string
	CreatedAt     time.Time
}

// AccountLockout records one lockout episode. Rows are never deleted;
// unlocking sets UnlockedAt so the history stays auditable.
type AccountLockout struct {
	LockoutID    uuid.UUID
	UserID       uuid.UUID
	LockedAt     time.Time
	LockedUntil  time.Time
	Reason       string
	AttemptCount int
	UnlockedAt   *time.Time
	UnlockedBy   *uuid.UUID
}

// IsActive reports whether the lockout still blocks authentication at now.
func (l AccountLockout) IsActive(now time.Time) bool {
	return l.UnlockedAt == nil && l.LockedUntil.After(now)
}

// UserSession is one issued login session. JTI is unique and is the external
// correlation key to the credential token.
type UserSession struct {
	SessionID         uuid.UUID
	UserID            uuid.UUID
	JTI               string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	AbsoluteExpiresAt time.Time
	LastActivityAt    time.Time
	DeviceID          *string
	IPAddress         string
	UserAgent         string
	RevokedAt         *time.Time
}

// IsActive requires both expiry clocks to be in the future and no revocation.
func (s UserSession) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt) && now.Before(s.AbsoluteExpiresAt)
}

// PasswordHistory is an append-only historical hash; the history service
// prunes rows past the policy's history count.
type PasswordHistory struct {
	ID           int64
	UserID       uuid.UUID
	PasswordHash string
	CreatedAt    time.Time
}

// PasswordResetToken is a one-time recovery credential, stored hashed.
type PasswordResetToken struct {
	TokenID      uuid.UUID
	UserID       uuid.UUID
	TokenHash    string
	ExpiresAt    time.Time
	UsedAt       *time.Time
	AttemptCount int
	CreatedAt    time.Time
}

// IsValid applies the full validity predicate, including the attempt budget.
func (t PasswordResetToken) IsValid(now time.Time, maxAttempts int) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt) && t.AttemptCount < maxAttempts
}

// PasswordExpiryState classifies an account's password age against policy.
type PasswordExpiryState string

const (
	PasswordCurrent  PasswordExpiryState = "CURRENT"
	PasswordExpiring PasswordExpiryState = "EXPIRING"
	PasswordExpired  PasswordExpiryState = "EXPIRED"
)

// PasswordExpiry evaluates the account's password age. Accounts that never
// went through a change under this engine (PasswordChangedAt nil) are
// grandfathered: they are never reported expired, the clock starts at their
// next change.
func (a Account) PasswordExpiry(rules PasswordRules, now time.Time) PasswordExpiryState {
	if !rules.ExpirationEnabled() || a.PasswordChangedAt == nil || a.PasswordExpiresAt == nil {
		return PasswordCurrent
	}
	if !now.Before(*a.PasswordExpiresAt) {
		return PasswordExpired
	}
	if rules.WarningDays > 0 && now.Add(time.Duration(rules.WarningDays)*24*time.Hour).After(*a.PasswordExpiresAt) {
		return PasswordExpiring
	}
	return PasswordCurrent
}
