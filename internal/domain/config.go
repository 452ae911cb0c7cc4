package domain

import (
	"time"

	"github.com/google/uuid"
)

// LockoutType selects how lockout duration is computed once the failure
// threshold is crossed.
type LockoutType string

const (
	LockoutFixed       LockoutType = "FIXED"
	LockoutProgressive LockoutType = "PROGRESSIVE"
)

// PasswordRules is the effective password sub-policy for one tenant.
type PasswordRules struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSpecial   bool
	MinUniqueChars   int
	MaxRepeatRun     int
	HistoryCount     int
	ExpirationDays   int
	WarningDays      int
	GraceLogins      int
}

// ExpirationEnabled reports whether password-age enforcement is on at all.
func (p PasswordRules) ExpirationEnabled() bool { return p.ExpirationDays > 0 }

// LockoutRules is the effective failed-login sub-policy for one tenant.
type LockoutRules struct {
	MaxAttempts         int
	LockoutDurationMin  int
	LockoutType         LockoutType
	ResetAttemptsAfter  time.Duration
	ProgressiveTiersMin []int
}

// DurationFor computes the lockout duration for the given occurrence number
// (1-based count of lockout episodes for the user, prior rows plus one).
// Progressive durations walk the tier ladder and saturate at the final tier,
// so the function is total and never grows unbounded. Fixed policies ignore
// the occurrence entirely.
func (r LockoutRules) DurationFor(occurrence int) time.Duration {
	if occurrence < 1 {
		occurrence = 1
	}
	if r.LockoutType != LockoutProgressive || len(r.ProgressiveTiersMin) == 0 {
		return time.Duration(r.LockoutDurationMin) * time.Minute
	}
	tiers := r.ProgressiveTiersMin
	if occurrence > len(tiers) {
		occurrence = len(tiers)
	}
	return time.Duration(tiers[occurrence-1]) * time.Minute
}

// SessionRules is the effective session sub-policy for one tenant.
type SessionRules struct {
	IdleTimeout               time.Duration
	AbsoluteTimeout           time.Duration
	MaxConcurrentSessions     int
	TerminateOnPasswordChange bool
}

// ResetRules is the effective password-reset sub-policy for one tenant.
type ResetRules struct {
	TokenTTL    time.Duration
	MaxAttempts int
}

// SecurityConfig is the merged effective policy for one tenant at one instant.
// It is immutable once resolved; callers re-resolve per request or cache it
// with a short TTL.
type SecurityConfig struct {
	TenantID   uuid.UUID
	Password   PasswordRules
	Lockout    LockoutRules
	Session    SessionRules
	Reset      ResetRules
	ResolvedAt time.Time
}

// CodeDefaultPolicy is the last tier of the override chain. Every field is
// populated so resolution always succeeds even on a fresh deployment with
// no policy rows and no deployment config.
func CodeDefaultPolicy() SecurityPolicy {
	return SecurityPolicy{
		MinLength:                 intp(12),
		MaxLength:                 intp(128),
		RequireUppercase:          boolp(true),
		RequireLowercase:          boolp(true),
		RequireDigit:              boolp(true),
		RequireSpecial:            boolp(true),
		MinUniqueChars:            intp(5),
		MaxRepeatRun:              intp(3),
		HistoryCount:              intp(5),
		ExpirationDays:            intp(90),
		WarningDays:               intp(14),
		GraceLogins:               intp(3),
		MaxAttempts:               intp(5),
		LockoutDurationMin:        intp(30),
		LockoutType:               lockoutTypep(LockoutProgressive),
		ResetAttemptsAfterMin:     intp(15),
		ProgressiveTiersMin:       []int{5, 15, 60, 1440},
		ResetTokenTTLMin:          intp(60),
		ResetMaxAttempts:          intp(5),
		SessionIdleTimeoutMin:     intp(30),
		SessionAbsoluteTimeoutMin: intp(720),
		MaxConcurrentSessions:     intp(5),
		TerminateOnPasswordChange: boolp(true),
	}
}

func intp(v int) *int                       { return &v }
func boolp(v bool) *bool                    { return &v }
func lockoutTypep(v LockoutType) *LockoutType { return &v }
