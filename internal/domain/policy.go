package domain

import (
	"time"

	"github.com/google/uuid"
)

// SecurityPolicy is one persisted layer of the override chain. A nil TenantID
// marks the system-default row; a nil field means "inherit from the next
// layer". At most one row per tenant value is active at a time. Rows are
// deactivated rather than deleted so policy history stays auditable.
type SecurityPolicy struct {
	PolicyID uuid.UUID
	TenantID *uuid.UUID

	MinLength        *int
	MaxLength        *int
	RequireUppercase *bool
	RequireLowercase *bool
	RequireDigit     *bool
	RequireSpecial   *bool
	MinUniqueChars   *int
	MaxRepeatRun     *int
	HistoryCount     *int
	ExpirationDays   *int
	WarningDays      *int
	GraceLogins      *int

	MaxAttempts           *int
	LockoutDurationMin    *int
	LockoutType           *LockoutType
	ResetAttemptsAfterMin *int
	ProgressiveTiersMin   []int

	ResetTokenTTLMin *int
	ResetMaxAttempts *int

	SessionIdleTimeoutMin     *int
	SessionAbsoluteTimeoutMin *int
	MaxConcurrentSessions     *int
	TerminateOnPasswordChange *bool

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResolveSecurityConfig merges an ordered list of policy layers, first
// non-nil wins per field. Layers are ordered most-specific first; the caller
// appends CodeDefaultPolicy last so every field is guaranteed a value.
func ResolveSecurityConfig(tenantID uuid.UUID, now time.Time, layers ...SecurityPolicy) SecurityConfig {
	var tiers []int
	for _, l := range layers {
		if len(l.ProgressiveTiersMin) > 0 {
			tiers = l.ProgressiveTiersMin
			break
		}
	}

	return SecurityConfig{
		TenantID: tenantID,
		Password: PasswordRules{
			MinLength:        pickInt(layers, func(p SecurityPolicy) *int { return p.MinLength }),
			MaxLength:        pickInt(layers, func(p SecurityPolicy) *int { return p.MaxLength }),
			RequireUppercase: pickBool(layers, func(p SecurityPolicy) *bool { return p.RequireUppercase }),
			RequireLowercase: pickBool(layers, func(p SecurityPolicy) *bool { return p.RequireLowercase }),
			RequireDigit:     pickBool(layers, func(p SecurityPolicy) *bool { return p.RequireDigit }),
			RequireSpecial:   pickBool(layers, func(p SecurityPolicy) *bool { return p.RequireSpecial }),
			MinUniqueChars:   pickInt(layers, func(p SecurityPolicy) *int { return p.MinUniqueChars }),
			MaxRepeatRun:     pickInt(layers, func(p SecurityPolicy) *int { return p.MaxRepeatRun }),
			HistoryCount:     pickInt(layers, func(p SecurityPolicy) *int { return p.HistoryCount }),
			ExpirationDays:   pickInt(layers, func(p SecurityPolicy) *int { return p.ExpirationDays }),
			WarningDays:      pickInt(layers, func(p SecurityPolicy) *int { return p.WarningDays }),
			GraceLogins:      pickInt(layers, func(p SecurityPolicy) *int { return p.GraceLogins }),
		},
		Lockout: LockoutRules{
			MaxAttempts:         pickInt(layers, func(p SecurityPolicy) *int { return p.MaxAttempts }),
			LockoutDurationMin:  pickInt(layers, func(p SecurityPolicy) *int { return p.LockoutDurationMin }),
			LockoutType:         pickLockoutType(layers, func(p SecurityPolicy) *LockoutType { return p.LockoutType }),
			ResetAttemptsAfter:  time.Duration(pickInt(layers, func(p SecurityPolicy) *int { return p.ResetAttemptsAfterMin })) * time.Minute,
			ProgressiveTiersMin: tiers,
		},
		Session: SessionRules{
			IdleTimeout:               time.Duration(pickInt(layers, func(p SecurityPolicy) *int { return p.SessionIdleTimeoutMin })) * time.Minute,
			AbsoluteTimeout:           time.Duration(pickInt(layers, func(p SecurityPolicy) *int { return p.SessionAbsoluteTimeoutMin })) * time.Minute,
			MaxConcurrentSessions:     pickInt(layers, func(p SecurityPolicy) *int { return p.MaxConcurrentSessions }),
			TerminateOnPasswordChange: pickBool(layers, func(p SecurityPolicy) *bool { return p.TerminateOnPasswordChange }),
		},
		Reset: ResetRules{
			TokenTTL:    time.Duration(pickInt(layers, func(p SecurityPolicy) *int { return p.ResetTokenTTLMin })) * time.Minute,
			MaxAttempts: pickInt(layers, func(p SecurityPolicy) *int { return p.ResetMaxAttempts }),
		},
		ResolvedAt: now,
	}
}

func pickInt(layers []SecurityPolicy, field func(SecurityPolicy) *int) int {
	for _, l := range layers {
		if v := field(l); v != nil {
			return *v
		}
	}
	return 0
}

func pickBool(layers []SecurityPolicy, field func(SecurityPolicy) *bool) bool {
	for _, l := range layers {
		if v := field(l); v != nil {
			return *v
		}
	}
	return false
}

func pickLockoutType(layers []SecurityPolicy, field func(SecurityPolicy) *LockoutType) LockoutType {
	for _, l := range layers {
		if v := field(l); v != nil {
			return *v
		}
	}
	return LockoutFixed
}
