package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

type LoginRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	DeviceID  *string `json:"device_id,omitempty"`
	IPAddress string  `json:"ip_address"`
	UserAgent string  `json:"user_agent"`
}

type LoginResponse struct {
	Token           string                     `json:"token"`
	JTI             string                     `json:"jti"`
	ExpiresIn       int64                      `json:"expires_in"`
	PasswordState   domain.PasswordExpiryState `json:"password_state"`
	GraceLoginsLeft int                        `json:"grace_logins_left,omitempty"`
}

type ChangePasswordRequest struct {
	UserID          uuid.UUID
	CurrentPassword string
	NewPassword     string
	// CurrentJTI, when set, spares the initiating session from the
	// terminate-on-change sweep.
	CurrentJTI *string
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type LockoutItem struct {
	UserID       uuid.UUID  `json:"user_id"`
	LockedAt     time.Time  `json:"locked_at"`
	LockedUntil  time.Time  `json:"locked_until"`
	Reason       string     `json:"reason"`
	AttemptCount int        `json:"attempt_count"`
	UnlockedAt   *time.Time `json:"unlocked_at,omitempty"`
}

type SessionItem struct {
	JTI            string     `json:"jti"`
	IssuedAt       time.Time  `json:"issued_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	DeviceID       *string    `json:"device_id,omitempty"`
	IPAddress      string     `json:"ip_address"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

func toLockoutItem(l domain.AccountLockout) LockoutItem {
	return LockoutItem{
		UserID:       l.UserID,
		LockedAt:     l.LockedAt,
		LockedUntil:  l.LockedUntil,
		Reason:       l.Reason,
		AttemptCount: l.AttemptCount,
		UnlockedAt:   l.UnlockedAt,
	}
}

func toSessionItem(s domain.UserSession) SessionItem {
	return SessionItem{
		JTI:            s.JTI,
		IssuedAt:       s.IssuedAt,
		ExpiresAt:      s.ExpiresAt,
		LastActivityAt: s.LastActivityAt,
		DeviceID:       s.DeviceID,
		IPAddress:      s.IPAddress,
		RevokedAt:      s.RevokedAt,
	}
}
