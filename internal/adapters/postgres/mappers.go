package postgres

import (
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/citadelle/account-security-service/internal/domain"
)

func toDomainPolicy(row securityPolicyModel) domain.SecurityPolicy {
	var lockoutType *domain.LockoutType
	if row.LockoutType != nil {
		v := domain.LockoutType(*row.LockoutType)
		lockoutType = &v
	}
	var tiers []int
	if row.ProgressiveTiersMin != nil && *row.ProgressiveTiersMin != "" {
		// Malformed tier JSON degrades to inheritance from the next layer.
		_ = json.Unmarshal([]byte(*row.ProgressiveTiersMin), &tiers)
	}
	return domain.SecurityPolicy{
		PolicyID: row.PolicyID,
		TenantID: row.TenantID,

		MinLength:        row.MinLength,
		MaxLength:        row.MaxLength,
		RequireUppercase: row.RequireUppercase,
		RequireLowercase: row.RequireLowercase,
		RequireDigit:     row.RequireDigit,
		RequireSpecial:   row.RequireSpecial,
		MinUniqueChars:   row.MinUniqueChars,
		MaxRepeatRun:     row.MaxRepeatRun,
		HistoryCount:     row.HistoryCount,
		ExpirationDays:   row.ExpirationDays,
		WarningDays:      row.WarningDays,
		GraceLogins:      row.GraceLogins,

		MaxAttempts:           row.MaxAttempts,
		LockoutDurationMin:    row.LockoutDurationMin,
		LockoutType:           lockoutType,
		ResetAttemptsAfterMin: row.ResetAttemptsAfterMin,
		ProgressiveTiersMin:   tiers,

		ResetTokenTTLMin: row.ResetTokenTTLMin,
		ResetMaxAttempts: row.ResetMaxAttempts,

		SessionIdleTimeoutMin:     row.SessionIdleTimeoutMin,
		SessionAbsoluteTimeoutMin: row.SessionAbsoluteTimeoutMin,
		MaxConcurrentSessions:     row.MaxConcurrentSessions,
		TerminateOnPasswordChange: row.TerminateOnPasswordChange,

		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func toPolicyModel(policy domain.SecurityPolicy) securityPolicyModel {
	var lockoutType *string
	if policy.LockoutType != nil {
		v := string(*policy.LockoutType)
		lockoutType = &v
	}
	var tiers *string
	if len(policy.ProgressiveTiersMin) > 0 {
		raw, err := json.Marshal(policy.ProgressiveTiersMin)
		if err == nil {
			v := string(raw)
			tiers = &v
		}
	}
	return securityPolicyModel{
		PolicyID: policy.PolicyID,
		TenantID: policy.TenantID,

		MinLength:        policy.MinLength,
		MaxLength:        policy.MaxLength,
		RequireUppercase: policy.RequireUppercase,
		RequireLowercase: policy.RequireLowercase,
		RequireDigit:     policy.RequireDigit,
		RequireSpecial:   policy.RequireSpecial,
		MinUniqueChars:   policy.MinUniqueChars,
		MaxRepeatRun:     policy.MaxRepeatRun,
		HistoryCount:     policy.HistoryCount,
		ExpirationDays:   policy.ExpirationDays,
		WarningDays:      policy.WarningDays,
		GraceLogins:      policy.GraceLogins,

		MaxAttempts:           policy.MaxAttempts,
		LockoutDurationMin:    policy.LockoutDurationMin,
		LockoutType:           lockoutType,
		ResetAttemptsAfterMin: policy.ResetAttemptsAfterMin,
		ProgressiveTiersMin:   tiers,

		ResetTokenTTLMin: policy.ResetTokenTTLMin,
		ResetMaxAttempts: policy.ResetMaxAttempts,

		SessionIdleTimeoutMin:     policy.SessionIdleTimeoutMin,
		SessionAbsoluteTimeoutMin: policy.SessionAbsoluteTimeoutMin,
		MaxConcurrentSessions:     policy.MaxConcurrentSessions,
		TerminateOnPasswordChange: policy.TerminateOnPasswordChange,

		IsActive:  policy.IsActive,
		CreatedAt: policy.CreatedAt,
		UpdatedAt: policy.UpdatedAt,
	}
}

func toDomainAccount(row accountModel) domain.Account {
	return domain.Account{
		UserID:            row.UserID,
		TenantID:          row.TenantID,
		Email:             row.Email,
		PasswordHash:      row.PasswordHash,
		PasswordChangedAt: row.PasswordChangedAt,
		PasswordExpiresAt: row.PasswordExpiresAt,
		GraceLoginsUsed:   row.GraceLoginsUsed,
		IsActive:          row.IsActive,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func toDomainLoginAttempt(row loginAttemptModel) domain.LoginAttempt {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.LoginAttempt{
		ID:            row.ID,
		UserID:        row.UserID,
		Email:         row.Email,
		Success:       row.Success,
		FailureReason: row.FailureReason,
		IPAddress:     ip,
		UserAgent:     row.UserAgent,
		CreatedAt:     row.CreatedAt,
	}
}

func toDomainLockout(row accountLockoutModel) domain.AccountLockout {
	return domain.AccountLockout{
		LockoutID:    row.LockoutID,
		UserID:       row.UserID,
		LockedAt:     row.LockedAt,
		LockedUntil:  row.LockedUntil,
		Reason:       row.Reason,
		AttemptCount: row.AttemptCount,
		UnlockedAt:   row.UnlockedAt,
		UnlockedBy:   row.UnlockedBy,
	}
}

func toDomainSession(row userSessionModel) domain.UserSession {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.UserSession{
		SessionID:         row.SessionID,
		UserID:            row.UserID,
		JTI:               row.JTI,
		IssuedAt:          row.IssuedAt,
		ExpiresAt:         row.ExpiresAt,
		AbsoluteExpiresAt: row.AbsoluteExpiresAt,
		LastActivityAt:    row.LastActivityAt,
		DeviceID:          row.DeviceID,
		IPAddress:         ip,
		UserAgent:         row.UserAgent,
		RevokedAt:         row.RevokedAt,
	}
}

func toDomainResetToken(row passwordResetTokenModel) domain.PasswordResetToken {
	return domain.PasswordResetToken{
		TokenID:      row.TokenID,
		UserID:       row.UserID,
		TokenHash:    row.TokenHash,
		ExpiresAt:    row.ExpiresAt,
		UsedAt:       row.UsedAt,
		AttemptCount: row.AttemptCount,
		CreatedAt:    row.CreatedAt,
	}
}

func toDomainQueueEntry(row notificationQueueModel) domain.NotificationQueueEntry {
	return domain.NotificationQueueEntry{
		EntryID:      row.EntryID,
		TenantID:     row.TenantID,
		UserID:       row.UserID,
		Type:         domain.NotificationType(row.Type),
		Channel:      domain.NotificationChannel(row.Channel),
		Payload:      []byte(row.Payload),
		Priority:     domain.NotificationPriority(row.Priority),
		Status:       domain.NotificationStatus(row.Status),
		AttemptCount: row.AttemptCount,
		MaxAttempts:  row.MaxAttempts,
		ScheduledFor: row.ScheduledFor,
		LastError:    row.LastError,
		CreatedAt:    row.CreatedAt,
		SentAt:       row.SentAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
