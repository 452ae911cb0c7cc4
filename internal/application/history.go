package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

// RecordPasswordChange persists the new hash into the history log, prunes
// rows past the policy's history count, and restarts the expiration clock on
// the account. Accounts with a nil password_changed_at stay grandfathered
// until this runs for the first time.
func (s *Service) RecordPasswordChange(ctx context.Context, userID uuid.UUID, newHash string, rules domain.PasswordRules) error {
	now := s.nowFn()
	if err := s.history.RecordAndPrune(ctx, userID, newHash, rules.HistoryCount, now); err != nil {
		return err
	}

	var expiresAt *time.Time
	if rules.ExpirationEnabled() {
		t := now.Add(time.Duration(rules.ExpirationDays) * 24 * time.Hour)
		expiresAt = &t
	}
	return s.accounts.UpdatePassword(ctx, userID, newHash, now, expiresAt)
}

// PasswordExpiryStatus reports where the account's password sits relative to
// the expiration policy at this instant.
func (s *Service) PasswordExpiryStatus(ctx context.Context, userID uuid.UUID) (domain.PasswordExpiryState, error) {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	config, err := s.ResolveConfig(ctx, account.TenantID)
	if err != nil {
		return "", err
	}
	return account.PasswordExpiry(config.Password, s.nowFn()), nil
}
