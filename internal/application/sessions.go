package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
	"github.com/citadelle/account-security-service/internal/ports"
)

// SessionInput carries the client metadata recorded with a new session.
type SessionInput struct {
	DeviceID  *string
	IPAddress string
	UserAgent string
}

// CreateSession inserts the session row and then enforces the concurrent
// cap. Running enforcement after the insert means the freshly issued session
// is the newest by issue time and therefore never the one evicted.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID, jti string, rules domain.SessionRules, input SessionInput) (domain.UserSession, error) {
	now := s.nowFn()
	session, err := s.sessions.Create(ctx, ports.SessionCreateParams{
		UserID:            userID,
		JTI:               jti,
		IssuedAt:          now,
		ExpiresAt:         now.Add(rules.IdleTimeout),
		AbsoluteExpiresAt: now.Add(rules.AbsoluteTimeout),
		DeviceID:          input.DeviceID,
		IPAddress:         input.IPAddress,
		UserAgent:         input.UserAgent,
	})
	if err != nil {
		return domain.UserSession{}, fmt.Errorf("create session: %w", err)
	}
	if err := s.EnforceConcurrentLimit(ctx, userID, rules); err != nil {
		return domain.UserSession{}, err
	}
	return session, nil
}

// EnforceConcurrentLimit revokes the least-recently-issued active sessions
// until the user is back under the cap. A cap of zero or below means
// unlimited. Revocation is idempotent, so two concurrent logins both running
// this converge to the same cap without coordination.
func (s *Service) EnforceConcurrentLimit(ctx context.Context, userID uuid.UUID, rules domain.SessionRules) error {
	if rules.MaxConcurrentSessions <= 0 {
		return nil
	}

	active, err := s.sessions.ListActiveByUser(ctx, userID, s.nowFn())
	if err != nil {
		return err
	}
	excess := len(active) - rules.MaxConcurrentSessions
	if excess <= 0 {
		return nil
	}

	// ListActiveByUser orders by issued_at ascending, oldest first.
	now := s.nowFn()
	for _, victim := range active[:excess] {
		if err := s.sessions.RevokeByJTI(ctx, victim.JTI, now); err != nil {
			return err
		}
		s.markTokenRevoked(ctx, victim)
	}
	slog.Default().InfoContext(ctx, "concurrent session cap enforced",
		"module", "application",
		"layer", "application",
		"operation", "enforce_concurrent_limit",
		"outcome", "evicted",
		"user_id", userID,
		"evicted_count", excess,
		"cap", rules.MaxConcurrentSessions,
	)
	return nil
}

// RevokeSession revokes a single session by its token correlation key.
func (s *Service) RevokeSession(ctx context.Context, jti string) error {
	session, err := s.sessions.GetByJTI(ctx, jti)
	if err != nil {
		return err
	}
	if err := s.sessions.RevokeByJTI(ctx, jti, s.nowFn()); err != nil {
		return err
	}
	s.markTokenRevoked(ctx, session)
	return nil
}

// RevokeAllSessions revokes every active session for a user, optionally
// sparing the one that initiated the action (password-change flows keep the
// changing session alive).
func (s *Service) RevokeAllSessions(ctx context.Context, userID uuid.UUID, exceptJTI *string) (int, error) {
	now := s.nowFn()
	active, err := s.sessions.ListActiveByUser(ctx, userID, now)
	if err != nil {
		return 0, err
	}

	revoked, err := s.sessions.RevokeAllByUser(ctx, userID, now, exceptJTI)
	if err != nil {
		return 0, err
	}
	for _, session := range active {
		if exceptJTI != nil && session.JTI == *exceptJTI {
			continue
		}
		s.markTokenRevoked(ctx, session)
	}
	return revoked, nil
}

// IsSessionValid re-checks both expiry clocks and revocation state live; it
// never depends on cleanup having run.
func (s *Service) IsSessionValid(ctx context.Context, jti string) (bool, error) {
	if s.revocations != nil {
		if revoked, _ := s.revocations.IsRevoked(ctx, jti); revoked {
			return false, nil
		}
	}
	session, err := s.sessions.GetByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return session.IsActive(s.nowFn()), nil
}

// UpdateActivity bumps last activity and slides the idle-timeout clock
// forward, capped by the absolute ceiling. The absolute clock never moves.
func (s *Service) UpdateActivity(ctx context.Context, jti string, rules domain.SessionRules) error {
	session, err := s.sessions.GetByJTI(ctx, jti)
	if err != nil {
		return err
	}
	now := s.nowFn()
	if !session.IsActive(now) {
		return domain.ErrSessionInvalid
	}
	newExpiry := now.Add(rules.IdleTimeout)
	if newExpiry.After(session.AbsoluteExpiresAt) {
		newExpiry = session.AbsoluteExpiresAt
	}
	return s.sessions.TouchActivity(ctx, jti, now, newExpiry)
}

// CleanupExpiredSessions hard-deletes sessions past both expiry thresholds.
// Batch/administrative operation; validity checks do not rely on it.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int, error) {
	deleted, err := s.sessions.DeleteExpired(ctx, s.nowFn())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Default().InfoContext(ctx, "expired sessions removed",
			"module", "application",
			"layer", "application",
			"operation", "cleanup_expired_sessions",
			"outcome", "success",
			"deleted_count", deleted,
		)
	}
	return deleted, nil
}

func (s *Service) markTokenRevoked(ctx context.Context, session domain.UserSession) {
	if s.revocations == nil {
		return
	}
	if err := s.revocations.MarkRevoked(ctx, session.JTI, session.AbsoluteExpiresAt); err != nil {
		slog.Default().WarnContext(ctx, "revocation marker write failed",
			"module", "application",
			"layer", "application",
			"operation", "mark_token_revoked",
			"outcome", "degraded",
			"jti", session.JTI,
			"error", err,
		)
	}
}
