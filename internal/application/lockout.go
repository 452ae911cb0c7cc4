package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

// LockoutDecision is the outcome of a threshold evaluation. NewlyApplied is
// true only on the call that actually created the lockout row, so callers
// can fire the notification exactly once.
type LockoutDecision struct {
	Locked       bool
	LockedUntil  *time.Time
	NewlyApplied bool
}

// RecordLoginAttempt appends one row to the immutable attempt log. A nil
// userID records attempts against unknown emails without leaking account
// existence. Persistence failures propagate: the attempt log is the source
// of truth for lockout decisions and must not silently no-op.
func (s *Service) RecordLoginAttempt(ctx context.Context, userID *uuid.UUID, email string, success bool, failureReason, ip, userAgent string) error {
	return s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		UserID:        userID,
		Email:         email,
		Success:       success,
		FailureReason: failureReason,
		IPAddress:     ip,
		UserAgent:     userAgent,
		CreatedAt:     s.nowFn(),
	})
}

// RecentFailedAttempts counts failed attempts inside the sliding window
// [now - ResetAttemptsAfter, now]. The counter is derived from the log, not
// a mutable column, so concurrent failures cannot lose updates.
func (s *Service) RecentFailedAttempts(ctx context.Context, userID uuid.UUID, rules domain.LockoutRules) (int, error) {
	since := s.nowFn().Add(-rules.ResetAttemptsAfter)
	return s.loginAttempts.CountFailedSince(ctx, userID, since)
}

// CheckAndApplyLockout evaluates the failure threshold and applies a lockout
// if it is crossed. The operation is idempotent: while an active lockout
// exists, repeated calls report Locked without creating duplicate rows, and
// a concurrent duplicate insert degrades to a no-op.
func (s *Service) CheckAndApplyLockout(ctx context.Context, userID uuid.UUID, rules domain.LockoutRules) (LockoutDecision, error) {
	now := s.nowFn()

	existing, err := s.lockouts.ActiveByUser(ctx, userID, now)
	if err == nil {
		until := existing.LockedUntil
		return LockoutDecision{Locked: true, LockedUntil: &until}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return LockoutDecision{}, err
	}

	failures, err := s.RecentFailedAttempts(ctx, userID, rules)
	if err != nil {
		return LockoutDecision{}, err
	}
	if failures < rules.MaxAttempts {
		return LockoutDecision{}, nil
	}

	priorEpisodes, err := s.lockouts.CountByUser(ctx, userID)
	if err != nil {
		return LockoutDecision{}, err
	}
	duration := rules.DurationFor(priorEpisodes + 1)

	applied, created, err := s.lockouts.ApplyIfAbsent(ctx, domain.AccountLockout{
		LockoutID:    uuid.New(),
		UserID:       userID,
		LockedAt:     now,
		LockedUntil:  now.Add(duration),
		Reason:       "FAILED_LOGIN_THRESHOLD",
		AttemptCount: failures,
	})
	if err != nil {
		return LockoutDecision{}, err
	}

	if created {
		slog.Default().WarnContext(ctx, "account lockout applied",
			"module", "application",
			"layer", "application",
			"operation", "check_and_apply_lockout",
			"outcome", "locked",
			"user_id", userID,
			"attempt_count", failures,
			"locked_until", applied.LockedUntil,
		)
	}
	until := applied.LockedUntil
	return LockoutDecision{Locked: true, LockedUntil: &until, NewlyApplied: created}, nil
}

// IsAccountLocked is the canonical pre-credential check: the auth flow must
// call it before verifying a password so locked accounts never leak a
// correctness signal. There is no elevated-privilege bypass.
func (s *Service) IsAccountLocked(ctx context.Context, userID uuid.UUID) (bool, *time.Time, error) {
	lockout, err := s.lockouts.ActiveByUser(ctx, userID, s.nowFn())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}
	until := lockout.LockedUntil
	return true, &until, nil
}

// UnlockAccount clears the active lockout. Administrative action only; there
// is no self-service path.
func (s *Service) UnlockAccount(ctx context.Context, userID, unlockedBy uuid.UUID) error {
	return s.lockouts.Unlock(ctx, userID, s.nowFn(), unlockedBy)
}

// ResetFailedAttempts records a successful attempt. Nothing is deleted: the
// windowed count naturally excludes failures once the window slides past
// them, keeping the log fully auditable.
func (s *Service) ResetFailedAttempts(ctx context.Context, userID uuid.UUID, email, ip, userAgent string) error {
	return s.RecordLoginAttempt(ctx, &userID, email, true, "", ip, userAgent)
}
