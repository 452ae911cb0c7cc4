package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

// UpsertPolicy installs a new active policy for a tenant (or the system
// default when TenantID is nil), deactivating any previous active row, and
// invalidates the cached resolution so the change takes effect promptly.
func (s *Service) UpsertPolicy(ctx context.Context, policy domain.SecurityPolicy) (domain.SecurityPolicy, error) {
	if policy.PolicyID == uuid.Nil {
		policy.PolicyID = uuid.New()
	}
	now := s.nowFn()
	policy.IsActive = true
	policy.CreatedAt = now
	policy.UpdatedAt = now

	stored, err := s.policies.Upsert(ctx, policy)
	if err != nil {
		return domain.SecurityPolicy{}, fmt.Errorf("upsert policy: %w", err)
	}
	s.invalidatePolicyCache(ctx, stored.TenantID)
	return stored, nil
}

// DeactivatePolicy retires a policy row. Resolution for the affected tenant
// falls through to the next layer on the following lookup.
func (s *Service) DeactivatePolicy(ctx context.Context, policyID uuid.UUID) error {
	policy, err := s.policies.Deactivate(ctx, policyID, s.nowFn())
	if err != nil {
		return err
	}
	s.invalidatePolicyCache(ctx, policy.TenantID)
	return nil
}

func (s *Service) ListPolicies(ctx context.Context, tenantID *uuid.UUID) ([]domain.SecurityPolicy, error) {
	return s.policies.ListByTenant(ctx, tenantID)
}

// EffectiveConfig exposes the fully resolved configuration for a tenant,
// with per-layer fallthrough already applied.
func (s *Service) EffectiveConfig(ctx context.Context, tenantID uuid.UUID) (domain.SecurityConfig, error) {
	return s.ResolveConfig(ctx, tenantID)
}

func (s *Service) ListActiveLockouts(ctx context.Context, limit, offset int) ([]LockoutItem, error) {
	lockouts, err := s.lockouts.ListActive(ctx, s.nowFn(), limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]LockoutItem, 0, len(lockouts))
	for _, l := range lockouts {
		items = append(items, toLockoutItem(l))
	}
	return items, nil
}

func (s *Service) ListUserSessions(ctx context.Context, userID uuid.UUID) ([]SessionItem, error) {
	sessions, err := s.sessions.ListActiveByUser(ctx, userID, s.nowFn())
	if err != nil {
		return nil, err
	}
	items := make([]SessionItem, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, toSessionItem(sess))
	}
	return items, nil
}

// AdminUnlock clears an active lockout ahead of its expiry and records who
// performed the unlock.
func (s *Service) AdminUnlock(ctx context.Context, userID, unlockedBy uuid.UUID) error {
	return s.UnlockAccount(ctx, userID, unlockedBy)
}

func (s *Service) invalidatePolicyCache(ctx context.Context, tenantID *uuid.UUID) {
	if s.policyCache == nil {
		return
	}
	// A nil tenant means the system-default layer changed, which feeds every
	// tenant's resolution; individual entries age out on their short TTL.
	if tenantID == nil {
		return
	}
	if err := s.policyCache.Invalidate(ctx, *tenantID); err != nil {
		slog.Default().WarnContext(ctx, "policy cache invalidate failed",
			"module", "application",
			"layer", "application",
			"operation", "invalidate_policy_cache",
			"outcome", "degraded",
			"tenant_id", *tenantID,
			"error", err,
		)
	}
}
