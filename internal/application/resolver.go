package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

// ResolveConfig produces the effective SecurityConfig for a tenant by walking
// the 4-tier override chain: active tenant row, active system-default row,
// deployment config defaults, code defaults. Each field resolves
// independently, first non-nil wins. Resolution is a pure read and always
// succeeds even on a fresh deployment with no policy rows at all.
func (s *Service) ResolveConfig(ctx context.Context, tenantID uuid.UUID) (domain.SecurityConfig, error) {
	if s.policyCache != nil {
		if cached, err := s.policyCache.Get(ctx, tenantID); err == nil && cached != nil {
			return *cached, nil
		}
	}

	layers := make([]domain.SecurityPolicy, 0, 4)

	tenantRow, err := s.policies.FindActive(ctx, &tenantID)
	switch {
	case err == nil:
		layers = append(layers, tenantRow)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.SecurityConfig{}, err
	}

	systemRow, err := s.policies.FindActive(ctx, nil)
	switch {
	case err == nil:
		layers = append(layers, systemRow)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.SecurityConfig{}, err
	}

	layers = append(layers, s.cfg.PolicyDefaults, domain.CodeDefaultPolicy())

	config := domain.ResolveSecurityConfig(tenantID, s.nowFn(), layers...)

	if s.policyCache != nil {
		if err := s.policyCache.Put(ctx, config, s.cfg.PolicyCacheTTL); err != nil {
			slog.Default().WarnContext(ctx, "policy cache write failed",
				"module", "application",
				"layer", "application",
				"operation", "resolve_config",
				"outcome", "degraded",
				"tenant_id", tenantID,
				"error", err,
			)
		}
	}
	return config, nil
}
