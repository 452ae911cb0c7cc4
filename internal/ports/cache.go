package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

// PolicyCache holds resolved tenant configs for a short TTL. Misses and
// errors both fall through to direct resolution; the cache is never a
// correctness dependency.
type PolicyCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*domain.SecurityConfig, error)
	Put(ctx context.Context, config domain.SecurityConfig, ttl time.Duration) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// SessionRevocationStore keeps revocation markers with token-aligned TTL.
// This allows immediate logout semantics without a database read on every
// token check.
type SessionRevocationStore interface {
	MarkRevoked(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
