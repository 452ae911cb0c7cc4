package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/citadelle/account-security-service/internal/domain"
)

// RedisPolicyCache stores resolved tenant configs as JSON with a short TTL.
// A decode failure is treated as a miss so a schema change never wedges
// resolution.
type RedisPolicyCache struct {
	client *redis.Client
}

// NewRedisPolicyCache creates the resolved-policy cache adapter.
func NewRedisPolicyCache(client *redis.Client) *RedisPolicyCache {
	return &RedisPolicyCache{client: client}
}

func policyKey(tenantID uuid.UUID) string {
	return "acctsec:policy:" + tenantID.String()
}

func (c *RedisPolicyCache) Get(ctx context.Context, tenantID uuid.UUID) (*domain.SecurityConfig, error) {
	raw, err := c.client.Get(ctx, policyKey(tenantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var config domain.SecurityConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, nil
	}
	return &config, nil
}

func (c *RedisPolicyCache) Put(ctx context.Context, config domain.SecurityConfig, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, policyKey(config.TenantID), raw, ttl).Err()
}

func (c *RedisPolicyCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	return c.client.Del(ctx, policyKey(tenantID)).Err()
}
