package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionRevocationStore stores revoked-session flags keyed by jti with
// a TTL aligned to the credential's remaining lifetime.
type RedisSessionRevocationStore struct {
	client *redis.Client
}

// NewRedisSessionRevocationStore creates the session revocation cache adapter.
func NewRedisSessionRevocationStore(client *redis.Client) *RedisSessionRevocationStore {
	return &RedisSessionRevocationStore{client: client}
}

func (s *RedisSessionRevocationStore) MarkRevoked(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Hour
	}
	return s.client.Set(ctx, "acctsec:revoked:"+jti, "1", ttl).Err()
}

func (s *RedisSessionRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, "acctsec:revoked:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
