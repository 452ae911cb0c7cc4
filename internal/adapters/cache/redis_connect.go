package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Connect builds a Redis client for the policy cache and the revocation
// store. The address is either a full redis:// URL or a bare host:port; a
// bare address connects with default options.
func Connect(_ context.Context, address string) (*redis.Client, error) {
	if strings.HasPrefix(address, "redis://") || strings.HasPrefix(address, "rediss://") {
		opt, err := redis.ParseURL(address)
		if err != nil {
			return nil, fmt.Errorf("parse redis address: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: address}), nil
}
