package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ReconCache implements ports.ReconCache using Redis. Only terminal
// reconciliation outcomes are stored; a miss always falls through to the
// database, so a cold or flushed Redis only costs latency.
type ReconCache struct {
	client *goredis.Client
	prefix string
}

// NewReconCache creates a new Redis-backed reconciliation cache.
func NewReconCache(client *goredis.Client) *ReconCache {
	return &ReconCache{
		client: client,
		prefix: "recon:",
	}
}

// Get retrieves a cached payment payload by gateway reference.
// Returns nil, nil if the key does not exist.
func (c *ReconCache) Get(ctx context.Context, gatewayRef string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+gatewayRef).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis recon get: %w", err)
	}
	return val, nil
}

// Set stores a payment payload with TTL.
func (c *ReconCache) Set(ctx context.Context, gatewayRef string, payload []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+gatewayRef, payload, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis recon set: %w", err)
	}
	return nil
}
