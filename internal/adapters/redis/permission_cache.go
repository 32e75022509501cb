package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novellms/lms-gateway/internal/ports"
)

// PermissionCache stores role resolutions in Redis keyed by identity.
// The resolver owns the freshness policy; the Redis key TTL is set a little
// past the resolver's TTL so stale entries still age out of Redis on their
// own when never re-read.
type PermissionCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// PermissionCacheConfig groups constructor options.
type PermissionCacheConfig struct {
	Prefix string
	// TTL is the key expiry in Redis. Zero keeps entries until invalidated.
	TTL time.Duration
}

// NewPermissionCache creates a Redis-backed permission cache.
func NewPermissionCache(client redis.UniversalClient, cfg PermissionCacheConfig) *PermissionCache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "lms:permission:"
	}
	return &PermissionCache{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
	}
}

func (c *PermissionCache) Get(ctx context.Context, identity string) (ports.PermissionEntry, bool, error) {
	if identity == "" {
		return ports.PermissionEntry{}, false, nil
	}

	data, err := c.client.Get(ctx, c.prefix+identity).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.PermissionEntry{}, false, nil
		}
		return ports.PermissionEntry{}, false, fmt.Errorf("redis get: %w", err)
	}

	var entry ports.PermissionEntry
	if unmarshalErr := json.Unmarshal([]byte(data), &entry); unmarshalErr != nil {
		return ports.PermissionEntry{}, false, fmt.Errorf("unmarshal permission entry: %w", unmarshalErr)
	}
	return entry, true, nil
}

func (c *PermissionCache) Set(ctx context.Context, entry ports.PermissionEntry) error {
	if entry.Identity == "" {
		return errors.New("identity cannot be empty")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal permission entry: %w", err)
	}
	return c.client.Set(ctx, c.prefix+entry.Identity, data, c.ttl).Err()
}

func (c *PermissionCache) Invalidate(ctx context.Context, identity string) error {
	if identity == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+identity).Err()
}
