package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const permKeyPrefix = "perms:role:"

// PermissionCache caches the permission codes of a role
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{client: client, ttl: ttl}
}

// Get returns the cached codes and whether there was a hit
func (c *PermissionCache) Get(ctx context.Context, role string) ([]string, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}

	data, err := c.client.Get(ctx, permKeyPrefix+role).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, false, err
	}
	return codes, true, nil
}

func (c *PermissionCache) Set(ctx context.Context, role string, codes []string) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, permKeyPrefix+role, data, c.ttl).Err()
}

// Invalidate drops one role, or every role when role is empty
func (c *PermissionCache) Invalidate(ctx context.Context, role string) error {
	if c.client == nil {
		return nil
	}
	if role != "" {
		return c.client.Del(ctx, permKeyPrefix+role).Err()
	}

	iter := c.client.Scan(ctx, 0, permKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

// IsAvailable returns true if Redis is connected
func (c *PermissionCache) IsAvailable() bool {
	return c.client != nil
}
