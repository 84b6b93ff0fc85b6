package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionCacheWithoutRedis(t *testing.T) {
	c := NewPermissionCache(nil, 0)
	ctx := context.Background()

	assert.False(t, c.IsAvailable())
	require.NoError(t, c.Set(ctx, "admin", []string{"orders.read"}))

	codes, hit, err := c.Get(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, codes)
	assert.NoError(t, c.Invalidate(ctx, ""))
}

func TestIdempotencyStoreWithoutRedis(t *testing.T) {
	s := NewIdempotencyStore(nil, 0)
	ctx := context.Background()

	resp, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.NoError(t, s.Complete(ctx, "k1", StoredResponse{Status: 201}))
	assert.NoError(t, s.Release(ctx, "k1"))
}
