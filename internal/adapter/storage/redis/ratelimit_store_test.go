package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_AllowsUnderLimit(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := store.Allow(ctx, "1.2.3.4", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should be allowed", i+1)
	}
}

func TestRateLimitStore_BlocksOverLimit(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Allow(ctx, "5.6.7.8", 3, time.Minute)
		require.NoError(t, err)
	}

	res, err := store.Allow(ctx, "5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
}

func TestRateLimitStore_KeysAreIndependent(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	_, err := store.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)

	res, err := store.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimitStore_ReportsRemaining(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	res, err := store.Allow(ctx, "c", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.Remaining)
	assert.Equal(t, int64(10), res.Limit)
	assert.Greater(t, res.ResetAt, time.Now().Unix()-int64(time.Minute.Seconds()))
}
