package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestReconCache_SetGet(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewReconCache(client)
	ctx := context.Background()

	payload := []byte(`{"id":"p1","status":"SETTLED"}`)
	require.NoError(t, cache.Set(ctx, "gw_1", payload, time.Hour))

	got, err := cache.Get(ctx, "gw_1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReconCache_MissReturnsNil(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewReconCache(client)

	got, err := cache.Get(context.Background(), "gw_absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReconCache_ExpiresWithTTL(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewReconCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "gw_ttl", []byte("x"), time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "gw_ttl")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReconCache_KeysArePrefixed(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewReconCache(client)

	require.NoError(t, cache.Set(context.Background(), "gw_2", []byte("y"), time.Hour))
	assert.True(t, mr.Exists("recon:gw_2"))
}
