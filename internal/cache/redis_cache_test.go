package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	SessionID string `json:"session_id"`
	Version   int64  `json:"version"`
}

func setupCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb), mr
}

func TestRedisCacheRoundTripAndExpiry(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	key := SessionKey("s1")

	require.NoError(t, c.SetJSON(ctx, key, snapshot{SessionID: "s1", Version: 3}, time.Minute))

	var got snapshot
	hit, err := c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(3), got.Version)

	mr.FastForward(2 * time.Minute)
	hit, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheCorruptEntryIsMiss(t *testing.T) {
	c, mr := setupCache(t)
	key := SessionKey("s2")
	require.NoError(t, mr.Set(key, "{not json"))

	var got snapshot
	hit, err := c.GetJSON(context.Background(), key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists(key))
}

func TestRedisCacheDel(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "a", 1, time.Minute))
	require.True(t, mr.Exists("a"))
	require.NoError(t, c.Del(ctx, "a"))
	require.NoError(t, c.Del(ctx))
	assert.False(t, mr.Exists("a"))
}

func TestRedisCacheSkipsZeroTTL(t *testing.T) {
	c, mr := setupCache(t)
	require.NoError(t, c.SetJSON(context.Background(), "k", 1, 0))
	assert.False(t, mr.Exists("k"))
}

func TestNopAlwaysMisses(t *testing.T) {
	var c Cache = Nop{}
	require.NoError(t, c.SetJSON(context.Background(), "k", 1, time.Second))
	hit, err := c.GetJSON(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheVersionedSetKeepsNewer(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	key := SessionKey("s3")

	stored, err := c.SetVersionedJSON(ctx, key, 2, snapshot{SessionID: "s3", Version: 2}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	// an older read must not replace the newer snapshot
	stored, err = c.SetVersionedJSON(ctx, key, 1, snapshot{SessionID: "s3", Version: 1}, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	var got snapshot
	hit, err := c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, int64(2), got.Version)

	stored, err = c.SetVersionedJSON(ctx, key, 2, snapshot{SessionID: "s3", Version: 2}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)
	stored, err = c.SetVersionedJSON(ctx, key, 3, snapshot{SessionID: "s3", Version: 3}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)
	hit, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, int64(3), got.Version)
	assert.True(t, mr.TTL(key) > 0)

	require.NoError(t, mr.Set(key, "{not json"))
	stored, err = c.SetVersionedJSON(ctx, key, 1, snapshot{SessionID: "s3", Version: 1}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)
}
