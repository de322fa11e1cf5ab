package cache

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestCache creates a miniredis instance and returns a connected RedisCache.
func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), RedisOptions{
		URL: fmt.Sprintf("redis://%s", mr.Addr()),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte(`{"nodes":{},"edges":[]}`), time.Minute))

	data, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"nodes":{},"edges":[]}`, string(data))
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestRedisCacheExpiry(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisCacheErrors(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		_, err := NewRedisCache(context.Background(), RedisOptions{URL: "http://localhost"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := NewRedisCache(context.Background(), RedisOptions{
			URL:            fmt.Sprintf("redis://%s", addr),
			ConnectTimeout: 200 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})
}

func TestNullCache(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	data, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
	assert.NoError(t, c.Close())
}

func TestGraphKey(t *testing.T) {
	a := GraphKey("eu-west-1", []string{"111111111111", "222222222222"})
	b := GraphKey("eu-west-1", []string{"222222222222", "111111111111", "111111111111"})
	assert.Equal(t, a, b, "account order and duplicates do not change the key")

	assert.True(t, strings.HasPrefix(a, KeyPrefix+":"))
	assert.Len(t, strings.TrimPrefix(a, KeyPrefix+":"), 64)

	assert.NotEqual(t, a, GraphKey("us-east-1", []string{"111111111111", "222222222222"}))
	assert.NotEqual(t, GraphKey("", nil), GraphKey("", []string{""}))
}

func TestGraphKeyDoesNotMutateInput(t *testing.T) {
	ids := []string{"b", "a"}
	GraphKey("r", ids)
	assert.Equal(t, []string{"b", "a"}, ids)
}
