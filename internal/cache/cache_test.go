package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/userhub/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return set values until ttl", func(t *testing.T) {
		c := cache.NewLocal(50 * time.Millisecond)
		require.NoError(t, c.Set(ctx, "k", []byte("v")))

		got, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), got)

		time.Sleep(80 * time.Millisecond)
		_, ok, err = c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should delete and clear", func(t *testing.T) {
		c := cache.NewLocal(time.Minute)
		_ = c.Set(ctx, "a", []byte("1"))
		_ = c.Set(ctx, "b", []byte("2"))
		require.NoError(t, c.Delete(ctx, "a"))
		_, ok, _ := c.Get(ctx, "a")
		assert.False(t, ok)

		c.Clear()
		_, ok, _ = c.Get(ctx, "b")
		assert.False(t, ok)
	})
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewRedisFromClient(client, 30*time.Second, "test:")
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	assert.True(t, mr.Exists("test:k"))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	mr.FastForward(31 * time.Second)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k2", []byte("v")))
	require.NoError(t, c.Delete(ctx, "k2"))
	assert.False(t, mr.Exists("test:k2"))
}
