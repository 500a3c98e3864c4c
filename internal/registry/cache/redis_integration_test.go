//go:build integration

package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strdep/internal/registry/cache"
	"strdep/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	c := cache.NewRedis(rc.Client, time.Minute)
	blob := &cache.Blob{Filename: "shapes.zip", Data: []byte("blob")}

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, c.Set(ctx, "a1", blob))

		got, err := c.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, blob, got)
	})

	t.Run("miss", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		_, err := c.Get(ctx, "missing")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, c.Set(ctx, "a1", blob))
		require.NoError(t, c.Invalidate(ctx, "a1"))

		_, err := c.Get(ctx, "a1")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		short := cache.NewRedis(rc.Client, 50*time.Millisecond)
		require.NoError(t, short.Set(ctx, "a1", blob))

		assert.Eventually(t, func() bool {
			_, err := short.Get(ctx, "a1")
			return errors.Is(err, cache.ErrMiss)
		}, 2*time.Second, 25*time.Millisecond)
	})
}
