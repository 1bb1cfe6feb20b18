package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_ClaimAndRelease(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	key := "inventory:adjustment:1"

	claimed, err := store.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must fail")

	processed, err := store.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, store.Release(ctx, key))
	processed, err = store.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.False(t, processed)

	claimed, err = store.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed, "released keys can be claimed again")
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }

	_, err := store.MarkProcessed(ctx, "k", time.Minute)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, "other", time.Hour)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	processed, err := store.IsProcessed(ctx, "k")
	require.NoError(t, err)
	assert.False(t, processed)

	store.sweep()
	assert.Equal(t, 1, store.Size())

	claimed, err := store.MarkProcessed(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.MarkProcessed(ctx, "contended", time.Hour); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestNewIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("no redis host", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, config.RedisConfig{})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("unreachable redis falls back", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, unreachable)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("fallback disabled", func(t *testing.T) {
		_, err := NewIdempotencyStore(ctx, unreachable, WithInMemoryFallback(false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), fmt.Sprintf("redis %s unreachable", unreachable.Addr()))
	})
}
