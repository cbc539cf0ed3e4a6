package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first reservation wins", func(t *testing.T) {
		fresh, err := store.MarkProcessed(ctx, "alloc-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = store.MarkProcessed(ctx, "alloc-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, fresh)
	})

	t.Run("expired reservation can be taken again", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }
		defer func() { store.now = time.Now }()

		fresh, err := store.MarkProcessed(ctx, "alloc-2", time.Minute)
		require.NoError(t, err)
		require.True(t, fresh)

		now = now.Add(time.Minute)
		processed, err := store.IsProcessed(ctx, "alloc-2")
		require.NoError(t, err)
		assert.False(t, processed)

		fresh, err = store.MarkProcessed(ctx, "alloc-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("release frees the key", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "alloc-3", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "alloc-3"))

		processed, err := store.IsProcessed(ctx, "alloc-3")
		require.NoError(t, err)
		assert.False(t, processed)

		require.NoError(t, store.Release(ctx, "never-reserved"))
	})
}

func TestInMemoryIdempotencyStore_ConcurrentReservation(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fresh, err := store.MarkProcessed(context.Background(), "same-key", time.Hour)
			assert.NoError(t, err)
			if fresh {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryIdempotencyStore_PurgeExpired(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	_, _ = store.MarkProcessed(ctx, "short", time.Second)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	require.Equal(t, 2, store.Size())

	now = now.Add(time.Minute)
	store.purgeExpired()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
