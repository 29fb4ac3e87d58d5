package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		key := "order:5f0c:confirm"
		fresh, err := store.MarkProcessed(ctx, key, time.Hour)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = store.MarkProcessed(ctx, key, time.Hour)
		require.NoError(t, err)
		assert.False(t, fresh)

		done, err := store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.True(t, done)
	})

	t.Run("forget releases the key", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		key := "order:5f0c:payment-completed"
		_, err := store.MarkProcessed(ctx, key, time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Forget(ctx, key))
		require.NoError(t, store.Forget(ctx, "never-claimed"))

		fresh, err := store.MarkProcessed(ctx, key, time.Hour)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("expired keys can be claimed again", func(t *testing.T) {
		store, clock := storeWithClock(t)

		_, err := store.MarkProcessed(ctx, "order:77:refund", time.Minute)
		require.NoError(t, err)
		clock.advance(time.Minute)

		done, err := store.IsProcessed(ctx, "order:77:refund")
		require.NoError(t, err)
		assert.False(t, done)

		fresh, err := store.MarkProcessed(ctx, "order:77:refund", time.Hour)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("sweep drops expired claims", func(t *testing.T) {
		store, clock := storeWithClock(t)

		_, _ = store.MarkProcessed(ctx, "a", time.Second)
		_, _ = store.MarkProcessed(ctx, "b", time.Hour)
		clock.advance(time.Minute)
		require.Equal(t, 2, store.Size())

		store.sweep()
		assert.Equal(t, 1, store.Size())
	})

	t.Run("concurrent claimants see one winner", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		var winners atomic.Int32
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := store.MarkProcessed(ctx, "order:1:cancel", time.Hour); ok {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, winners.Load())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}

type fakeClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

func storeWithClock(t *testing.T) (*InMemoryIdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{at: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	store := NewInMemoryIdempotencyStore()
	store.now = clock.now
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestConnect_FallsBackWithoutRedis(t *testing.T) {
	b, err := Connect(context.Background(), unreachableRedis(), zap.NewNop(), true)
	require.NoError(t, err)
	defer b.Close()
	assert.False(t, b.Distributed())
	assert.IsType(t, &InMemoryIdempotencyStore{}, b.Idempotency)
	assert.NoError(t, b.Ping(context.Background()))

	_, err = Connect(context.Background(), unreachableRedis(), zap.NewNop(), false)
	assert.ErrorContains(t, err, "redis required")
}

func TestConnect_Disabled(t *testing.T) {
	cfg := unreachableRedis()
	cfg.Enabled = false
	b, err := Connect(context.Background(), cfg, zap.NewNop(), false)
	require.NoError(t, err)
	assert.Nil(t, b.Client)
	assert.IsType(t, &InMemoryIdempotencyStore{}, b.Idempotency)
	assert.NoError(t, b.Close())
}
