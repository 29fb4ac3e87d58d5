package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultCleanupInterval = 30 * time.Second

type cacheEntry[T any] struct {
	value     *T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// LocalCache is a per-process TTL map used as the L1 tier
type LocalCache[T any] struct {
	entries sync.Map // map[string]*cacheEntry[T]
	ttl     time.Duration
	stopCh  chan struct{}
	stopped atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLocalCache starts a janitor that sweeps expired entries every 30s
func NewLocalCache[T any](ttl time.Duration) *LocalCache[T] {
	c := &LocalCache[T]{ttl: ttl, stopCh: make(chan struct{})}
	go c.janitor(defaultCleanupInterval)
	return c
}

func (c *LocalCache[T]) Get(key string) (*T, bool) {
	raw, ok := c.entries.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	e := raw.(*cacheEntry[T])
	if e.isExpired(time.Now()) {
		c.entries.Delete(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

func (c *LocalCache[T]) Set(key string, value *T) {
	c.entries.Store(key, &cacheEntry[T]{value: value, expiresAt: time.Now().Add(c.ttl)})
}

func (c *LocalCache[T]) Delete(key string) {
	c.entries.Delete(key)
}

func (c *LocalCache[T]) Clear() {
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
}

func (c *LocalCache[T]) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Stats returns hit and miss counters
func (c *LocalCache[T]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LocalCache[T]) Close() {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
}

func (c *LocalCache[T]) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *LocalCache[T]) sweep() {
	now := time.Now()
	c.entries.Range(func(k, v any) bool {
		if v.(*cacheEntry[T]).isExpired(now) {
			c.entries.Delete(k)
		}
		return true
	})
}
