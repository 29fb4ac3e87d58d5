package cache

import (
	"context"
	"sync"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
)

const idempotencySweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore claims keys in process memory. It backs
// single-replica deployments without Redis and tests.
type InMemoryIdempotencyStore struct {
	mu     sync.Mutex
	expiry map[string]time.Time
	now    func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewInMemoryIdempotencyStore starts a janitor that drops expired claims
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expiry: make(map[string]time.Time),
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.janitor(idempotencySweepInterval)
	return s
}

// live reports whether key holds an unexpired claim; callers hold mu
func (s *InMemoryIdempotencyStore) live(key string) bool {
	exp, ok := s.expiry[key]
	return ok && s.now().Before(exp)
}

// MarkProcessed claims key for ttl. It returns false while an earlier
// claim is still live.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live(key) {
		return false, nil
	}
	s.expiry[key] = s.now().Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key), nil
}

// Forget releases key so the guarded work can run again
func (s *InMemoryIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.expiry, key)
	s.mu.Unlock()
	return nil
}

// Close stops the janitor; further calls are no-ops
func (s *InMemoryIdempotencyStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

// Size counts stored claims, expired ones included until the next sweep
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiry)
}

func (s *InMemoryIdempotencyStore) janitor(every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.expiry {
		if !s.live(key) {
			delete(s.expiry, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
