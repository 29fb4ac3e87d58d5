package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func orderCreated() *sales.OrderCreatedEvent {
	id := uuid.New()
	return &sales.OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeOrderCreated, sales.AggregateTypeOrder, id),
		OrderID:         id,
		OrderNumber:     "FF-20261017-0001",
		UserID:          uuid.New(),
		Total:           decimal.RequireFromString("598.00"),
		ItemCount:       2,
	}
}

func orderPaid() shared.DomainEvent {
	id := uuid.New()
	ev := shared.NewBaseDomainEvent(sales.EventTypeOrderPaid, sales.AggregateTypeOrder, id)
	return &ev
}

// recordingHandler remembers the events it saw and fails while err is set
type recordingHandler struct {
	name  string
	types []string

	mu   sync.Mutex
	seen []uuid.UUID
	err  error
}

func (h *recordingHandler) Name() string         { return h.name }
func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, ev.EventID())
	return h.err
}

func (h *recordingHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func (h *recordingHandler) failWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// memoryKeys is an IdempotencyStore over a map; down makes every call fail
type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]bool
	down bool
}

var errStoreDown = errors.New("idempotency store down")

func newMemoryKeys() *memoryKeys { return &memoryKeys{keys: make(map[string]bool)} }

func (s *memoryKeys) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return false, errStoreDown
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryKeys) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryKeys) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errStoreDown
	}
	delete(s.keys, key)
	return nil
}

func (s *memoryKeys) Close() error { return nil }

func mockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	m := testutil.NewMockDB(t)
	return m.DB, m.Mock
}

var outboxColumns = []string{
	"id", "event_id", "event_type", "aggregate_id", "aggregate_type", "payload",
	"status", "retry_count", "max_retries", "last_error", "next_retry_at",
	"processed_at", "created_at", "updated_at",
}
