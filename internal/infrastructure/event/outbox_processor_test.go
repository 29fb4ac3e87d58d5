package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryOutbox is an OutboxRepository over a map with the same claim
// semantics as the database: only pending or failed entries can be claimed
type memoryOutbox struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*shared.OutboxEntry
	order   []uuid.UUID
	loadErr error
	updates int
}

func newMemoryOutbox() *memoryOutbox {
	return &memoryOutbox{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memoryOutbox) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return nil
}

func (r *memoryOutbox) where(limit int, keep func(*shared.OutboxEntry) bool) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	var out []*shared.OutboxEntry
	for _, id := range r.order {
		if e := r.entries[id]; keep(e) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryOutbox) FindPending(_ context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return r.where(limit, func(e *shared.OutboxEntry) bool { return e.Status == shared.OutboxStatusPending })
}

func (r *memoryOutbox) FindRetryable(_ context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return r.where(limit, func(e *shared.OutboxEntry) bool {
		return e.Status == shared.OutboxStatusFailed && e.NextRetryAt != nil && !e.NextRetryAt.After(before)
	})
}

func (r *memoryOutbox) FindDead(context.Context, int, int) ([]*shared.OutboxEntry, int64, error) {
	return nil, 0, nil
}

func (r *memoryOutbox) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryOutbox) MarkProcessing(_ context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.OutboxEntry
	for _, id := range ids {
		e, ok := r.entries[id]
		if !ok || (e.Status != shared.OutboxStatusPending && e.Status != shared.OutboxStatusFailed) {
			continue
		}
		e.Status = shared.OutboxStatusProcessing
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryOutbox) Update(_ context.Context, e *shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e
	r.updates++
	return nil
}

func (r *memoryOutbox) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.entries {
		if e.Status == shared.OutboxStatusSent && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.entries, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryOutbox) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (r *memoryOutbox) status(id uuid.UUID) shared.OutboxStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id].Status
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *countingRecorder) OutboxProcessed(result string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[result] += n
}

type processorFixture struct {
	repo      *memoryOutbox
	bus       *InMemoryEventBus
	stock     *recordingHandler
	recorder  *countingRecorder
	processor *OutboxProcessor
	clock     time.Time
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	s := NewEventSerializer()
	RegisterAllEvents(s)

	f := &processorFixture{
		repo:     newMemoryOutbox(),
		bus:      NewInMemoryEventBus(nil),
		stock:    stockHandler(),
		recorder: &countingRecorder{},
		clock:    time.Now(),
	}
	f.bus.Subscribe(f.stock)
	f.processor = NewOutboxProcessor(f.repo, f.bus, s, OutboxProcessorConfig{BatchSize: 10}, nil)
	f.processor.SetRecorder(f.recorder)
	f.processor.now = func() time.Time { return f.clock }
	return f
}

func (f *processorFixture) enqueue(t *testing.T, ev shared.DomainEvent) *shared.OutboxEntry {
	t.Helper()
	payload, err := f.processor.serializer.Serialize(ev)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(ev, payload)
	require.NoError(t, f.repo.Save(context.Background(), entry))
	return entry
}

func TestOutboxProcessor_DeliversPendingEntries(t *testing.T) {
	f := newProcessorFixture(t)
	a := f.enqueue(t, orderCreated())
	b := f.enqueue(t, orderCreated())

	assert.Equal(t, 2, f.processor.RunOnce(context.Background()))

	assert.Equal(t, 2, f.stock.calls())
	for _, e := range []*shared.OutboxEntry{a, b} {
		assert.Equal(t, shared.OutboxStatusSent, f.repo.status(e.ID))
		assert.NotNil(t, e.ProcessedAt)
	}
	assert.Equal(t, 2, f.recorder.outcomes[OutcomePublished])

	assert.Zero(t, f.processor.RunOnce(context.Background()), "sent entries are not relayed again")
}

func TestOutboxProcessor_HandlerFailureSchedulesRetry(t *testing.T) {
	f := newProcessorFixture(t)
	f.stock.failWith(errors.New("catalog unavailable"))
	entry := f.enqueue(t, orderCreated())

	assert.Zero(t, f.processor.RunOnce(context.Background()))
	assert.Equal(t, shared.OutboxStatusFailed, entry.Status)
	assert.Equal(t, 1, entry.RetryCount)
	assert.Contains(t, entry.LastError, "catalog unavailable")
	require.NotNil(t, entry.NextRetryAt)
	assert.Equal(t, 1, f.recorder.outcomes[OutcomeRetried])

	// not due yet
	assert.Zero(t, f.processor.RunOnce(context.Background()))
	assert.Equal(t, 1, f.stock.calls())

	f.stock.failWith(nil)
	f.clock = entry.NextRetryAt.Add(time.Millisecond)
	assert.Equal(t, 1, f.processor.RunOnce(context.Background()))
	assert.Equal(t, shared.OutboxStatusSent, entry.Status)
	assert.Equal(t, 2, f.stock.calls())
}

func TestOutboxProcessor_ExhaustedRetriesGoDead(t *testing.T) {
	f := newProcessorFixture(t)
	f.stock.failWith(errors.New("smtp timeout"))
	entry := f.enqueue(t, orderCreated())
	entry.MaxRetries = 2

	f.processor.RunOnce(context.Background())
	f.clock = entry.NextRetryAt.Add(time.Second)
	f.processor.RunOnce(context.Background())

	assert.True(t, entry.IsDead())
	assert.Nil(t, entry.NextRetryAt)
	assert.Equal(t, 1, f.recorder.outcomes[OutcomeDead])

	f.clock = f.clock.Add(time.Hour)
	f.processor.RunOnce(context.Background())
	assert.Equal(t, 2, f.stock.calls(), "dead entries are left for an admin")
}

func TestOutboxProcessor_UnknownEventTypeFails(t *testing.T) {
	f := newProcessorFixture(t)
	ev := shared.NewBaseDomainEvent("ParcelLost", sales.AggregateTypeOrder, uuid.New())
	entry := shared.NewOutboxEntry(&ev, []byte(`{}`))
	require.NoError(t, f.repo.Save(context.Background(), entry))

	f.processor.RunOnce(context.Background())

	assert.Equal(t, shared.OutboxStatusFailed, entry.Status)
	assert.Contains(t, entry.LastError, ErrUnknownEventType.Error())
	assert.Zero(t, f.stock.calls())
}

func TestOutboxProcessor_RedeliveryIsSkippedByIdempotentHandler(t *testing.T) {
	f := newProcessorFixture(t)
	f.bus.Unsubscribe(f.stock)
	f.bus.Subscribe(NewIdempotentHandler(f.stock, newMemoryKeys(), nil))
	entry := f.enqueue(t, orderCreated())

	f.processor.RunOnce(context.Background())
	// a crash after the handlers ran but before the entry was marked sent
	entry.Status = shared.OutboxStatusPending
	f.processor.RunOnce(context.Background())

	assert.Equal(t, 1, f.stock.calls())
	assert.Equal(t, shared.OutboxStatusSent, entry.Status)
}

func TestOutboxProcessor_LoadErrorDeliversNothing(t *testing.T) {
	f := newProcessorFixture(t)
	f.enqueue(t, orderCreated())
	f.repo.loadErr = errors.New("connection refused")

	assert.Zero(t, f.processor.RunOnce(context.Background()))
	assert.Zero(t, f.stock.calls())
}

func TestOutboxProcessor_CleanupPurgesOldSentEntries(t *testing.T) {
	f := newProcessorFixture(t)
	f.processor.cfg.CleanupRetention = 24 * time.Hour
	old := f.enqueue(t, orderCreated())
	fresh := f.enqueue(t, orderCreated())
	f.processor.RunOnce(context.Background())

	week := f.clock.Add(-7 * 24 * time.Hour)
	old.ProcessedAt = &week

	f.processor.cleanup(context.Background())

	_, err := f.repo.FindByID(context.Background(), old.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.repo.FindByID(context.Background(), fresh.ID)
	assert.NoError(t, err)
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	f := newProcessorFixture(t)
	f.processor.cfg.PollInterval = 10 * time.Millisecond
	f.processor.cfg.CleanupEnabled = true
	f.processor.cfg.CleanupInterval = time.Hour
	f.processor.now = time.Now
	entry := f.enqueue(t, orderCreated())

	require.NoError(t, f.processor.Start(context.Background()))
	assert.Eventually(t, func() bool { return f.stock.calls() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.processor.Stop(ctx))
	assert.Equal(t, shared.OutboxStatusSent, f.repo.status(entry.ID))
}

func TestDefaultOutboxProcessorConfig(t *testing.T) {
	cfg := DefaultOutboxProcessorConfig()
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.True(t, cfg.CleanupEnabled)
	assert.Equal(t, 7*24*time.Hour, cfg.CleanupRetention)
}
