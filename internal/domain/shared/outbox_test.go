package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	BaseDomainEvent
}

func TestNewOutboxEntry(t *testing.T) {
	orderID := uuid.New()
	ev := &testEvent{BaseDomainEvent: NewBaseDomainEvent("OrderCreated", "Order", orderID)}

	entry := NewOutboxEntry(ev, []byte(`{}`))

	assert.Equal(t, ev.ID, entry.EventID)
	assert.Equal(t, "OrderCreated", entry.EventType)
	assert.Equal(t, orderID, entry.AggregateID)
	assert.Equal(t, "Order", entry.AggregateType)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("schedules retry with backoff", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, MaxRetries: 3}

		entry.MarkFailed("boom")

		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		assert.Equal(t, "boom", entry.LastError)
		require.NotNil(t, entry.NextRetryAt)
		assert.WithinDuration(t, time.Now().Add(time.Second), *entry.NextRetryAt, 500*time.Millisecond)
		assert.True(t, entry.CanRetry())
	})

	t.Run("moves to dead letter after max retries", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, MaxRetries: 2, RetryCount: 1}

		entry.MarkFailed("still broken")

		assert.True(t, entry.IsDead())
		assert.Nil(t, entry.NextRetryAt)
		assert.False(t, entry.CanRetry())
	})
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{9, 256 * time.Second},
		{10, MaxBackoff},
		{12, MaxBackoff},
		{64, MaxBackoff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("resets dead entry", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusDead, RetryCount: 5, LastError: "x"}

		require.NoError(t, entry.ResetForRetry())
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.RetryCount)
		assert.Empty(t, entry.LastError)
	})

	t.Run("rejects non-dead entry", func(t *testing.T) {
		for _, status := range []OutboxStatus{OutboxStatusPending, OutboxStatusSent, OutboxStatusFailed} {
			entry := &OutboxEntry{Status: status}
			assert.ErrorIs(t, entry.ResetForRetry(), ErrNotDeadLetter)
		}
	})
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusProcessing}
	entry.MarkSent()
	assert.Equal(t, OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)
}
