package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry.
//
//	PENDING -> PROCESSING -> SENT
//	               |
//	               +-> FAILED -> PROCESSING ... -> DEAD -> (requeue) PENDING
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 5 * time.Minute
)

// ErrNotDeadLetter is returned when requeueing an entry that has not died
var ErrNotDeadLetter = NewDomainError("INVALID_STATUS", "Only dead letter entries can be retried")

// OutboxEntry is a serialized domain event written in the same transaction
// as the aggregate change that raised it
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry queues payload, the encoded form of event
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (e *OutboxEntry) IsDead() bool { return e.Status == OutboxStatusDead }

// CanRetry reports whether a failed entry has attempts left
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

func (e *OutboxEntry) touch() time.Time {
	e.UpdatedAt = time.Now()
	return e.UpdatedAt
}

// MarkSent records delivery to every handler
func (e *OutboxEntry) MarkSent() {
	now := e.touch()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
}

// MarkFailed counts a failed delivery. The entry is rescheduled with
// exponential backoff until MaxRetries attempts have failed, then it is dead.
func (e *OutboxEntry) MarkFailed(reason string) {
	now := e.touch()
	e.RetryCount++
	e.LastError = reason
	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(Backoff(e.RetryCount))
	e.NextRetryAt = &next
}

// ResetForRetry requeues a dead entry with a fresh retry budget
func (e *OutboxEntry) ResetForRetry() error {
	if !e.IsDead() {
		return ErrNotDeadLetter
	}
	e.touch()
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	return nil
}

// Backoff is the wait after the attempt-th failure: 1s, 2s, 4s, ... up to
// MaxBackoff
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return DefaultBaseBackoff
	}
	// 2^9 s already exceeds MaxBackoff; clamp before shifting
	shift := min(attempt-1, 9)
	return min(DefaultBaseBackoff<<shift, MaxBackoff)
}

// OutboxRepository stores outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns failed entries whose next attempt is due
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// MarkProcessing claims the given entries; ones already claimed elsewhere
	// are left out of the result
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
