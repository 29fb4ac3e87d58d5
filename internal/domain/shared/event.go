package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate. Events travel through the
// outbox as JSON, so implementations must round-trip through encoding/json.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// BaseDomainEvent is embedded by every concrete event
type BaseDomainEvent struct {
	ID     uuid.UUID `json:"id"`
	Type   string    `json:"type"`
	At     time.Time `json:"occurred_at"`
	Source uuid.UUID `json:"aggregate_id"`
	Kind   string    `json:"aggregate_type"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.Source }
func (e *BaseDomainEvent) AggregateType() string  { return e.Kind }

// NewBaseDomainEvent stamps a fresh event ID and the current UTC time
func NewBaseDomainEvent(eventType, aggregateType string, aggregateID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:     uuid.New(),
		Type:   eventType,
		At:     time.Now().UTC(),
		Source: aggregateID,
		Kind:   aggregateType,
	}
}
