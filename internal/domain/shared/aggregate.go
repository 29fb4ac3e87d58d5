package shared

import "slices"

// BaseAggregateRoot is embedded by aggregates that raise domain events.
// Version is the optimistic lock token compared on every save; the events
// collected here are written to the outbox in the same transaction.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues an event until the aggregate is saved
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the queued events in the order they were raised
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the queue once the events are in the outbox
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// Clone copies the root with its own event queue
func (a *BaseAggregateRoot) Clone() BaseAggregateRoot {
	c := *a
	c.domainEvents = slices.Clone(a.domainEvents)
	return c
}
