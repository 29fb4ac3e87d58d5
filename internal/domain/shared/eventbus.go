package shared

import "context"

// EventHandler reacts to domain events delivered by the bus.
// A nil or empty EventTypes subscribes to every event.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the in-process dispatcher the outbox processor feeds
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver appends events to the outbox table. tx must be the
// *gorm.DB of the transaction that persisted the aggregate, so the
// events commit or roll back with it.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, tx any, events ...DomainEvent) error
}
