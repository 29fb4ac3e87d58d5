package event

import (
	"context"
	"fmt"

	"github.com/flipflop/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher stages aggregate events as PENDING outbox rows. Rows are
// written through the caller's transaction: an order and its OrderCreated
// event commit together or not at all.
type OutboxPublisher struct {
	serializer *EventSerializer
}

func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// Append serializes every event before inserting any row
func (p *OutboxPublisher) Append(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for i, ev := range events {
		payload, err := p.serializer.Serialize(ev)
		if err != nil {
			return fmt.Errorf("outbox: serialize event %d: %w", i, err)
		}
		entries = append(entries, shared.NewOutboxEntry(ev, payload))
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver
func (p *OutboxPublisher) SaveEvents(ctx context.Context, tx any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox: transaction must be *gorm.DB, got %T", tx)
	}
	return p.Append(ctx, db, events...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
