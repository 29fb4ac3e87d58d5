package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/flipflop/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps GORM sentinel errors onto domain errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	}
	return err
}

// outboxWriter is embedded by repositories that persist aggregates raising events
type outboxWriter struct {
	outboxSaver shared.OutboxEventSaver
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (w *outboxWriter) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	w.outboxSaver = saver
}

// saveEvents writes events to the outbox inside tx. Without a saver the events are dropped.
func (w *outboxWriter) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if w.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := w.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}
