package event

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/flipflop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers events relayed from the outbox to in-process
// handlers. Delivery is synchronous: Publish returns once every handler ran.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	catchAll []shared.EventHandler

	logger  *zap.Logger
	running atomic.Bool
}

// NewInMemoryEventBus creates an event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		byType: make(map[string][]shared.EventHandler),
		logger: logger.Named("event_bus"),
	}
}

// Subscribe registers handler for eventTypes, or for the handler's own
// EventTypes when none are given. A handler declaring no types receives
// every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(eventTypes) == 0 {
		b.catchAll = append(b.catchAll, handler)
	}
	for _, t := range eventTypes {
		b.byType[t] = append(b.byType[t], handler)
	}
	b.logger.Debug("Handler subscribed",
		zap.String("handler", handlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	drop := func(h shared.EventHandler) bool { return h == handler }
	b.catchAll = slices.DeleteFunc(b.catchAll, drop)
	for t, hs := range b.byType {
		if hs = slices.DeleteFunc(hs, drop); len(hs) == 0 {
			delete(b.byType, t)
		} else {
			b.byType[t] = hs
		}
	}
}

// handlersFor returns a snapshot so handlers may subscribe while publishing
func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]shared.EventHandler, 0, len(b.byType[eventType])+len(b.catchAll))
	out = append(out, b.byType[eventType]...)
	return append(out, b.catchAll...)
}

// Publish runs every handler of each event. All handlers run even when one
// fails; the failures are joined into the returned error so the outbox
// schedules the entry for another attempt.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, ev := range events {
		for _, h := range b.handlersFor(ev.EventType()) {
			if err := b.deliver(ctx, h, ev); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("handler", handlerName(h)),
					zap.String("event_type", ev.EventType()),
					zap.String("event_id", ev.EventID().String()),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("%s: %w", handlerName(h), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryEventBus) deliver(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.logger.Info("Event bus started")
	return nil
}

// Stop marks the bus as stopped. Publish is synchronous so nothing is in flight.
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.running.Store(false)
	b.logger.Info("Event bus stopped")
	return nil
}

// Running reports whether Start was called without a later Stop
func (b *InMemoryEventBus) Running() bool {
	return b.running.Load()
}

type namedHandler interface {
	Name() string
}

func handlerName(h shared.EventHandler) string {
	if n, ok := h.(namedHandler); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
