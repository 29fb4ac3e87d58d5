package event

import (
	"context"
	"sync/atomic"

	"github.com/flipflop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyStats counts what wrapped handlers did with delivered events
type IdempotencyStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotentHandler runs a handler at most once per event. Outbox relays are
// at-least-once, so every bus subscriber that has side effects is wrapped.
//
// The processed key is scoped to the handler name: two wrapped handlers
// receiving the same event do not suppress each other. A failed run forgets
// its key so the outbox retry executes the handler again.
type IdempotentHandler struct {
	handler shared.EventHandler
	name    string
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed, duplicate, failed atomic.Int64
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the key TTL or disables deduplication
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithHandlerName sets the key scope; defaults to the wrapped handler's name
func WithHandlerName(name string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.name = name
	}
}

// NewIdempotentHandler wraps handler
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		name:    handlerName(handler),
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name is the key scope of this handler
func (h *IdempotentHandler) Name() string { return h.name }

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

func (h *IdempotentHandler) key(ev shared.DomainEvent) string {
	return "event:" + h.name + ":" + ev.EventID().String()
}

// Handle runs the wrapped handler unless this event was already handled. An
// unreachable store does not block delivery: the event is processed anyway.
func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, ev)
	}

	log := h.logger.With(
		zap.String("handler", h.name),
		zap.String("event_id", ev.EventID().String()),
		zap.String("event_type", ev.EventType()),
	)

	key := h.key(ev)
	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		log.Warn("Idempotency store unavailable, processing event anyway", zap.Error(err))
	case !fresh:
		h.duplicate.Add(1)
		log.Debug("Duplicate event skipped")
		return nil
	}

	if err := h.handler.Handle(ctx, ev); err != nil {
		h.failed.Add(1)
		if ferr := h.store.Forget(ctx, key); ferr != nil {
			log.Warn("Failed to forget idempotency key", zap.Error(ferr))
		}
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns a snapshot of the counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed: h.processed.Load(),
		Duplicate: h.duplicate.Load(),
		Failed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
