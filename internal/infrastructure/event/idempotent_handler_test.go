package event

import (
	"context"
	"errors"
	"testing"

	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockHandler() *recordingHandler {
	return &recordingHandler{name: "low_stock", types: []string{sales.EventTypeOrderCreated}}
}

func TestIdempotentHandler_SkipsRedelivery(t *testing.T) {
	inner := stockHandler()
	h := NewIdempotentHandler(inner, newMemoryKeys(), nil)
	ev := orderCreated()

	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))

	assert.Equal(t, 1, inner.calls())
	assert.Equal(t, IdempotencyStats{Processed: 1, Duplicate: 1}, h.Stats())
}

func TestIdempotentHandler_KeysScopedPerHandler(t *testing.T) {
	store := newMemoryKeys()
	stock := NewIdempotentHandler(stockHandler(), store, nil)
	mail := NewIdempotentHandler(&recordingHandler{name: "order_mail"}, store, nil)
	ev := orderCreated()

	require.NoError(t, stock.Handle(context.Background(), ev))
	require.NoError(t, mail.Handle(context.Background(), ev))

	assert.EqualValues(t, 1, stock.Stats().Processed)
	assert.EqualValues(t, 1, mail.Stats().Processed)
	assert.True(t, store.keys["event:low_stock:"+ev.EventID().String()])
	assert.True(t, store.keys["event:order_mail:"+ev.EventID().String()])
}

func TestIdempotentHandler_FailureAllowsRetry(t *testing.T) {
	inner := stockHandler()
	inner.failWith(errors.New("catalog unavailable"))
	store := newMemoryKeys()
	h := NewIdempotentHandler(inner, store, nil)
	ev := orderCreated()

	require.Error(t, h.Handle(context.Background(), ev))
	assert.Empty(t, store.keys, "failed run must release its key")

	inner.failWith(nil)
	require.NoError(t, h.Handle(context.Background(), ev))

	assert.Equal(t, 2, inner.calls())
	assert.Equal(t, IdempotencyStats{Processed: 1, Failed: 1}, h.Stats())
}

func TestIdempotentHandler_StoreDownStillProcesses(t *testing.T) {
	inner := stockHandler()
	store := newMemoryKeys()
	store.down = true
	h := NewIdempotentHandler(inner, store, nil)
	ev := orderCreated()

	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))

	assert.Equal(t, 2, inner.calls())
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	inner := stockHandler()
	store := newMemoryKeys()
	h := NewIdempotentHandler(inner, store, nil,
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
	ev := orderCreated()

	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))

	assert.Equal(t, 2, inner.calls())
	assert.Empty(t, store.keys)
}

func TestIdempotentHandler_NameAndTypes(t *testing.T) {
	h := NewIdempotentHandler(stockHandler(), newMemoryKeys(), nil)
	assert.Equal(t, "low_stock", h.Name())
	assert.Equal(t, []string{sales.EventTypeOrderCreated}, h.EventTypes())

	renamed := NewIdempotentHandler(stockHandler(), newMemoryKeys(), nil, WithHandlerName("stock_v2"))
	assert.Equal(t, "stock_v2", renamed.Name())
}

func TestIdempotentHandler_OnBus(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	inner := stockHandler()
	bus.Subscribe(NewIdempotentHandler(inner, newMemoryKeys(), nil))
	ev := orderCreated()

	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Publish(context.Background(), ev))

	assert.Equal(t, 1, inner.calls())
}
