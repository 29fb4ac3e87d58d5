package event

import (
	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/sales"
)

// RegisterAllEvents registers every domain event the outbox may carry so the
// processor can rebuild them from stored payloads
func RegisterAllEvents(s *EventSerializer) {
	register[sales.OrderCreatedEvent](s, sales.EventTypeOrderCreated)
	register[sales.OrderConfirmedEvent](s, sales.EventTypeOrderConfirmed)
	register[sales.OrderStatusChangedEvent](s, sales.EventTypeOrderStatusChanged)
	register[sales.OrderCancelledEvent](s, sales.EventTypeOrderCancelled)
	register[sales.OrderPaidEvent](s, sales.EventTypeOrderPaid)
	register[sales.OrderRefundedEvent](s, sales.EventTypeOrderRefunded)

	register[catalog.ProductCreatedEvent](s, catalog.EventTypeProductCreated)
	register[catalog.ProductUpdatedEvent](s, catalog.EventTypeProductUpdated)
	register[catalog.ProductPriceChangedEvent](s, catalog.EventTypeProductPriceChanged)
	register[catalog.ProductDeletedEvent](s, catalog.EventTypeProductDeleted)
	register[catalog.CategoryCreatedEvent](s, catalog.EventTypeCategoryCreated)

	register[identity.UserRegisteredEvent](s, identity.EventTypeUserRegistered)
}
