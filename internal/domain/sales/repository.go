package sales

import (
	"context"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderQuery filters order listings
type OrderQuery struct {
	shared.Filter
	UserID        *uuid.UUID
	Status        *OrderStatus
	PaymentStatus *PaymentStatus
}

// OrderRepository persists orders with their items and status history
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*Order, error)
	List(ctx context.Context, q OrderQuery) ([]Order, int64, error)
	// Create inserts a new order with items and history.
	Create(ctx context.Context, o *Order) error
	// SaveWithLock updates the order if its stored version still equals
	// o.Version, then increments o.Version. It appends pending history.
	// A stale version yields shared.ErrConcurrencyConflict.
	SaveWithLock(ctx context.Context, o *Order) error
	NextOrderNumber(ctx context.Context, at time.Time) (string, error)
}

// CartRepository persists cart lines
type CartRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]CartItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*CartItem, error)
	FindLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*CartItem, error)
	Save(ctx context.Context, item *CartItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearByUser(ctx context.Context, userID uuid.UUID) error
}
