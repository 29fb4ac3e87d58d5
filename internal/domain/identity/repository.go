package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists users. Delete cascades to addresses, payment
// methods, cart items and orders.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AddressRepository persists delivery addresses
type AddressRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*DeliveryAddress, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]DeliveryAddress, error)
	// Save stores the address; when it is the default, the user's other
	// addresses lose their default flag in the same transaction.
	Save(ctx context.Context, a *DeliveryAddress) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentMethodRepository persists saved payment methods
type PaymentMethodRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentMethod, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]PaymentMethod, error)
	Save(ctx context.Context, m *PaymentMethod) error
	Delete(ctx context.Context, id uuid.UUID) error
}
