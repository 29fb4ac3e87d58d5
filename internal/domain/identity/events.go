package identity

import (
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant for User
const AggregateTypeUser = "User"

// User domain event types
const (
	EventTypeUserRegistered = "UserRegistered"
)

// UserRegisteredEvent is published when a customer account is created
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent
func NewUserRegisteredEvent(u *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRegistered, AggregateTypeUser, u.ID),
		UserID:          u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
	}
}
