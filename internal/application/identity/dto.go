package identity

import (
	"time"

	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
)

// RegisterRequest creates a customer account
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Phone     string `json:"phone" binding:"max=50"`
}

// LoginRequest contains the input for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke with the session
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// DeleteAccountRequest confirms account deletion with the current password
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest contains the input for password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	Tokens *auth.TokenPair `json:"tokens"`
	User   UserResponse    `json:"user"`
}

// UserResponse is the API view of a user
type UserResponse struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Phone       string         `json:"phone,omitempty"`
	IsAdmin     bool           `json:"is_admin"`
	IsActive    bool           `json:"is_active"`
	Preferences map[string]any `json:"preferences"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ToUserResponse converts a user to its API view
func ToUserResponse(u *identity.User) UserResponse {
	prefs := u.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		IsAdmin:     u.IsAdmin,
		IsActive:    u.IsActive,
		Preferences: prefs,
		CreatedAt:   u.CreatedAt,
	}
}

// UpdateProfileRequest changes the provided profile fields
type UpdateProfileRequest struct {
	FirstName   *string        `json:"first_name" binding:"omitempty,max=100"`
	LastName    *string        `json:"last_name" binding:"omitempty,max=100"`
	Phone       *string        `json:"phone" binding:"omitempty,max=50"`
	Preferences map[string]any `json:"preferences"`
}

// AddressRequest creates or replaces a delivery address
type AddressRequest struct {
	FirstName  string `json:"first_name" binding:"max=100"`
	LastName   string `json:"last_name" binding:"max=100"`
	Street     string `json:"street" binding:"required,max=255"`
	City       string `json:"city" binding:"required,max=100"`
	PostalCode string `json:"postal_code" binding:"required,max=20"`
	Country    string `json:"country" binding:"max=100"`
	Phone      string `json:"phone" binding:"max=50"`
	IsDefault  bool   `json:"is_default"`
}

func (r AddressRequest) fields() identity.AddressFields {
	return identity.AddressFields{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Street:     r.Street,
		City:       r.City,
		PostalCode: r.PostalCode,
		Country:    r.Country,
		Phone:      r.Phone,
	}
}

// AddressResponse is the API view of a delivery address
type AddressResponse struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone,omitempty"`
	IsDefault  bool      `json:"is_default"`
}

func toAddressResponse(a *identity.DeliveryAddress) AddressResponse {
	return AddressResponse{
		ID:         a.ID,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		IsDefault:  a.IsDefault,
	}
}

// PaymentMethodRequest saves a payment preference
type PaymentMethodRequest struct {
	Type      string         `json:"type" binding:"required,oneof=payu card bank_transfer cash_on_delivery"`
	Provider  string         `json:"provider" binding:"max=100"`
	Metadata  map[string]any `json:"metadata"`
	IsDefault bool           `json:"is_default"`
}

// PaymentMethodResponse is the API view of a saved payment method
type PaymentMethodResponse struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Provider  string         `json:"provider,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	IsDefault bool           `json:"is_default"`
	IsActive  bool           `json:"is_active"`
}

func toPaymentMethodResponse(m *identity.PaymentMethod) PaymentMethodResponse {
	return PaymentMethodResponse{
		ID:        m.ID,
		Type:      string(m.Type),
		Provider:  m.Provider,
		Metadata:  m.Metadata,
		IsDefault: m.IsDefault,
		IsActive:  m.IsActive,
	}
}
