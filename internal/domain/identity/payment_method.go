package identity

import (
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentMethodType enumerates the supported ways to pay
type PaymentMethodType string

const (
	PaymentMethodPayU           PaymentMethodType = "payu"
	PaymentMethodCard           PaymentMethodType = "card"
	PaymentMethodBankTransfer   PaymentMethodType = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethodType = "cash_on_delivery"
)

// IsValid reports whether t is a known payment method type
func (t PaymentMethodType) IsValid() bool {
	switch t {
	case PaymentMethodPayU, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// PaymentMethod is a saved payment preference of a user
type PaymentMethod struct {
	shared.BaseEntity
	UserID    uuid.UUID
	Type      PaymentMethodType
	Provider  string
	Metadata  map[string]any
	IsDefault bool
	IsActive  bool
}

// NewPaymentMethod creates an active payment method
func NewPaymentMethod(userID uuid.UUID, t PaymentMethodType, provider string, metadata map[string]any, isDefault bool) (*PaymentMethod, error) {
	if !t.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unsupported payment method type")
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &PaymentMethod{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Type:       t,
		Provider:   provider,
		Metadata:   metadata,
		IsDefault:  isDefault,
		IsActive:   true,
	}, nil
}
