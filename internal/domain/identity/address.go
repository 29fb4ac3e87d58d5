package identity

import (
	"strings"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DeliveryAddress is a shipping destination owned by a user
type DeliveryAddress struct {
	shared.BaseEntity
	UserID     uuid.UUID
	FirstName  string
	LastName   string
	Street     string
	City       string
	PostalCode string
	Country    string
	Phone      string
	IsDefault  bool
}

// AddressFields are the editable parts of a delivery address
type AddressFields struct {
	FirstName  string
	LastName   string
	Street     string
	City       string
	PostalCode string
	Country    string
	Phone      string
}

// NewDeliveryAddress creates an address for userID
func NewDeliveryAddress(userID uuid.UUID, f AddressFields, isDefault bool) (*DeliveryAddress, error) {
	a := &DeliveryAddress{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		IsDefault:  isDefault,
	}
	if err := a.Update(f); err != nil {
		return nil, err
	}
	return a, nil
}

// Update replaces the address fields
func (a *DeliveryAddress) Update(f AddressFields) error {
	f.Street = strings.TrimSpace(f.Street)
	f.City = strings.TrimSpace(f.City)
	f.PostalCode = strings.TrimSpace(f.PostalCode)
	f.Country = strings.TrimSpace(f.Country)
	if f.Street == "" || f.City == "" || f.PostalCode == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Street, city and postal code are required")
	}
	if f.Country == "" {
		f.Country = "Czech Republic"
	}
	a.FirstName = strings.TrimSpace(f.FirstName)
	a.LastName = strings.TrimSpace(f.LastName)
	a.Street = f.Street
	a.City = f.City
	a.PostalCode = f.PostalCode
	a.Country = f.Country
	a.Phone = strings.TrimSpace(f.Phone)
	a.UpdatedAt = time.Now()
	return nil
}

// BelongsTo reports whether the address is owned by userID
func (a *DeliveryAddress) BelongsTo(userID uuid.UUID) bool {
	return a.UserID == userID
}

// OneLine renders the address on a single line
func (a *DeliveryAddress) OneLine() string {
	return strings.Join([]string{a.Street, a.PostalCode + " " + a.City, a.Country}, ", ")
}
