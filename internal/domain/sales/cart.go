package sales

import (
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a user's shopping cart. Price is captured when the
// line is first added.
type CartItem struct {
	shared.BaseEntity
	UserID    uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

// NewCartItem creates a cart line
func NewCartItem(userID, productID uuid.UUID, variantID *uuid.UUID, quantity int, price decimal.Decimal) (*CartItem, error) {
	if quantity < 1 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	return &CartItem{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		ProductID:  productID,
		VariantID:  variantID,
		Quantity:   quantity,
		Price:      price,
	}, nil
}

// Increase adds quantity to an existing line
func (c *CartItem) Increase(quantity int) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	c.Quantity += quantity
	c.UpdatedAt = time.Now()
	return nil
}

// SetQuantity overwrites the line quantity
func (c *CartItem) SetQuantity(quantity int) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	c.Quantity = quantity
	c.UpdatedAt = time.Now()
	return nil
}

// LineTotal is price times quantity
func (c *CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// SameLine reports whether the item is for the given product and variant
func (c *CartItem) SameLine(productID uuid.UUID, variantID *uuid.UUID) bool {
	if c.ProductID != productID {
		return false
	}
	if c.VariantID == nil || variantID == nil {
		return c.VariantID == nil && variantID == nil
	}
	return *c.VariantID == *variantID
}
