package catalog

import (
	"strings"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a purchasable option of a product (size, colour, ...).
// A nil Price means the variant sells at the product price.
type ProductVariant struct {
	shared.BaseEntity
	ProductID     uuid.UUID
	SKU           string
	Name          string
	Price         *decimal.Decimal
	StockQuantity int
	Options       map[string]string
	IsActive      bool
}

// NewProductVariant creates an active variant
func NewProductVariant(productID uuid.UUID, sku, name string, price *decimal.Decimal, stock int, options map[string]string) (*ProductVariant, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Variant name cannot be empty")
	}
	if price != nil && price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Stock quantity cannot be negative")
	}
	if options == nil {
		options = map[string]string{}
	}
	return &ProductVariant{
		BaseEntity:    shared.NewBaseEntity(),
		ProductID:     productID,
		SKU:           sku,
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		Options:       options,
		IsActive:      true,
	}, nil
}

// EffectivePrice is the variant price, or productPrice when the variant has none
func (v *ProductVariant) EffectivePrice(productPrice decimal.Decimal) decimal.Decimal {
	if v.Price == nil {
		return productPrice
	}
	return *v.Price
}

// Update changes name, price, stock and active flag of the variant
func (v *ProductVariant) Update(name string, price *decimal.Decimal, stock int, isActive bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Variant name cannot be empty")
	}
	if price != nil && price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if stock < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Stock quantity cannot be negative")
	}
	v.Name = name
	v.Price = price
	v.StockQuantity = stock
	v.IsActive = isActive
	v.Touch()
	return nil
}
