package supplier

import (
	"context"
	"strings"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultProfitMargin is the markup in percent applied to supplier prices
var DefaultProfitMargin = decimal.NewFromInt(30)

// SupplierProduct is an item from a supplier catalogue, optionally linked to
// a catalog product.
type SupplierProduct struct {
	shared.BaseEntity
	SupplierID    uuid.UUID
	ProductID     *uuid.UUID
	SupplierSKU   string
	Name          string
	SupplierPrice decimal.Decimal
	ProfitMargin  decimal.Decimal
	SupplierStock int
	LastSyncedAt  *time.Time
}

// NewSupplierProduct creates an unlinked supplier product with the default margin
func NewSupplierProduct(supplierID uuid.UUID, sku, name string, price decimal.Decimal, stock int) (*SupplierProduct, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "Supplier SKU cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Supplier price cannot be negative")
	}
	return &SupplierProduct{
		BaseEntity:    shared.NewBaseEntity(),
		SupplierID:    supplierID,
		SupplierSKU:   sku,
		Name:          name,
		SupplierPrice: price,
		ProfitMargin:  DefaultProfitMargin,
		SupplierStock: max(stock, 0),
	}, nil
}

// RetailPrice is supplierPrice * (1 + margin/100), rounded to two decimals
func (p *SupplierProduct) RetailPrice() decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(p.ProfitMargin.Div(decimal.NewFromInt(100)))
	return p.SupplierPrice.Mul(factor).Round(2)
}

// SetMargin changes the profit margin percentage
func (p *SupplierProduct) SetMargin(margin decimal.Decimal) error {
	if margin.IsNegative() {
		return shared.NewDomainError("INVALID_MARGIN", "Profit margin cannot be negative")
	}
	p.ProfitMargin = margin
	p.UpdatedAt = time.Now()
	return nil
}

// LinkProduct associates the item with a catalog product
func (p *SupplierProduct) LinkProduct(productID uuid.UUID) {
	p.ProductID = &productID
	p.UpdatedAt = time.Now()
}

// ApplySync records the latest catalogue data from the supplier
func (p *SupplierProduct) ApplySync(name string, price decimal.Decimal, stock int, at time.Time) {
	if name != "" {
		p.Name = name
	}
	if !price.IsNegative() {
		p.SupplierPrice = price
	}
	p.SupplierStock = max(stock, 0)
	p.LastSyncedAt = &at
	p.UpdatedAt = at
}

// CatalogItem is one entry of a supplier catalogue feed
type CatalogItem struct {
	SKU   string          `json:"sku"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// ForwardedLine is an order line sent to a supplier for fulfilment
type ForwardedLine struct {
	SupplierSKU string `json:"sku"`
	Quantity    int    `json:"quantity"`
}

// ForwardedOrder is the payload posted to a supplier's order endpoint
type ForwardedOrder struct {
	OrderNumber string          `json:"order_number"`
	Lines       []ForwardedLine `json:"lines"`
	ShipTo      map[string]any  `json:"ship_to"`
}

// SyncResult summarises a catalogue sync run
type SyncResult struct {
	Fetched         int `json:"fetched"`
	Created         int `json:"created"`
	Updated         int `json:"updated"`
	ProductsUpdated int `json:"products_updated"`
}

// Repository persists suppliers and their products
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	List(ctx context.Context, filter shared.Filter) ([]Supplier, int64, error)
	FindAutoForwarding(ctx context.Context) ([]Supplier, error)
	Save(ctx context.Context, s *Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindProducts(ctx context.Context, supplierID uuid.UUID, filter shared.Filter) ([]SupplierProduct, int64, error)
	FindProductBySKU(ctx context.Context, supplierID uuid.UUID, sku string) (*SupplierProduct, error)
	FindProductsByCatalogIDs(ctx context.Context, supplierID uuid.UUID, productIDs []uuid.UUID) ([]SupplierProduct, error)
	SaveProduct(ctx context.Context, p *SupplierProduct) error
}
