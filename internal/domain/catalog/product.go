package catalog

import (
	"strings"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item and the aggregate root for its variants
type Product struct {
	shared.BaseAggregateRoot
	Name             string
	SKU              string
	Description      string
	ShortDescription string
	Price            decimal.Decimal
	CompareAtPrice   *decimal.Decimal
	MainImageURL     string
	ImageURLs        []string
	VideoURLs        []string
	StockQuantity    int
	TrackInventory   bool
	IsActive         bool
	Brand            string
	Manufacturer     string
	Attributes       map[string]any
	Rating           *decimal.Decimal
	ReviewCount      int
	SEOTitle         string
	SEODescription   string
	SEOKeywords      string
	CategoryIDs      []uuid.UUID
	Variants         []ProductVariant
}

// ProductDetails carries the descriptive, non-price fields of a product
type ProductDetails struct {
	Name             string
	Description      string
	ShortDescription string
	Brand            string
	Manufacturer     string
	Attributes       map[string]any
	SEOTitle         string
	SEODescription   string
	SEOKeywords      string
	VideoURLs        []string
}

// NewProduct creates an active, inventory-tracked product
func NewProduct(name, sku string, price decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		SKU:               sku,
		Price:             price,
		TrackInventory:    true,
		IsActive:          true,
		ImageURLs:         []string{},
		VideoURLs:         []string{},
		Attributes:        map[string]any{},
		CategoryIDs:       []uuid.UUID{},
	}
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// UpdateDetails replaces the descriptive fields
func (p *Product) UpdateDetails(d ProductDetails) error {
	name := strings.TrimSpace(d.Name)
	if err := validateProductName(name); err != nil {
		return err
	}
	p.Name = name
	p.Description = d.Description
	p.ShortDescription = d.ShortDescription
	p.Brand = d.Brand
	p.Manufacturer = d.Manufacturer
	if d.Attributes != nil {
		p.Attributes = d.Attributes
	}
	p.SEOTitle = d.SEOTitle
	p.SEODescription = d.SEODescription
	p.SEOKeywords = d.SEOKeywords
	if d.VideoURLs != nil {
		p.VideoURLs = d.VideoURLs
	}
	p.touch()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// SetPrice changes the price and the optional compare-at (strike-through) price
func (p *Product) SetPrice(price decimal.Decimal, compareAt *decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if compareAt != nil && compareAt.LessThan(price) {
		return shared.NewDomainError("INVALID_PRICE", "Compare-at price must not be lower than price")
	}

	old := p.Price
	p.Price = price
	p.CompareAtPrice = compareAt
	p.touch()
	if !old.Equal(price) {
		p.AddDomainEvent(NewProductPriceChangedEvent(p, old))
	}
	return nil
}

// SetStock overwrites the on-hand quantity
func (p *Product) SetStock(quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Stock quantity cannot be negative")
	}
	p.StockQuantity = quantity
	p.touch()
	return nil
}

// SetTrackInventory toggles stock tracking
func (p *Product) SetTrackInventory(track bool) {
	p.TrackInventory = track
	p.touch()
}

// SetCategories replaces the category assignment, dropping duplicates
func (p *Product) SetCategories(ids []uuid.UUID) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	p.CategoryIDs = out
	p.touch()
}

// AddImage appends an image URL. The first image, or one flagged main, becomes the main image.
func (p *Product) AddImage(url string, main bool) {
	if main || p.MainImageURL == "" {
		if p.MainImageURL != "" && p.MainImageURL != url {
			p.ImageURLs = append([]string{p.MainImageURL}, p.ImageURLs...)
		}
		p.MainImageURL = url
	} else {
		p.ImageURLs = append(p.ImageURLs, url)
	}
	p.touch()
}

// RemoveImage drops url from the product. When the main image goes, the first
// gallery image is promoted.
func (p *Product) RemoveImage(url string) bool {
	if p.MainImageURL == url {
		p.MainImageURL = ""
		if len(p.ImageURLs) > 0 {
			p.MainImageURL = p.ImageURLs[0]
			p.ImageURLs = p.ImageURLs[1:]
		}
		p.touch()
		return true
	}
	for i, u := range p.ImageURLs {
		if u == url {
			p.ImageURLs = append(p.ImageURLs[:i], p.ImageURLs[i+1:]...)
			p.touch()
			return true
		}
	}
	return false
}

// Activate makes the product purchasable
func (p *Product) Activate() {
	p.IsActive = true
	p.touch()
}

// Deactivate hides the product from the storefront
func (p *Product) Deactivate() {
	p.IsActive = false
	p.touch()
}

// MarkDeleted records the deletion event; the repository removes the row
func (p *Product) MarkDeleted() {
	p.AddDomainEvent(NewProductDeletedEvent(p))
}

// AddVariant adds a variant. Variant SKUs are unique within the product.
func (p *Product) AddVariant(sku, name string, price *decimal.Decimal, stock int, options map[string]string) (*ProductVariant, error) {
	v, err := NewProductVariant(p.ID, sku, name, price, stock, options)
	if err != nil {
		return nil, err
	}
	for _, existing := range p.Variants {
		if existing.SKU == v.SKU {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Variant SKU already exists for this product")
		}
	}
	p.Variants = append(p.Variants, *v)
	p.touch()
	return &p.Variants[len(p.Variants)-1], nil
}

// RemoveVariant deletes the variant with the given id
func (p *Product) RemoveVariant(id uuid.UUID) error {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			p.Variants = append(p.Variants[:i], p.Variants[i+1:]...)
			p.touch()
			return nil
		}
	}
	return shared.ErrNotFound
}

// Variant returns the variant with the given id
func (p *Product) Variant(id uuid.UUID) (*ProductVariant, error) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], nil
		}
	}
	return nil, shared.NewDomainError("NOT_FOUND", "Product variant not found")
}

// PriceFor returns the unit price of the product or one of its variants
func (p *Product) PriceFor(variantID *uuid.UUID) (decimal.Decimal, error) {
	if variantID == nil {
		return p.Price, nil
	}
	v, err := p.Variant(*variantID)
	if err != nil {
		return decimal.Zero, err
	}
	return v.EffectivePrice(p.Price), nil
}

// CheckAvailable verifies the product (or variant) can be sold in the given quantity
func (p *Product) CheckAvailable(variantID *uuid.UUID, quantity int) error {
	if !p.IsActive {
		return shared.NewDomainError("PRODUCT_INACTIVE", "Product is not available")
	}
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	stock := p.StockQuantity
	if variantID != nil {
		v, err := p.Variant(*variantID)
		if err != nil {
			return err
		}
		if !v.IsActive {
			return shared.NewDomainError("PRODUCT_INACTIVE", "Product variant is not available")
		}
		stock = v.StockQuantity
	}
	if p.TrackInventory && stock < quantity {
		return shared.ErrInsufficientStock
	}
	return nil
}

func (p *Product) touch() {
	p.Touch()
	p.IncrementVersion()
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 255 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 255 characters")
	}
	return nil
}

func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 100 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 100 characters")
	}
	return nil
}
