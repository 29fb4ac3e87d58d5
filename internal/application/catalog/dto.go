package catalog

import (
	"strings"
	"time"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name             string           `json:"name" binding:"required,min=1,max=255"`
	SKU              string           `json:"sku" binding:"required,min=1,max=100"`
	Description      string           `json:"description"`
	ShortDescription string           `json:"short_description" binding:"max=500"`
	Price            decimal.Decimal  `json:"price" binding:"required"`
	CompareAtPrice   *decimal.Decimal `json:"compare_at_price"`
	StockQuantity    int              `json:"stock_quantity" binding:"min=0"`
	TrackInventory   *bool            `json:"track_inventory"`
	IsActive         *bool            `json:"is_active"`
	Brand            string           `json:"brand" binding:"max=100"`
	Manufacturer     string           `json:"manufacturer" binding:"max=100"`
	Attributes       map[string]any   `json:"attributes"`
	SEOTitle         string           `json:"seo_title" binding:"max=255"`
	SEODescription   string           `json:"seo_description"`
	SEOKeywords      string           `json:"seo_keywords"`
	VideoURLs        []string         `json:"video_urls"`
	CategoryIDs      []uuid.UUID      `json:"category_ids"`
}

// UpdateProductRequest changes the provided product fields
type UpdateProductRequest struct {
	Name             *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Description      *string          `json:"description"`
	ShortDescription *string          `json:"short_description" binding:"omitempty,max=500"`
	Price            *decimal.Decimal `json:"price"`
	CompareAtPrice   *decimal.Decimal `json:"compare_at_price"`
	StockQuantity    *int             `json:"stock_quantity" binding:"omitempty,min=0"`
	TrackInventory   *bool            `json:"track_inventory"`
	IsActive         *bool            `json:"is_active"`
	Brand            *string          `json:"brand" binding:"omitempty,max=100"`
	Manufacturer     *string          `json:"manufacturer" binding:"omitempty,max=100"`
	Attributes       map[string]any   `json:"attributes"`
	SEOTitle         *string          `json:"seo_title" binding:"omitempty,max=255"`
	SEODescription   *string          `json:"seo_description"`
	SEOKeywords      *string          `json:"seo_keywords"`
	VideoURLs        []string         `json:"video_urls"`
	CategoryIDs      []uuid.UUID      `json:"category_ids"`
}

// ProductListQuery is the storefront listing query string
type ProductListQuery struct {
	Page        int      `form:"page" binding:"omitempty,min=1"`
	Limit       int      `form:"limit" binding:"omitempty,min=1,max=100"`
	Search      string   `form:"search"`
	CategoryIDs []string `form:"categoryIds"`
	SortBy      string   `form:"sortBy" binding:"omitempty,oneof=name price createdAt rating"`
	SortOrder   string   `form:"sortOrder" binding:"omitempty,oneof=asc desc ASC DESC"`
	MinPrice    string   `form:"minPrice"`
	MaxPrice    string   `form:"maxPrice"`
	Brand       string   `form:"brand"`
	IsActive    *bool    `form:"isActive"`
}

// toDomain parses the query. Category IDs may be repeated or comma separated.
func (q ProductListQuery) toDomain() (catalog.ProductQuery, error) {
	out := catalog.ProductQuery{
		Page:      q.Page,
		Limit:     q.Limit,
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Brand:     q.Brand,
		IsActive:  q.IsActive,
	}
	for _, raw := range q.CategoryIDs {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return out, shared.NewDomainError("INVALID_INPUT", "Invalid category ID: "+part)
			}
			out.CategoryIDs = append(out.CategoryIDs, id)
		}
	}
	var err error
	if out.MinPrice, err = parsePrice(q.MinPrice, "minPrice"); err != nil {
		return out, err
	}
	if out.MaxPrice, err = parsePrice(q.MaxPrice, "maxPrice"); err != nil {
		return out, err
	}
	out.Normalize()
	return out, nil
}

func parsePrice(raw, field string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", field+" must be a non-negative number")
	}
	return &d, nil
}

// VariantRequest adds a variant to a product
type VariantRequest struct {
	SKU           string            `json:"sku" binding:"required,min=1,max=100"`
	Name          string            `json:"name" binding:"required,min=1,max=255"`
	Price         *decimal.Decimal  `json:"price"`
	StockQuantity int               `json:"stock_quantity" binding:"min=0"`
	Options       map[string]string `json:"options"`
	IsActive      *bool             `json:"is_active"`
}

// UpdateVariantRequest changes a variant. The SKU is immutable.
type UpdateVariantRequest struct {
	Name          string           `json:"name" binding:"required,min=1,max=255"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity int              `json:"stock_quantity" binding:"min=0"`
	IsActive      *bool            `json:"is_active"`
}

// VariantResponse is a product variant
type VariantResponse struct {
	ID             uuid.UUID         `json:"id"`
	SKU            string            `json:"sku"`
	Name           string            `json:"name"`
	Price          *decimal.Decimal  `json:"price,omitempty"`
	EffectivePrice decimal.Decimal   `json:"effective_price"`
	StockQuantity  int               `json:"stock_quantity"`
	Options        map[string]string `json:"options"`
	IsActive       bool              `json:"is_active"`
}

// ProductResponse is the API view of a product
type ProductResponse struct {
	ID               uuid.UUID         `json:"id"`
	Name             string            `json:"name"`
	SKU              string            `json:"sku"`
	Description      string            `json:"description"`
	ShortDescription string            `json:"short_description"`
	Price            decimal.Decimal   `json:"price"`
	CompareAtPrice   *decimal.Decimal  `json:"compare_at_price,omitempty"`
	MainImageURL     string            `json:"main_image_url,omitempty"`
	ImageURLs        []string          `json:"image_urls"`
	VideoURLs        []string          `json:"video_urls"`
	StockQuantity    int               `json:"stock_quantity"`
	TrackInventory   bool              `json:"track_inventory"`
	IsActive         bool              `json:"is_active"`
	Brand            string            `json:"brand,omitempty"`
	Manufacturer     string            `json:"manufacturer,omitempty"`
	Attributes       map[string]any    `json:"attributes"`
	Rating           *decimal.Decimal  `json:"rating,omitempty"`
	ReviewCount      int               `json:"review_count"`
	SEOTitle         string            `json:"seo_title,omitempty"`
	SEODescription   string            `json:"seo_description,omitempty"`
	SEOKeywords      string            `json:"seo_keywords,omitempty"`
	CategoryIDs      []uuid.UUID       `json:"category_ids"`
	Variants         []VariantResponse `json:"variants"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ToProductResponse converts a product to its API view
func ToProductResponse(p *catalog.Product) ProductResponse {
	variants := make([]VariantResponse, 0, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		variants = append(variants, VariantResponse{
			ID:             v.ID,
			SKU:            v.SKU,
			Name:           v.Name,
			Price:          v.Price,
			EffectivePrice: v.EffectivePrice(p.Price),
			StockQuantity:  v.StockQuantity,
			Options:        v.Options,
			IsActive:       v.IsActive,
		})
	}
	return ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		SKU:              p.SKU,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            p.Price,
		CompareAtPrice:   p.CompareAtPrice,
		MainImageURL:     p.MainImageURL,
		ImageURLs:        nonNil(p.ImageURLs),
		VideoURLs:        nonNil(p.VideoURLs),
		StockQuantity:    p.StockQuantity,
		TrackInventory:   p.TrackInventory,
		IsActive:         p.IsActive,
		Brand:            p.Brand,
		Manufacturer:     p.Manufacturer,
		Attributes:       p.Attributes,
		Rating:           p.Rating,
		ReviewCount:      p.ReviewCount,
		SEOTitle:         p.SEOTitle,
		SEODescription:   p.SEODescription,
		SEOKeywords:      p.SEOKeywords,
		CategoryIDs:      p.CategoryIDs,
		Variants:         variants,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CreateCategoryRequest represents a request to create a new category
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=255"`
	Slug        string     `json:"slug" binding:"max=255"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
	ImageURL    string     `json:"image_url" binding:"max=500"`
	SortOrder   int        `json:"sort_order"`
}

// UpdateCategoryRequest changes the provided category fields
type UpdateCategoryRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=255"`
	Slug        *string    `json:"slug" binding:"omitempty,max=255"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
	ClearParent bool       `json:"clear_parent"`
	ImageURL    *string    `json:"image_url" binding:"omitempty,max=500"`
	SortOrder   *int       `json:"sort_order"`
	IsActive    *bool      `json:"is_active"`
}

// CategoryResponse is the API view of a category
type CategoryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	SortOrder   int        `json:"sort_order"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CategoryTreeNode is a category with its subcategories
type CategoryTreeNode struct {
	CategoryResponse
	Children []CategoryTreeNode `json:"children"`
}

// ToCategoryResponse converts a category to its API view
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    c.ParentID,
		ImageURL:    c.ImageURL,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
