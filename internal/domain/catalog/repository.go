package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductQuery is the storefront product listing query
type ProductQuery struct {
	Page        int
	Limit       int
	Search      string
	CategoryIDs []uuid.UUID
	SortBy      string
	SortOrder   string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Brand       string
	IsActive    *bool
}

var productSortColumns = map[string]string{
	"name":      "name",
	"price":     "price",
	"createdAt": "created_at",
	"rating":    "rating",
}

// Normalize clamps paging and replaces unknown sort keys with defaults
func (q *ProductQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if _, ok := productSortColumns[q.SortBy]; !ok {
		q.SortBy = "createdAt"
	}
	if strings.ToLower(q.SortOrder) == "asc" {
		q.SortOrder = "asc"
	} else {
		q.SortOrder = "desc"
	}
}

// SortColumn returns the database column for SortBy
func (q ProductQuery) SortColumn() string {
	if col, ok := productSortColumns[q.SortBy]; ok {
		return col
	}
	return "created_at"
}

// Offset returns the row offset for the query page
func (q ProductQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ProductRepository persists products together with their variants
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	Search(ctx context.Context, q ProductQuery) ([]Product, int64, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	Save(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryRepository persists categories
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	FindAll(ctx context.Context, activeOnly bool) ([]Category, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	HasChildren(ctx context.Context, id uuid.UUID) (bool, error)
	Save(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}
