package models

import (
	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryModel is the persistence model for the Category aggregate.
type CategoryModel struct {
	AggregateModel
	Name        string     `gorm:"type:varchar(255);not null"`
	Slug        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Description string     `gorm:"type:text"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	ImageURL    string     `gorm:"type:varchar(500)"`
	SortOrder   int        `gorm:"not null;default:0"`
	IsActive    bool       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category
func (m *CategoryModel) ToDomain() *catalog.Category {
	c := &catalog.Category{
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		ParentID:    m.ParentID,
		ImageURL:    m.ImageURL,
		SortOrder:   m.SortOrder,
		IsActive:    m.IsActive,
	}
	m.loadAggregate(&c.BaseAggregateRoot)
	return c
}

// CategoryModelFromDomain creates a persistence model from a domain Category
func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	m := &CategoryModel{
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    c.ParentID,
		ImageURL:    c.ImageURL,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
	}
	m.setAggregate(c.BaseAggregateRoot)
	return m
}

// ProductModel is the persistence model for the Product aggregate.
// Variants and category links live in their own tables.
type ProductModel struct {
	AggregateModel
	Name             string                 `gorm:"type:varchar(255);not null;index"`
	SKU              string                 `gorm:"column:sku;type:varchar(100);not null;uniqueIndex"`
	Description      string                 `gorm:"type:text"`
	ShortDescription string                 `gorm:"type:varchar(500)"`
	Price            decimal.Decimal        `gorm:"type:decimal(12,2);not null"`
	CompareAtPrice   *decimal.Decimal       `gorm:"type:decimal(12,2)"`
	MainImageURL     string                 `gorm:"type:varchar(500)"`
	ImageURLs        JSON[[]string]         `gorm:"column:image_urls;type:jsonb"`
	VideoURLs        JSON[[]string]         `gorm:"column:video_urls;type:jsonb"`
	StockQuantity    int                    `gorm:"not null;default:0"`
	TrackInventory   bool                   `gorm:"not null"`
	IsActive         bool                   `gorm:"not null;index"`
	Brand            string                 `gorm:"type:varchar(255);index"`
	Manufacturer     string                 `gorm:"type:varchar(255)"`
	Attributes       JSON[map[string]any]   `gorm:"type:jsonb"`
	Rating           *decimal.Decimal       `gorm:"type:decimal(3,2)"`
	ReviewCount      int                    `gorm:"not null;default:0"`
	SEOTitle         string                 `gorm:"column:seo_title;type:varchar(255)"`
	SEODescription   string                 `gorm:"column:seo_description;type:text"`
	SEOKeywords      string                 `gorm:"column:seo_keywords;type:varchar(500)"`
	Variants         []ProductVariantModel  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Categories       []ProductCategoryModel `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		Name:             m.Name,
		SKU:              m.SKU,
		Description:      m.Description,
		ShortDescription: m.ShortDescription,
		Price:            m.Price,
		CompareAtPrice:   m.CompareAtPrice,
		MainImageURL:     m.MainImageURL,
		ImageURLs:        nonNilStrings(m.ImageURLs.Data),
		VideoURLs:        nonNilStrings(m.VideoURLs.Data),
		StockQuantity:    m.StockQuantity,
		TrackInventory:   m.TrackInventory,
		IsActive:         m.IsActive,
		Brand:            m.Brand,
		Manufacturer:     m.Manufacturer,
		Attributes:       m.Attributes.Data,
		Rating:           m.Rating,
		ReviewCount:      m.ReviewCount,
		SEOTitle:         m.SEOTitle,
		SEODescription:   m.SEODescription,
		SEOKeywords:      m.SEOKeywords,
		CategoryIDs:      make([]uuid.UUID, 0, len(m.Categories)),
	}
	if p.Attributes == nil {
		p.Attributes = map[string]any{}
	}
	m.loadAggregate(&p.BaseAggregateRoot)
	for _, c := range m.Categories {
		p.CategoryIDs = append(p.CategoryIDs, c.CategoryID)
	}
	for i := range m.Variants {
		p.Variants = append(p.Variants, *m.Variants[i].ToDomain())
	}
	return p
}

// ProductModelFromDomain creates a persistence model, including variants and
// category links, from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		Name:             p.Name,
		SKU:              p.SKU,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            p.Price,
		CompareAtPrice:   p.CompareAtPrice,
		MainImageURL:     p.MainImageURL,
		ImageURLs:        NewJSON(nonNilStrings(p.ImageURLs)),
		VideoURLs:        NewJSON(nonNilStrings(p.VideoURLs)),
		StockQuantity:    p.StockQuantity,
		TrackInventory:   p.TrackInventory,
		IsActive:         p.IsActive,
		Brand:            p.Brand,
		Manufacturer:     p.Manufacturer,
		Attributes:       NewJSON(p.Attributes),
		Rating:           p.Rating,
		ReviewCount:      p.ReviewCount,
		SEOTitle:         p.SEOTitle,
		SEODescription:   p.SEODescription,
		SEOKeywords:      p.SEOKeywords,
	}
	m.setAggregate(p.BaseAggregateRoot)
	for _, id := range p.CategoryIDs {
		m.Categories = append(m.Categories, ProductCategoryModel{ProductID: p.ID, CategoryID: id})
	}
	for i := range p.Variants {
		m.Variants = append(m.Variants, *ProductVariantModelFromDomain(&p.Variants[i]))
	}
	return m
}

// ProductVariantModel is the persistence model for product variants
type ProductVariantModel struct {
	BaseModel
	ProductID     uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_variant_product_sku,priority:1"`
	SKU           string                  `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_variant_product_sku,priority:2"`
	Name          string                  `gorm:"type:varchar(255);not null"`
	Price         *decimal.Decimal        `gorm:"type:decimal(12,2)"`
	StockQuantity int                     `gorm:"not null;default:0"`
	Options       JSON[map[string]string] `gorm:"type:jsonb"`
	IsActive      bool                    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain ProductVariant
func (m *ProductVariantModel) ToDomain() *catalog.ProductVariant {
	opts := m.Options.Data
	if opts == nil {
		opts = map[string]string{}
	}
	return &catalog.ProductVariant{
		BaseEntity:    m.BaseModel.entity(),
		ProductID:     m.ProductID,
		SKU:           m.SKU,
		Name:          m.Name,
		Price:         m.Price,
		StockQuantity: m.StockQuantity,
		Options:       opts,
		IsActive:      m.IsActive,
	}
}

// ProductVariantModelFromDomain creates a persistence model from a domain ProductVariant
func ProductVariantModelFromDomain(v *catalog.ProductVariant) *ProductVariantModel {
	m := &ProductVariantModel{
		ProductID:     v.ProductID,
		SKU:           v.SKU,
		Name:          v.Name,
		Price:         v.Price,
		StockQuantity: v.StockQuantity,
		Options:       NewJSON(v.Options),
		IsActive:      v.IsActive,
	}
	m.setEntity(v.BaseEntity)
	return m
}

// ProductCategoryModel links a product to one of its categories
type ProductCategoryModel struct {
	ProductID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (ProductCategoryModel) TableName() string {
	return "product_categories"
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
