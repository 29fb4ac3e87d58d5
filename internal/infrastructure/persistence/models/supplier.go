package models

import (
	"time"

	"github.com/flipflop/backend/internal/domain/supplier"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierModel is the persistence model for the Supplier aggregate
type SupplierModel struct {
	AggregateModel
	Name              string               `gorm:"type:varchar(255);not null"`
	ContactEmail      string               `gorm:"type:varchar(255)"`
	ContactPhone      string               `gorm:"type:varchar(50)"`
	Address           string               `gorm:"type:text"`
	APIURL            string               `gorm:"column:api_url;type:varchar(500)"`
	APIKey            string               `gorm:"column:api_key;type:varchar(255)"`
	APISecret         string               `gorm:"column:api_secret;type:varchar(255)"`
	APIConfig         JSON[map[string]any] `gorm:"column:api_config;type:jsonb"`
	IsActive          bool                 `gorm:"not null;index"`
	AutoSyncProducts  bool                 `gorm:"not null"`
	AutoForwardOrders bool                 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the persistence model to a domain Supplier
func (m *SupplierModel) ToDomain() *supplier.Supplier {
	s := &supplier.Supplier{
		Name:              m.Name,
		ContactEmail:      m.ContactEmail,
		ContactPhone:      m.ContactPhone,
		Address:           m.Address,
		APIURL:            m.APIURL,
		APIKey:            m.APIKey,
		APISecret:         m.APISecret,
		APIConfig:         m.APIConfig.Data,
		IsActive:          m.IsActive,
		AutoSyncProducts:  m.AutoSyncProducts,
		AutoForwardOrders: m.AutoForwardOrders,
	}
	if s.APIConfig == nil {
		s.APIConfig = map[string]any{}
	}
	m.loadAggregate(&s.BaseAggregateRoot)
	return s
}

// SupplierModelFromDomain creates a persistence model from a domain Supplier
func SupplierModelFromDomain(s *supplier.Supplier) *SupplierModel {
	m := &SupplierModel{
		Name:              s.Name,
		ContactEmail:      s.ContactEmail,
		ContactPhone:      s.ContactPhone,
		Address:           s.Address,
		APIURL:            s.APIURL,
		APIKey:            s.APIKey,
		APISecret:         s.APISecret,
		APIConfig:         NewJSON(s.APIConfig),
		IsActive:          s.IsActive,
		AutoSyncProducts:  s.AutoSyncProducts,
		AutoForwardOrders: s.AutoForwardOrders,
	}
	m.setAggregate(s.BaseAggregateRoot)
	return m
}

// SupplierProductModel is the persistence model for a product offered by a supplier
type SupplierProductModel struct {
	BaseModel
	SupplierID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_sku,priority:1"`
	ProductID     *uuid.UUID      `gorm:"type:uuid;index"`
	SupplierSKU   string          `gorm:"column:supplier_sku;type:varchar(100);not null;uniqueIndex:idx_supplier_sku,priority:2"`
	Name          string          `gorm:"type:varchar(255)"`
	SupplierPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ProfitMargin  decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	SupplierStock int             `gorm:"not null"`
	LastSyncedAt  *time.Time
}

// TableName returns the table name for GORM
func (SupplierProductModel) TableName() string {
	return "supplier_products"
}

// ToDomain converts the persistence model to a domain SupplierProduct
func (m *SupplierProductModel) ToDomain() *supplier.SupplierProduct {
	return &supplier.SupplierProduct{
		BaseEntity:    m.BaseModel.entity(),
		SupplierID:    m.SupplierID,
		ProductID:     m.ProductID,
		SupplierSKU:   m.SupplierSKU,
		Name:          m.Name,
		SupplierPrice: m.SupplierPrice,
		ProfitMargin:  m.ProfitMargin,
		SupplierStock: m.SupplierStock,
		LastSyncedAt:  m.LastSyncedAt,
	}
}

// SupplierProductModelFromDomain creates a persistence model from a domain SupplierProduct
func SupplierProductModelFromDomain(p *supplier.SupplierProduct) *SupplierProductModel {
	m := &SupplierProductModel{
		SupplierID:    p.SupplierID,
		ProductID:     p.ProductID,
		SupplierSKU:   p.SupplierSKU,
		Name:          p.Name,
		SupplierPrice: p.SupplierPrice,
		ProfitMargin:  p.ProfitMargin,
		SupplierStock: p.SupplierStock,
		LastSyncedAt:  p.LastSyncedAt,
	}
	m.setEntity(p.BaseEntity)
	return m
}
