package supplier

import (
	"time"

	"github.com/flipflop/backend/internal/domain/supplier"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierRequest creates or replaces a supplier. On update an empty
// api_secret keeps the stored secret.
type SupplierRequest struct {
	Name              string         `json:"name" binding:"required,min=1,max=255"`
	ContactEmail      string         `json:"contact_email" binding:"omitempty,email,max=255"`
	ContactPhone      string         `json:"contact_phone" binding:"max=50"`
	Address           string         `json:"address"`
	APIURL            string         `json:"api_url" binding:"omitempty,url,max=500"`
	APIKey            string         `json:"api_key" binding:"max=255"`
	APISecret         string         `json:"api_secret" binding:"max=255"`
	APIConfig         map[string]any `json:"api_config"`
	IsActive          *bool          `json:"is_active"`
	AutoSyncProducts  bool           `json:"auto_sync_products"`
	AutoForwardOrders bool           `json:"auto_forward_orders"`
}

func (r SupplierRequest) fields() supplier.Fields {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return supplier.Fields{
		Name:              r.Name,
		ContactEmail:      r.ContactEmail,
		ContactPhone:      r.ContactPhone,
		Address:           r.Address,
		APIURL:            r.APIURL,
		APIKey:            r.APIKey,
		APISecret:         r.APISecret,
		APIConfig:         r.APIConfig,
		IsActive:          active,
		AutoSyncProducts:  r.AutoSyncProducts,
		AutoForwardOrders: r.AutoForwardOrders,
	}
}

// SupplierResponse is the admin view of a supplier. Credentials are never returned.
type SupplierResponse struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	ContactEmail      string         `json:"contact_email,omitempty"`
	ContactPhone      string         `json:"contact_phone,omitempty"`
	Address           string         `json:"address,omitempty"`
	APIURL            string         `json:"api_url,omitempty"`
	HasAPIKey         bool           `json:"has_api_key"`
	HasAPISecret      bool           `json:"has_api_secret"`
	APIConfig         map[string]any `json:"api_config"`
	IsActive          bool           `json:"is_active"`
	AutoSyncProducts  bool           `json:"auto_sync_products"`
	AutoForwardOrders bool           `json:"auto_forward_orders"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func toSupplierResponse(s *supplier.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:                s.ID,
		Name:              s.Name,
		ContactEmail:      s.ContactEmail,
		ContactPhone:      s.ContactPhone,
		Address:           s.Address,
		APIURL:            s.APIURL,
		HasAPIKey:         s.APIKey != "",
		HasAPISecret:      s.APISecret != "",
		APIConfig:         s.APIConfig,
		IsActive:          s.IsActive,
		AutoSyncProducts:  s.AutoSyncProducts,
		AutoForwardOrders: s.AutoForwardOrders,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// LinkProductRequest links a supplier offer to a catalog product
type LinkProductRequest struct {
	ProductID    uuid.UUID        `json:"product_id" binding:"required"`
	ProfitMargin *decimal.Decimal `json:"profit_margin"`
}

// SupplierProductResponse is a supplier catalogue offer
type SupplierProductResponse struct {
	ID            uuid.UUID       `json:"id"`
	SupplierID    uuid.UUID       `json:"supplier_id"`
	ProductID     *uuid.UUID      `json:"product_id,omitempty"`
	SupplierSKU   string          `json:"supplier_sku"`
	Name          string          `json:"name"`
	SupplierPrice decimal.Decimal `json:"supplier_price"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"`
	RetailPrice   decimal.Decimal `json:"retail_price"`
	SupplierStock int             `json:"supplier_stock"`
	LastSyncedAt  *time.Time      `json:"last_synced_at,omitempty"`
}

func toSupplierProductResponse(p *supplier.SupplierProduct) SupplierProductResponse {
	return SupplierProductResponse{
		ID:            p.ID,
		SupplierID:    p.SupplierID,
		ProductID:     p.ProductID,
		SupplierSKU:   p.SupplierSKU,
		Name:          p.Name,
		SupplierPrice: p.SupplierPrice,
		ProfitMargin:  p.ProfitMargin,
		RetailPrice:   p.RetailPrice(),
		SupplierStock: p.SupplierStock,
		LastSyncedAt:  p.LastSyncedAt,
	}
}
