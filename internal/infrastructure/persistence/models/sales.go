package models

import (
	"time"

	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItemModel is the persistence model for a cart line
type CartItemModel struct {
	BaseModel
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_cart_items_line,priority:1"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_line,priority:2"`
	VariantID *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_cart_items_line,priority:3"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain CartItem
func (m *CartItemModel) ToDomain() *sales.CartItem {
	return &sales.CartItem{
		BaseEntity: m.BaseModel.entity(),
		UserID:     m.UserID,
		ProductID:  m.ProductID,
		VariantID:  m.VariantID,
		Quantity:   m.Quantity,
		Price:      m.Price,
	}
}

// CartItemModelFromDomain creates a persistence model from a domain CartItem
func CartItemModelFromDomain(c *sales.CartItem) *CartItemModel {
	m := &CartItemModel{
		UserID:    c.UserID,
		ProductID: c.ProductID,
		VariantID: c.VariantID,
		Quantity:  c.Quantity,
		Price:     c.Price,
	}
	m.setEntity(c.BaseEntity)
	return m
}

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	AggregateModel
	OrderNumber          string               `gorm:"type:varchar(30);not null;uniqueIndex"`
	UserID               uuid.UUID            `gorm:"type:uuid;not null;index"`
	DeliveryAddressID    uuid.UUID            `gorm:"type:uuid;not null"`
	Status               sales.OrderStatus    `gorm:"type:varchar(20);not null;index"`
	PaymentStatus        sales.PaymentStatus  `gorm:"type:varchar(20);not null"`
	PaymentMethod        string               `gorm:"type:varchar(30)"`
	PaymentTransactionID string               `gorm:"type:varchar(255);index"`
	Subtotal             decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	Tax                  decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	ShippingCost         decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	Discount             decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	Total                decimal.Decimal      `gorm:"type:decimal(12,2);not null"`
	Currency             string               `gorm:"type:varchar(3);not null"`
	TrackingNumber       string               `gorm:"type:varchar(100)"`
	ShippingProvider     string               `gorm:"type:varchar(100)"`
	Notes                string               `gorm:"type:text"`
	CancellationReason   string               `gorm:"type:text"`
	Metadata             JSON[map[string]any] `gorm:"type:jsonb"`
	Items                []OrderItemModel     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History              []OrderHistoryModel  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *sales.Order {
	o := &sales.Order{
		OrderNumber:          m.OrderNumber,
		UserID:               m.UserID,
		DeliveryAddressID:    m.DeliveryAddressID,
		Status:               m.Status,
		PaymentStatus:        m.PaymentStatus,
		PaymentMethod:        m.PaymentMethod,
		PaymentTransactionID: m.PaymentTransactionID,
		Subtotal:             m.Subtotal,
		Tax:                  m.Tax,
		ShippingCost:         m.ShippingCost,
		Discount:             m.Discount,
		Total:                m.Total,
		Currency:             valueobject.Currency(m.Currency),
		TrackingNumber:       m.TrackingNumber,
		ShippingProvider:     m.ShippingProvider,
		Notes:                m.Notes,
		CancellationReason:   m.CancellationReason,
		Metadata:             m.Metadata.Data,
	}
	if o.Metadata == nil {
		o.Metadata = map[string]any{}
	}
	m.loadAggregate(&o.BaseAggregateRoot)
	for _, it := range m.Items {
		o.Items = append(o.Items, it.ToDomain())
	}
	for _, h := range m.History {
		o.History = append(o.History, h.ToDomain())
	}
	return o
}

// OrderModelFromDomain creates a persistence model from a domain Order.
// Items are included; history is written separately from the pending entries.
func OrderModelFromDomain(o *sales.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:          o.OrderNumber,
		UserID:               o.UserID,
		DeliveryAddressID:    o.DeliveryAddressID,
		Status:               o.Status,
		PaymentStatus:        o.PaymentStatus,
		PaymentMethod:        o.PaymentMethod,
		PaymentTransactionID: o.PaymentTransactionID,
		Subtotal:             o.Subtotal,
		Tax:                  o.Tax,
		ShippingCost:         o.ShippingCost,
		Discount:             o.Discount,
		Total:                o.Total,
		Currency:             string(o.Currency),
		TrackingNumber:       o.TrackingNumber,
		ShippingProvider:     o.ShippingProvider,
		Notes:                o.Notes,
		CancellationReason:   o.CancellationReason,
		Metadata:             NewJSON(o.Metadata),
	}
	m.setAggregate(o.BaseAggregateRoot)
	for _, it := range o.Items {
		m.Items = append(m.Items, OrderItemModelFromDomain(it))
	}
	return m
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID        `gorm:"type:uuid;not null"`
	VariantID    *uuid.UUID       `gorm:"type:uuid"`
	ProductName  string           `gorm:"type:varchar(255);not null"`
	ProductSKU   string           `gorm:"column:product_sku;type:varchar(100);not null"`
	Quantity     int              `gorm:"not null"`
	UnitPrice    decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	TotalPrice   decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	ProfitMargin *decimal.Decimal `gorm:"type:decimal(5,2)"`
	CreatedAt    time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m OrderItemModel) ToDomain() sales.OrderItem {
	return sales.OrderItem{
		ID:           m.ID,
		OrderID:      m.OrderID,
		ProductID:    m.ProductID,
		VariantID:    m.VariantID,
		ProductName:  m.ProductName,
		ProductSKU:   m.ProductSKU,
		Quantity:     m.Quantity,
		UnitPrice:    m.UnitPrice,
		TotalPrice:   m.TotalPrice,
		ProfitMargin: m.ProfitMargin,
		CreatedAt:    m.CreatedAt,
	}
}

// OrderItemModelFromDomain creates a persistence model from a domain OrderItem
func OrderItemModelFromDomain(it sales.OrderItem) OrderItemModel {
	return OrderItemModel{
		ID:           it.ID,
		OrderID:      it.OrderID,
		ProductID:    it.ProductID,
		VariantID:    it.VariantID,
		ProductName:  it.ProductName,
		ProductSKU:   it.ProductSKU,
		Quantity:     it.Quantity,
		UnitPrice:    it.UnitPrice,
		TotalPrice:   it.TotalPrice,
		ProfitMargin: it.ProfitMargin,
		CreatedAt:    it.CreatedAt,
	}
}

// OrderHistoryModel is an append-only row of the order status log
type OrderHistoryModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Status    sales.OrderStatus `gorm:"type:varchar(20);not null"`
	Notes     string            `gorm:"type:text"`
	ChangedBy *uuid.UUID        `gorm:"type:uuid"`
	CreatedAt time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderHistoryModel) TableName() string {
	return "order_status_history"
}

// ToDomain converts the persistence model to a domain StatusHistory
func (m OrderHistoryModel) ToDomain() sales.StatusHistory {
	return sales.StatusHistory{
		ID:        m.ID,
		OrderID:   m.OrderID,
		Status:    m.Status,
		Notes:     m.Notes,
		ChangedBy: m.ChangedBy,
		CreatedAt: m.CreatedAt,
	}
}

// OrderHistoryModelFromDomain creates a persistence model from a domain StatusHistory
func OrderHistoryModelFromDomain(h sales.StatusHistory) OrderHistoryModel {
	return OrderHistoryModel{
		ID:        h.ID,
		OrderID:   h.OrderID,
		Status:    h.Status,
		Notes:     h.Notes,
		ChangedBy: h.ChangedBy,
		CreatedAt: h.CreatedAt,
	}
}

// DocumentSequenceModel holds the last issued number per prefix and year
type DocumentSequenceModel struct {
	Prefix string `gorm:"type:varchar(10);primaryKey"`
	Year   int    `gorm:"primaryKey"`
	Value  int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}
