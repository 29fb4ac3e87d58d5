package sales

import (
	"time"

	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRequest places an order from the caller's cart
type CheckoutRequest struct {
	DeliveryAddressID uuid.UUID `json:"delivery_address_id" binding:"required"`
	PaymentMethod     string    `json:"payment_method" binding:"omitempty,oneof=payu card bank_transfer cash_on_delivery"`
	Notes             string    `json:"notes" binding:"max=1000"`
	// IdempotencyKey comes from the Idempotency-Key header
	IdempotencyKey string `json:"-"`
}

// ChangeStatusRequest is an admin status change
type ChangeStatusRequest struct {
	Status           string `json:"status" binding:"required,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	TrackingNumber   string `json:"tracking_number" binding:"max=100"`
	ShippingProvider string `json:"shipping_provider" binding:"max=100"`
	Notes            string `json:"notes" binding:"max=1000"`
}

// CancelOrderRequest is a customer cancellation
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListQuery filters order listings
type OrderListQuery struct {
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search        string `form:"search"`
	Status        string `form:"status" binding:"omitempty,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=pending paid failed refunded"`
	OrderBy       string `form:"order_by"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (q OrderListQuery) toDomain(userID *uuid.UUID) sales.OrderQuery {
	filter := shared.DefaultFilter()
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	filter.Search = q.Search
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	}
	if q.OrderDir != "" {
		filter.OrderDir = q.OrderDir
	}
	out := sales.OrderQuery{Filter: filter, UserID: userID}
	if q.Status != "" {
		st := sales.OrderStatus(q.Status)
		out.Status = &st
	}
	if q.PaymentStatus != "" {
		ps := sales.PaymentStatus(q.PaymentStatus)
		out.PaymentStatus = &ps
	}
	return out
}

// OrderItemResponse is one order line
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// StatusHistoryResponse is one status log entry
type StatusHistoryResponse struct {
	Status    string     `json:"status"`
	Notes     string     `json:"notes,omitempty"`
	ChangedBy *uuid.UUID `json:"changed_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID                   uuid.UUID               `json:"id"`
	OrderNumber          string                  `json:"order_number"`
	UserID               uuid.UUID               `json:"user_id"`
	DeliveryAddressID    uuid.UUID               `json:"delivery_address_id"`
	Status               string                  `json:"status"`
	PaymentStatus        string                  `json:"payment_status"`
	PaymentMethod        string                  `json:"payment_method,omitempty"`
	PaymentTransactionID string                  `json:"payment_transaction_id,omitempty"`
	Subtotal             decimal.Decimal         `json:"subtotal"`
	Tax                  decimal.Decimal         `json:"tax"`
	ShippingCost         decimal.Decimal         `json:"shipping_cost"`
	Discount             decimal.Decimal         `json:"discount"`
	Total                decimal.Decimal         `json:"total"`
	Currency             string                  `json:"currency"`
	TrackingNumber       string                  `json:"tracking_number,omitempty"`
	ShippingProvider     string                  `json:"shipping_provider,omitempty"`
	Notes                string                  `json:"notes,omitempty"`
	CancellationReason   string                  `json:"cancellation_reason,omitempty"`
	Items                []OrderItemResponse     `json:"items"`
	History              []StatusHistoryResponse `json:"status_history,omitempty"`
	AllowedTransitions   []string                `json:"allowed_transitions"`
	Version              int                     `json:"version"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

// ToOrderResponse converts an order to its API view
func ToOrderResponse(o *sales.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	history := make([]StatusHistoryResponse, 0, len(o.History))
	for _, h := range o.History {
		history = append(history, StatusHistoryResponse{
			Status:    string(h.Status),
			Notes:     h.Notes,
			ChangedBy: h.ChangedBy,
			CreatedAt: h.CreatedAt,
		})
	}
	allowed := []string{}
	for _, st := range o.Status.AllowedTransitions() {
		allowed = append(allowed, string(st))
	}
	return OrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		UserID:               o.UserID,
		DeliveryAddressID:    o.DeliveryAddressID,
		Status:               string(o.Status),
		PaymentStatus:        string(o.PaymentStatus),
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
		Items:                items,
		History:              history,
		AllowedTransitions:   allowed,
		Version:              o.Version,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// PaymentInitResponse tells the storefront where to send the customer
type PaymentInitResponse struct {
	RedirectURI string    `json:"redirectUri"`
	OrderID     uuid.UUID `json:"orderId"`
}

// CartItemRequest adds a product to the cart
type CartItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" binding:"required,min=1,max=999"`
}

// UpdateCartItemRequest changes a cart line quantity
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=999"`
}

// CartItemResponse is one cart line
type CartItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Available   bool            `json:"available"`
}

// CartResponse is the caller's cart
type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
}
