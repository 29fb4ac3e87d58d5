package sales

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderNumberPrefix prefixes customer-facing order numbers
const OrderNumberPrefix = "ORD"

// OrderItem is a line of an order. Name and SKU are snapshots taken at checkout.
type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	ProductName  string
	ProductSKU   string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
	ProfitMargin *decimal.Decimal
	CreatedAt    time.Time
}

// OrderLine is the input for one order item
type OrderLine struct {
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	ProductName  string
	ProductSKU   string
	Quantity     int
	UnitPrice    decimal.Decimal
	ProfitMargin *decimal.Decimal
}

// StatusHistory is one append-only entry of the order status log
type StatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    OrderStatus
	Notes     string
	ChangedBy *uuid.UUID
	CreatedAt time.Time
}

// Pricing holds the order-level charges applied on top of the item subtotal
type Pricing struct {
	TaxRate      decimal.Decimal
	ShippingCost decimal.Decimal
	Discount     decimal.Decimal
}

// Order is the aggregate root of the checkout and fulfilment lifecycle.
// Version is bumped by the repository on every guarded save.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber          string
	UserID               uuid.UUID
	DeliveryAddressID    uuid.UUID
	Status               OrderStatus
	PaymentStatus        PaymentStatus
	PaymentMethod        string
	PaymentTransactionID string
	Subtotal             decimal.Decimal
	Tax                  decimal.Decimal
	ShippingCost         decimal.Decimal
	Discount             decimal.Decimal
	Total                decimal.Decimal
	Currency             valueobject.Currency
	TrackingNumber       string
	ShippingProvider     string
	Notes                string
	CancellationReason   string
	Metadata             map[string]any
	Items                []OrderItem
	History              []StatusHistory

	pendingHistory []StatusHistory
}

// NewOrder creates a pending, unpaid order from checkout lines
func NewOrder(orderNumber string, userID, addressID uuid.UUID, paymentMethod string, lines []OrderLine, pricing Pricing, notes string) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must contain at least one item")
	}
	if pricing.TaxRate.IsNegative() || pricing.ShippingCost.IsNegative() || pricing.Discount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICING", "Tax rate, shipping and discount cannot be negative")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		UserID:            userID,
		DeliveryAddressID: addressID,
		Status:            OrderStatusPending,
		PaymentStatus:     PaymentStatusPending,
		PaymentMethod:     paymentMethod,
		ShippingCost:      pricing.ShippingCost,
		Discount:          pricing.Discount,
		Currency:          valueobject.DefaultCurrency,
		Notes:             notes,
		Metadata:          map[string]any{},
	}

	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
		}
		if l.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
		}
		o.Items = append(o.Items, OrderItem{
			ID:           uuid.New(),
			OrderID:      o.ID,
			ProductID:    l.ProductID,
			VariantID:    l.VariantID,
			ProductName:  l.ProductName,
			ProductSKU:   l.ProductSKU,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			TotalPrice:   l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
			ProfitMargin: l.ProfitMargin,
			CreatedAt:    o.CreatedAt,
		})
	}
	o.recalculateTotals(pricing.TaxRate)
	o.appendHistory(OrderStatusPending, "Order created", &userID)
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

func (o *Order) recalculateTotals(taxRate decimal.Decimal) {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	o.Subtotal = subtotal
	o.Tax = subtotal.Mul(taxRate).Round(2)
	total := o.Subtotal.Add(o.Tax).Add(o.ShippingCost).Sub(o.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.Total = total
}

// TotalMoney returns the order total as Money
func (o *Order) TotalMoney() valueobject.Money {
	return valueobject.NewMoneyCZK(o.Total)
}

// ItemCount returns the total number of units ordered
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// BelongsTo reports whether the order was placed by userID
func (o *Order) BelongsTo(userID uuid.UUID) bool {
	return o.UserID == userID
}

// TransitionTo moves the order along the status machine, recording history
// and raising the matching domain event.
func (o *Order) TransitionTo(target OrderStatus, notes string, changedBy *uuid.UUID) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", target))
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change order status from %s to %s", o.Status, target))
	}

	from := o.Status
	o.Status = target
	o.UpdatedAt = time.Now()
	o.appendHistory(target, notes, changedBy)

	switch target {
	case OrderStatusConfirmed:
		o.AddDomainEvent(NewOrderConfirmedEvent(o))
	case OrderStatusCancelled:
		o.AddDomainEvent(NewOrderCancelledEvent(o))
	case OrderStatusRefunded:
		o.AddDomainEvent(NewOrderRefundedEvent(o))
	default:
		o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	}
	return nil
}

// Confirm moves a pending order to confirmed
func (o *Order) Confirm(notes string, changedBy *uuid.UUID) error {
	return o.TransitionTo(OrderStatusConfirmed, notes, changedBy)
}

// Ship marks the order shipped. A tracking number is mandatory.
func (o *Order) Ship(trackingNumber, provider string, changedBy *uuid.UUID) error {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return shared.NewDomainError("TRACKING_REQUIRED", "Tracking number is required to ship an order")
	}
	if err := o.TransitionTo(OrderStatusShipped, "Shipped via "+providerOrDefault(provider), changedBy); err != nil {
		return err
	}
	o.TrackingNumber = trackingNumber
	o.ShippingProvider = provider
	return nil
}

// Cancel cancels the order with a reason
func (o *Order) Cancel(reason string, changedBy *uuid.UUID) error {
	if err := o.TransitionTo(OrderStatusCancelled, reason, changedBy); err != nil {
		return err
	}
	o.CancellationReason = reason
	return nil
}

// CanCustomerCancel reports whether the customer may still cancel
func (o *Order) CanCustomerCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// SetPaymentTransaction records the payment provider's transaction ID
func (o *Order) SetPaymentTransaction(transactionID string) {
	o.PaymentTransactionID = transactionID
	o.UpdatedAt = time.Now()
}

// MarkPaid records a successful payment
func (o *Order) MarkPaid(transactionID string) error {
	if err := o.changePayment(PaymentStatusPaid); err != nil {
		return err
	}
	if transactionID != "" {
		o.PaymentTransactionID = transactionID
	}
	o.AddDomainEvent(NewOrderPaidEvent(o))
	return nil
}

// MarkPaymentFailed records a rejected or cancelled payment
func (o *Order) MarkPaymentFailed() error {
	return o.changePayment(PaymentStatusFailed)
}

// MarkPaymentRefunded records a refunded payment
func (o *Order) MarkPaymentRefunded() error {
	return o.changePayment(PaymentStatusRefunded)
}

// OrderState is the part of an order a lifecycle step changes
type OrderState struct {
	Status             OrderStatus
	PaymentStatus      PaymentStatus
	TrackingNumber     string
	ShippingProvider   string
	CancellationReason string
}

// State captures the current lifecycle fields
func (o *Order) State() OrderState {
	return OrderState{
		Status:             o.Status,
		PaymentStatus:      o.PaymentStatus,
		TrackingNumber:     o.TrackingNumber,
		ShippingProvider:   o.ShippingProvider,
		CancellationReason: o.CancellationReason,
	}
}

// Revert puts back a state captured before a step whose follow-up failed.
// Neither status machine is consulted; a changed status is recorded in the
// history with notes.
func (o *Order) Revert(to OrderState, notes string) {
	from := o.Status
	o.Status = to.Status
	o.PaymentStatus = to.PaymentStatus
	o.TrackingNumber = to.TrackingNumber
	o.ShippingProvider = to.ShippingProvider
	o.CancellationReason = to.CancellationReason
	o.UpdatedAt = time.Now()
	if from != to.Status {
		o.appendHistory(to.Status, notes, nil)
		o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	}
}

// Clone returns a deep copy; changes to it never reach o
func (o *Order) Clone() *Order {
	c := *o
	c.BaseAggregateRoot = o.BaseAggregateRoot.Clone()
	c.Metadata = maps.Clone(o.Metadata)
	c.Items = slices.Clone(o.Items)
	c.History = slices.Clone(o.History)
	c.pendingHistory = slices.Clone(o.pendingHistory)
	return &c
}

// IsPaid reports whether payment has been captured
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

func (o *Order) changePayment(target PaymentStatus) error {
	if !o.PaymentStatus.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change payment status from %s to %s", o.PaymentStatus, target))
	}
	o.PaymentStatus = target
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) appendHistory(status OrderStatus, notes string, changedBy *uuid.UUID) {
	entry := StatusHistory{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Status:    status,
		Notes:     notes,
		ChangedBy: changedBy,
		CreatedAt: time.Now(),
	}
	o.History = append(o.History, entry)
	o.pendingHistory = append(o.pendingHistory, entry)
}

// PendingHistory returns history entries not yet persisted
func (o *Order) PendingHistory() []StatusHistory {
	return o.pendingHistory
}

// ClearPendingHistory marks all history entries as persisted
func (o *Order) ClearPendingHistory() {
	o.pendingHistory = nil
}

func providerOrDefault(p string) string {
	if p == "" {
		return "carrier"
	}
	return p
}
