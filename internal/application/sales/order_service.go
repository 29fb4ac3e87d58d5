package sales

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flipflop/backend/internal/domain/billing"
	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/inventory"
	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/flipflop/backend/internal/infrastructure/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultMaxConflictRetry = 3
	defaultSagaKeyTTL       = 24 * time.Hour
	metaRedirectURI         = "payment_redirect_uri"
)

var (
	// ErrDuplicateCheckout rejects a checkout whose key was already claimed
	ErrDuplicateCheckout = shared.NewDomainError("DUPLICATE_CHECKOUT", "This checkout was already submitted")
	// ErrPaymentAmountMismatch rejects a payment that does not cover the order total
	ErrPaymentAmountMismatch = shared.NewDomainError("PAYMENT_AMOUNT_MISMATCH", "Paid amount does not match the order total")
)

// InvoiceIssuer issues the billing documents of an order. Both calls are
// idempotent per order.
type InvoiceIssuer interface {
	IssueProforma(ctx context.Context, o *sales.Order) (*billing.ProformaInvoice, error)
	IssueInvoice(ctx context.Context, o *sales.Order) (*billing.Invoice, error)
}

// Notifier sends customer notifications in the background
type Notifier interface {
	OrderConfirmation(recipient, orderNumber string, total decimal.Decimal)
	PaymentConfirmation(recipient, orderNumber string, amount decimal.Decimal)
	OrderStatusUpdate(recipient, orderNumber, status string)
	ShipmentTracking(recipient, orderNumber, trackingNumber string)
}

// SupplierForwarder hands paid orders to dropshipping suppliers
type SupplierForwarder interface {
	ForwardOrder(ctx context.Context, o *sales.Order) error
}

// OrderServiceDeps are the collaborators of OrderService
type OrderServiceDeps struct {
	Orders      sales.OrderRepository
	Carts       sales.CartRepository
	Products    catalog.ProductRepository
	Users       identity.UserRepository
	Addresses   identity.AddressRepository
	Stock       inventory.ReservationStore
	Invoices    InvoiceIssuer
	Gateway     payment.Gateway
	Notifier    Notifier
	Forwarder   SupplierForwarder
	Idempotency shared.IdempotencyStore
	Recorder    SagaRecorder
	Config      config.OrderConfig
	Logger      *zap.Logger
}

// OrderService runs the order lifecycle sagas
type OrderService struct {
	orders    sales.OrderRepository
	carts     sales.CartRepository
	products  catalog.ProductRepository
	users     identity.UserRepository
	addresses identity.AddressRepository
	stock     inventory.ReservationStore
	invoices  InvoiceIssuer
	gateway   payment.Gateway
	notifier  Notifier
	forwarder SupplierForwarder
	idem      shared.IdempotencyStore
	recorder  SagaRecorder
	cfg       config.OrderConfig
	logger    *zap.Logger
	runner    *sagaRunner
}

// NewOrderService creates a new OrderService
func NewOrderService(d OrderServiceDeps) *OrderService {
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Config.MaxConflictRetry <= 0 {
		d.Config.MaxConflictRetry = defaultMaxConflictRetry
	}
	if d.Config.SagaKeyTTL <= 0 {
		d.Config.SagaKeyTTL = defaultSagaKeyTTL
	}
	logger := d.Logger.Named("order_saga")
	return &OrderService{
		orders:    d.Orders,
		carts:     d.Carts,
		products:  d.Products,
		users:     d.Users,
		addresses: d.Addresses,
		stock:     d.Stock,
		invoices:  d.Invoices,
		gateway:   d.Gateway,
		notifier:  d.Notifier,
		forwarder: d.Forwarder,
		idem:      d.Idempotency,
		recorder:  d.Recorder,
		cfg:       d.Config,
		logger:    logger,
		runner:    newSagaRunner(logger, d.Recorder),
	}
}

// Get returns an order of userID. Admins may read any order.
func (s *OrderService) Get(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*OrderResponse, error) {
	o, err := s.loadOwned(ctx, userID, orderID, isAdmin)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// List returns the caller's orders
func (s *OrderService) List(ctx context.Context, userID uuid.UUID, q OrderListQuery) (*shared.Paginated[OrderResponse], error) {
	return s.list(ctx, q.toDomain(&userID))
}

// AdminList returns all orders
func (s *OrderService) AdminList(ctx context.Context, q OrderListQuery) (*shared.Paginated[OrderResponse], error) {
	return s.list(ctx, q.toDomain(nil))
}

func (s *OrderService) list(ctx context.Context, q sales.OrderQuery) (*shared.Paginated[OrderResponse], error) {
	rows, total, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, err
	}
	items := make([]OrderResponse, 0, len(rows))
	for i := range rows {
		items = append(items, ToOrderResponse(&rows[i]))
	}
	page := shared.NewPaginated(items, total, q.Page, q.PageSize)
	return &page, nil
}

// Checkout turns the caller's cart into a pending order, reserves stock,
// issues the proforma invoice and empties the cart. A checkout is claimed
// under the client's idempotency key, or the cart contents without one, so
// a resubmitted request cannot place a second order.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*OrderResponse, error) {
	started := time.Now()

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	key := checkoutKey(userID, req.IdempotencyKey, cart)
	claimed, err := s.idem.MarkProcessed(ctx, key, s.cfg.SagaKeyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim checkout: %w", err)
	}
	if !claimed {
		s.recorder.SagaRun(SagaCheckout, outcomeDuplicate, time.Since(started))
		return nil, ErrDuplicateCheckout
	}

	resp, err := s.checkout(ctx, userID, req, cart, started)
	if err != nil {
		s.release(ctx, key)
		return nil, err
	}
	return resp, nil
}

// checkoutKey derives the claim of one checkout. Without a client key the
// cart lines stand in: re-adding an item gives the line a new ID.
func checkoutKey(userID uuid.UUID, clientKey string, cart []sales.CartItem) string {
	h := sha256.New()
	if clientKey != "" {
		h.Write([]byte("key:" + clientKey))
	} else {
		for _, item := range cart {
			fmt.Fprintf(h, "%s:%d;", item.ID, item.Quantity)
		}
	}
	return "checkout:" + userID.String() + ":" + hex.EncodeToString(h.Sum(nil))
}

func (s *OrderService) checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest, cart []sales.CartItem, started time.Time) (*OrderResponse, error) {
	if len(cart) == 0 {
		return nil, shared.NewDomainError("EMPTY_CART", "Cart is empty")
	}
	address, err := s.addresses.FindByID(ctx, req.DeliveryAddressID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_ADDRESS", "Delivery address not found")
		}
		return nil, err
	}
	if !address.BelongsTo(userID) {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Delivery address not found")
	}

	lines, err := s.snapshotLines(ctx, cart)
	if err != nil {
		return nil, err
	}
	number, err := s.orders.NextOrderNumber(ctx, started)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate order number: %w", err)
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = string(identity.PaymentMethodPayU)
	}
	o, err := sales.NewOrder(number, userID, address.ID, paymentMethod, lines, s.pricing(lines), req.Notes)
	if err != nil {
		return nil, err
	}

	reservation := make([]inventory.Line, 0, len(lines))
	for _, l := range lines {
		reservation = append(reservation, inventory.Line{ProductID: l.ProductID, VariantID: l.VariantID, Quantity: l.Quantity})
	}

	steps := []Step{
		{
			Name:    "create_order",
			Execute: func(ctx context.Context) error { return s.orders.Create(ctx, o) },
			Compensate: func(ctx context.Context) error {
				return s.mutate(ctx, SagaCheckout, o, func(o *sales.Order) error {
					if o.Status == sales.OrderStatusCancelled {
						return nil
					}
					return o.Cancel("Checkout failed", nil)
				})
			},
		},
		{
			Name: "reserve_stock",
			Execute: func(ctx context.Context) error {
				_, err := s.stock.Reserve(ctx, o.ID, inventory.MergeLines(reservation))
				return err
			},
			Compensate: func(ctx context.Context) error { return s.stock.Release(ctx, o.ID) },
		},
		{
			Name: "issue_proforma",
			Execute: func(ctx context.Context) error {
				_, err := s.invoices.IssueProforma(ctx, o)
				return err
			},
		},
		{
			Name:    "clear_cart",
			Execute: func(ctx context.Context) error { return s.carts.ClearByUser(ctx, userID) },
		},
		{
			Name:       "notify_confirmation",
			BestEffort: true,
			Execute: func(ctx context.Context) error {
				email, err := s.customerEmail(ctx, o)
				if err != nil {
					return err
				}
				s.notifier.OrderConfirmation(email, o.OrderNumber, o.Total)
				return nil
			},
		},
	}

	if err := s.runner.run(ctx, SagaCheckout, o.ID, steps); err != nil {
		s.recorder.SagaRun(SagaCheckout, outcomeOf(err), time.Since(started))
		return nil, err
	}
	s.recorder.SagaRun(SagaCheckout, outcomeCompleted, time.Since(started))
	s.recorder.OrderPlaced(o.Total.InexactFloat64())
	s.logger.Info("Order placed",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.Total.StringFixed(2)),
	)

	resp := ToOrderResponse(o)
	return &resp, nil
}

// snapshotLines prices each cart line at the current catalog price
func (s *OrderService) snapshotLines(ctx context.Context, cart []sales.CartItem) ([]sales.OrderLine, error) {
	ids := make([]uuid.UUID, 0, len(cart))
	for _, item := range cart {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lines := make([]sales.OrderLine, 0, len(cart))
	for _, item := range cart {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE", "A product in the cart no longer exists")
		}
		if err := p.CheckAvailable(item.VariantID, item.Quantity); err != nil {
			return nil, err
		}
		price, err := p.PriceFor(item.VariantID)
		if err != nil {
			return nil, err
		}
		name, sku := p.Name, p.SKU
		if item.VariantID != nil {
			if v, err := p.Variant(*item.VariantID); err == nil {
				name, sku = p.Name+" - "+v.Name, v.SKU
			}
		}
		lines = append(lines, sales.OrderLine{
			ProductID:   p.ID,
			VariantID:   item.VariantID,
			ProductName: name,
			ProductSKU:  sku,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		})
	}
	return lines, nil
}

// pricing applies the configured tax and shipping rules
func (s *OrderService) pricing(lines []sales.OrderLine) sales.Pricing {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	shipping := decimal.NewFromFloat(s.cfg.ShippingCost)
	if s.cfg.FreeShippingOver > 0 && subtotal.GreaterThanOrEqual(decimal.NewFromFloat(s.cfg.FreeShippingOver)) {
		shipping = decimal.Zero
	}
	return sales.Pricing{
		TaxRate:      decimal.NewFromFloat(s.cfg.TaxRate),
		ShippingCost: shipping,
		Discount:     decimal.Zero,
	}
}

// InitiatePayment creates a payment at the provider for a pending order and
// returns the redirect URI. Repeating the call returns the same redirect.
func (s *OrderService) InitiatePayment(ctx context.Context, userID, orderID uuid.UUID, customerIP string) (*PaymentInitResponse, error) {
	started := time.Now()
	o, err := s.loadOwned(ctx, userID, orderID, false)
	if err != nil {
		return nil, err
	}
	if o.Status != sales.OrderStatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", "Only pending orders can be paid")
	}
	if o.IsPaid() {
		return nil, shared.NewDomainError("INVALID_STATE", "Order is already paid")
	}

	key := sagaKey(o.ID, SagaPaymentInit)
	claimed, err := s.idem.MarkProcessed(ctx, key, s.cfg.SagaKeyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim payment initiation: %w", err)
	}
	if !claimed {
		s.recorder.SagaRun(SagaPaymentInit, outcomeDuplicate, time.Since(started))
		if uri, ok := o.Metadata[metaRedirectURI].(string); ok && uri != "" {
			return &PaymentInitResponse{RedirectURI: uri, OrderID: o.ID}, nil
		}
		return nil, shared.NewDomainError("CONCURRENCY_CONFLICT", "Payment initiation is already in progress")
	}

	var result *payment.CreateResult
	steps := []Step{
		{
			Name: "create_payment",
			Execute: func(ctx context.Context) error {
				email, _ := s.customerEmail(ctx, o)
				r, err := s.gateway.CreatePayment(ctx, paymentRequest(o, email, customerIP))
				result = r
				return err
			},
		},
		{
			Name: "store_transaction",
			Execute: func(ctx context.Context) error {
				return s.mutate(ctx, SagaPaymentInit, o, func(o *sales.Order) error {
					if o.Status != sales.OrderStatusPending {
						return shared.NewDomainError("INVALID_STATE", "Order is no longer pending")
					}
					o.SetPaymentTransaction(result.TransactionID)
					o.Metadata[metaRedirectURI] = result.RedirectURI
					o.Metadata["payment_provider"] = s.gateway.Name()
					return nil
				})
			},
		},
	}
	if err := s.runner.run(ctx, SagaPaymentInit, o.ID, steps); err != nil {
		s.release(ctx, key)
		s.recorder.SagaRun(SagaPaymentInit, outcomeOf(err), time.Since(started))
		return nil, err
	}
	s.recorder.SagaRun(SagaPaymentInit, outcomeCompleted, time.Since(started))
	return &PaymentInitResponse{RedirectURI: result.RedirectURI, OrderID: o.ID}, nil
}

func paymentRequest(o *sales.Order, email, customerIP string) payment.CreateRequest {
	items := make([]payment.Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, payment.Item{Name: it.ProductName, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return payment.CreateRequest{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Amount:        o.Total,
		Currency:      string(o.Currency),
		Description:   "Objednávka " + o.OrderNumber,
		CustomerEmail: email,
		CustomerIP:    customerIP,
		Items:         items,
	}
}

// HandlePaymentNotification applies a verified provider notification. Each
// (order, transaction, status) triple is processed once; unrelated provider
// events are acknowledged and ignored with a nil order.
func (s *OrderService) HandlePaymentNotification(ctx context.Context, payload []byte, header http.Header) (*OrderResponse, error) {
	started := time.Now()
	n, err := s.gateway.ParseNotification(payload, header)
	if err != nil {
		if errors.Is(err, payment.ErrIgnoredNotification) {
			return nil, nil
		}
		return nil, err
	}
	s.recorder.Webhook(s.gateway.Name(), string(n.Status))

	o, err := s.findNotified(ctx, n)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(
		zap.String("order_id", o.ID.String()),
		zap.String("transaction_id", n.TransactionID),
		zap.String("payment_status", string(n.Status)),
	)

	if n.Status == payment.StatusPending {
		log.Debug("Payment still pending")
		resp := ToOrderResponse(o)
		return &resp, nil
	}
	if n.Status == payment.StatusCompleted && !n.Amount.IsZero() && !n.Amount.Equal(o.Total) {
		log.Error("Payment amount does not match order total, not applied",
			zap.String("paid", n.Amount.StringFixed(2)),
			zap.String("total", o.Total.StringFixed(2)),
		)
		s.recorder.SagaRun(SagaPaymentWebhook, outcomeFailed, time.Since(started))
		return nil, ErrPaymentAmountMismatch
	}

	key := sagaKey(o.ID, SagaPaymentWebhook, n.TransactionID, string(n.Status))
	claimed, err := s.idem.MarkProcessed(ctx, key, s.cfg.SagaKeyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim payment notification: %w", err)
	}
	if !claimed {
		log.Info("Duplicate payment notification ignored")
		s.recorder.SagaRun(SagaPaymentWebhook, outcomeDuplicate, time.Since(started))
		resp := ToOrderResponse(o)
		return &resp, nil
	}

	var steps []Step
	switch n.Status {
	case payment.StatusCompleted:
		steps = s.paymentCompletedSteps(o, n)
	default:
		steps = s.paymentFailedSteps(o)
	}

	if err := s.runner.run(ctx, SagaPaymentWebhook, o.ID, steps); err != nil {
		s.release(ctx, key)
		s.recorder.SagaRun(SagaPaymentWebhook, outcomeOf(err), time.Since(started))
		return nil, err
	}
	s.recorder.SagaRun(SagaPaymentWebhook, outcomeCompleted, time.Since(started))
	log.Info("Payment notification applied", zap.String("status", string(o.Status)))
	resp := ToOrderResponse(o)
	return &resp, nil
}

func (s *OrderService) findNotified(ctx context.Context, n *payment.Notification) (*sales.Order, error) {
	if n.OrderID != uuid.Nil {
		o, err := s.orders.FindByID(ctx, n.OrderID)
		if err == nil || !errors.Is(err, shared.ErrNotFound) || n.TransactionID == "" {
			return o, err
		}
	}
	if n.TransactionID == "" {
		return nil, shared.ErrNotFound
	}
	return s.orders.FindByTransactionID(ctx, n.TransactionID)
}

func (s *OrderService) paymentCompletedSteps(o *sales.Order, n *payment.Notification) []Step {
	return []Step{
		{
			Name: "mark_paid",
			Execute: func(ctx context.Context) error {
				return s.mutate(ctx, SagaPaymentWebhook, o, func(o *sales.Order) error {
					return o.MarkPaid(n.TransactionID)
				})
			},
			Compensate: func(ctx context.Context) error {
				if err := s.gateway.Refund(ctx, o.PaymentTransactionID, o.Total, "Order could not be confirmed"); err != nil {
					return err
				}
				cancelled := false
				if err := s.mutate(ctx, SagaPaymentWebhook, o, func(o *sales.Order) error {
					if err := o.MarkPaymentRefunded(); err != nil {
						return err
					}
					cancelled = o.Status.CanTransitionTo(sales.OrderStatusCancelled)
					if cancelled {
						return o.Cancel("Payment could not be applied", nil)
					}
					return nil
				}); err != nil {
					return err
				}
				if !cancelled {
					return nil
				}
				return s.stock.Release(ctx, o.ID)
			},
		},
		{
			Name: "confirm_order",
			Execute: func(ctx context.Context) error {
				return s.mutate(ctx, SagaPaymentWebhook, o, func(o *sales.Order) error {
					return o.Confirm("Payment received", nil)
				})
			},
			Compensate: func(ctx context.Context) error {
				if err := s.mutate(ctx, SagaPaymentWebhook, o, func(o *sales.Order) error {
					if !o.Status.CanTransitionTo(sales.OrderStatusCancelled) {
						return nil
					}
					return o.Cancel("Payment processing failed", nil)
				}); err != nil {
					return err
				}
				return s.stock.Release(ctx, o.ID)
			},
		},
		{
			Name: "issue_invoice",
			Execute: func(ctx context.Context) error {
				_, err := s.invoices.IssueInvoice(ctx, o)
				return err
			},
		},
		{
			Name:       "notify_payment",
			BestEffort: true,
			Execute: func(ctx context.Context) error {
				email, err := s.customerEmail(ctx, o)
				if err != nil {
					return err
				}
				s.notifier.PaymentConfirmation(email, o.OrderNumber, o.Total)
				return nil
			},
		},
		{
			Name:       "forward_to_supplier",
			BestEffort: true,
			Execute: func(ctx context.Context) error {
				if s.forwarder == nil {
					return nil
				}
				return s.forwarder.ForwardOrder(ctx, o)
			},
		},
	}
}

func (s *OrderService) paymentFailedSteps(o *sales.Order) []Step {
	return []Step{
		{
			Name: "mark_payment_failed",
			Execute: func(ctx context.Context) error {
				return s.mutate(ctx, SagaPaymentWebhook, o, func(o *sales.Order) error {
					if o.IsPaid() {
						return shared.NewDomainError("INVALID_STATE", "Order is already paid")
					}
					if err := o.MarkPaymentFailed(); err != nil {
						return err
					}
					if o.Status.CanTransitionTo(sales.OrderStatusCancelled) {
						return o.Cancel("Payment was not completed", nil)
					}
					return nil
				})
			},
		},
		{
			Name:    "release_stock",
			Execute: func(ctx context.Context) error { return s.stock.Release(ctx, o.ID) },
		},
		{
			Name:       "notify_status",
			BestEffort: true,
			Execute: func(ctx context.Context) error { return s.notifyStatus(ctx, o) },
		},
	}
}

// ChangeStatus moves an order along the status machine on behalf of an
// admin, running the side effects of the target status.
func (s *OrderService) ChangeStatus(ctx context.Context, adminID, orderID uuid.UUID, req ChangeStatusRequest) (*OrderResponse, error) {
	target := sales.OrderStatus(req.Status)
	if !target.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if target == sales.OrderStatusShipped && req.TrackingNumber == "" {
		return nil, shared.NewDomainError("TRACKING_REQUIRED", "Tracking number is required to ship an order")
	}
	return s.transition(ctx, SagaStatusChange, o, target, req, &adminID)
}

// Cancel cancels an order on behalf of its customer. Only pending and
// confirmed orders can be cancelled; paid orders are refunded.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	o, err := s.loadOwned(ctx, userID, orderID, false)
	if err != nil {
		return nil, err
	}
	if o.Status != sales.OrderStatusCancelled && !o.CanCustomerCancel() {
		return nil, shared.NewDomainError("INVALID_STATE", "Order can no longer be cancelled")
	}
	reason := req.Reason
	if reason == "" {
		reason = "Cancelled by customer"
	}
	return s.transition(ctx, SagaCustomerCancel, o, sales.OrderStatusCancelled, ChangeStatusRequest{Notes: reason}, &userID)
}

// transition runs the saga of one status change. An order already in the
// target status is returned as it is.
func (s *OrderService) transition(ctx context.Context, saga string, o *sales.Order, target sales.OrderStatus, req ChangeStatusRequest, by *uuid.UUID) (*OrderResponse, error) {
	started := time.Now()
	if o.Status == target {
		s.recorder.SagaRun(saga, outcomeDuplicate, time.Since(started))
		resp := ToOrderResponse(o)
		return &resp, nil
	}
	if !o.Status.CanTransitionTo(target) {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change order status from %s to %s", o.Status, target))
	}

	key := sagaKey(o.ID, SagaStatusChange, string(target))
	claimed, err := s.idem.MarkProcessed(ctx, key, s.cfg.SagaKeyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim status change: %w", err)
	}
	if !claimed {
		s.recorder.SagaRun(saga, outcomeDuplicate, time.Since(started))
		resp := ToOrderResponse(o)
		return &resp, nil
	}

	if err := s.runner.run(ctx, saga, o.ID, s.transitionSteps(saga, o, target, req, by)); err != nil {
		s.release(ctx, key)
		s.recorder.SagaRun(saga, outcomeOf(err), time.Since(started))
		return nil, err
	}
	s.recorder.SagaRun(saga, outcomeCompleted, time.Since(started))
	s.logger.Info("Order status changed",
		zap.String("order_id", o.ID.String()),
		zap.String("status", string(o.Status)),
	)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// transitionSteps orders the work of a status change so that the order is
// saved first and can be reverted, the refund is the point of no return and
// stock bookkeeping comes last.
func (s *OrderService) transitionSteps(saga string, o *sales.Order, target sales.OrderStatus, req ChangeStatusRequest, by *uuid.UUID) []Step {
	notes := req.Notes
	var before sales.OrderState
	wasPaid := false
	// move saves apply and can put the order back the way it found it
	move := func(name, revertNotes string, apply func(o *sales.Order) error) Step {
		return Step{
			Name: name,
			Execute: func(ctx context.Context) error {
				return s.mutate(ctx, saga, o, func(o *sales.Order) error {
					before = o.State()
					wasPaid = o.IsPaid()
					return apply(o)
				})
			},
			Compensate: func(ctx context.Context) error {
				return s.mutate(ctx, saga, o, func(o *sales.Order) error {
					o.Revert(before, revertNotes)
					return nil
				})
			},
		}
	}
	refund := Step{
		Name:  "refund_payment",
		Pivot: true,
		Execute: func(ctx context.Context) error {
			if !wasPaid {
				return nil
			}
			return s.gateway.Refund(ctx, o.PaymentTransactionID, o.Total, notes)
		},
	}
	refundPayment := func(o *sales.Order) error {
		if o.IsPaid() {
			return o.MarkPaymentRefunded()
		}
		return nil
	}
	notify := Step{
		Name:       "notify_status",
		BestEffort: true,
		Execute:    func(ctx context.Context) error { return s.notifyStatus(ctx, o) },
	}

	var steps []Step
	switch target {
	case sales.OrderStatusShipped:
		steps = []Step{
			move("ship_order", "Shipment could not be recorded", func(o *sales.Order) error {
				return o.Ship(req.TrackingNumber, req.ShippingProvider, by)
			}),
			{
				Name:    "commit_reservation",
				Execute: func(ctx context.Context) error { return s.stock.Commit(ctx, o.ID) },
			},
		}
	case sales.OrderStatusCancelled:
		steps = []Step{
			move("cancel_order", "Cancellation failed", func(o *sales.Order) error {
				if err := o.Cancel(notes, by); err != nil {
					return err
				}
				return refundPayment(o)
			}),
			refund,
			{
				Name:    "release_stock",
				Execute: func(ctx context.Context) error { return s.stock.Release(ctx, o.ID) },
			},
		}
	case sales.OrderStatusRefunded:
		steps = []Step{
			move("mark_refunded", "Refund failed", func(o *sales.Order) error {
				if err := o.TransitionTo(sales.OrderStatusRefunded, notes, by); err != nil {
					return err
				}
				return refundPayment(o)
			}),
			refund,
			{
				Name:    "restock",
				Execute: func(ctx context.Context) error { return s.stock.Restock(ctx, o.ID) },
			},
		}
	default:
		steps = []Step{
			move("change_status", "Status change failed", func(o *sales.Order) error {
				return o.TransitionTo(target, notes, by)
			}),
		}
	}
	return append(steps, notify)
}

// mutate applies fn to a copy of o and saves it under the optimistic lock;
// o takes the copy's state only once the save succeeds. On a version
// conflict o is reloaded and fn reapplied, up to the configured number of
// retries.
func (s *OrderService) mutate(ctx context.Context, saga string, o *sales.Order, fn func(o *sales.Order) error) error {
	for attempt := 0; ; attempt++ {
		work := o.Clone()
		if err := fn(work); err != nil {
			return err
		}
		err := s.orders.SaveWithLock(ctx, work)
		if err == nil {
			if work.Status != o.Status {
				s.recorder.Transition(string(o.Status), string(work.Status))
			}
			*o = *work
			return nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= s.cfg.MaxConflictRetry {
			return err
		}
		s.recorder.ConflictRetry(saga)
		s.logger.Debug("Order version conflict, reloading",
			zap.String("order_id", o.ID.String()),
			zap.Int("attempt", attempt+1),
		)
		fresh, ferr := s.orders.FindByID(ctx, o.ID)
		if ferr != nil {
			return ferr
		}
		*o = *fresh
	}
}

func (s *OrderService) notifyStatus(ctx context.Context, o *sales.Order) error {
	email, err := s.customerEmail(ctx, o)
	if err != nil {
		return err
	}
	if o.Status == sales.OrderStatusShipped && o.TrackingNumber != "" {
		s.notifier.ShipmentTracking(email, o.OrderNumber, o.TrackingNumber)
		return nil
	}
	s.notifier.OrderStatusUpdate(email, o.OrderNumber, string(o.Status))
	return nil
}

func (s *OrderService) customerEmail(ctx context.Context, o *sales.Order) (string, error) {
	u, err := s.users.FindByID(ctx, o.UserID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func (s *OrderService) loadOwned(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*sales.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !o.BelongsTo(userID) {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

// release forgets a saga key so that a failed run can be retried
func (s *OrderService) release(ctx context.Context, key string) {
	if err := s.idem.Forget(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("Failed to release saga key", zap.String("key", key), zap.Error(err))
	}
}

func outcomeOf(err error) string {
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		return outcomeConflict
	}
	return outcomeFailed
}
