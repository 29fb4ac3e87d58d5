// Package inventory reacts to stock movements caused by orders.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/inventory"
	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAlertInterval is the quiet period between two alerts for one SKU
const DefaultAlertInterval = time.Hour

// StockAlertNotifier delivers low stock alerts to the shop operator
type StockAlertNotifier interface {
	LowStock(recipient, sku, name string, stock int)
}

// ProductReader loads catalog products
type ProductReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// StockAlert describes one product or variant at or below the threshold
type StockAlert struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	SKU       string
	Name      string
	Stock     int
	AlertType string // low_stock, out_of_stock
}

// LowStockConfig configures LowStockHandler
type LowStockConfig struct {
	Threshold int
	Recipient string
	// MinInterval suppresses repeated alerts for the same SKU
	MinInterval time.Duration
}

// LowStockHandler checks the reserved lines of every new order and alerts the
// operator about tracked products whose remaining stock is at or below the
// threshold
type LowStockHandler struct {
	reservations inventory.ReservationStore
	products     ProductReader
	notifier     StockAlertNotifier
	cfg          LowStockConfig
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewLowStockHandler creates a new LowStockHandler
func NewLowStockHandler(
	reservations inventory.ReservationStore,
	products ProductReader,
	notifier StockAlertNotifier,
	cfg LowStockConfig,
	logger *zap.Logger,
) *LowStockHandler {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultAlertInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockHandler{
		reservations: reservations,
		products:     products,
		notifier:     notifier,
		cfg:          cfg,
		logger:       logger.Named("low_stock"),
		now:          time.Now,
		lastSent:     make(map[string]time.Time),
	}
}

// Name identifies the handler in logs and idempotency keys
func (h *LowStockHandler) Name() string { return "low_stock" }

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{sales.EventTypeOrderCreated}
}

// Handle processes an OrderCreatedEvent
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	created, ok := event.(*sales.OrderCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			sales.EventTypeOrderCreated, event.EventType())
	}

	reservation, err := h.reservations.Find(ctx, created.OrderID)
	if err != nil {
		// Checkout failed before stock was held; nothing moved.
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("loading reservation for order %s: %w", created.OrderID, err)
	}

	for _, alert := range h.check(ctx, reservation.Lines) {
		h.send(alert)
	}
	return nil
}

func (h *LowStockHandler) check(ctx context.Context, lines []inventory.Line) []StockAlert {
	var alerts []StockAlert
	seen := make(map[uuid.UUID]*catalog.Product, len(lines))
	for _, line := range lines {
		product, ok := seen[line.ProductID]
		if !ok {
			p, err := h.products.FindByID(ctx, line.ProductID)
			if err != nil {
				h.logger.Debug("skipping stock check", zap.String("product_id", line.ProductID.String()), zap.Error(err))
				continue
			}
			product, seen[line.ProductID] = p, p
		}
		if !product.TrackInventory {
			continue
		}

		alert := StockAlert{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Stock:     product.StockQuantity,
		}
		if line.VariantID != nil {
			variant, err := product.Variant(*line.VariantID)
			if err != nil {
				continue
			}
			alert.VariantID = line.VariantID
			alert.SKU = variant.SKU
			alert.Name = product.Name + " / " + variant.Name
			alert.Stock = variant.StockQuantity
		}
		if alert.Stock > h.cfg.Threshold {
			continue
		}
		alert.AlertType = "low_stock"
		if alert.Stock <= 0 {
			alert.AlertType = "out_of_stock"
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

func (h *LowStockHandler) send(alert StockAlert) {
	now := h.now()
	h.mu.Lock()
	if last, ok := h.lastSent[alert.SKU]; ok && now.Sub(last) < h.cfg.MinInterval {
		h.mu.Unlock()
		return
	}
	h.lastSent[alert.SKU] = now
	h.mu.Unlock()

	h.logger.Warn("stock below threshold",
		zap.String("sku", alert.SKU),
		zap.String("product_id", alert.ProductID.String()),
		zap.Int("stock", alert.Stock),
		zap.Int("threshold", h.cfg.Threshold),
		zap.String("alert_type", alert.AlertType),
	)
	if h.notifier != nil && h.cfg.Recipient != "" {
		h.notifier.LowStock(h.cfg.Recipient, alert.SKU, alert.Name, alert.Stock)
	}
}

var _ shared.EventHandler = (*LowStockHandler)(nil)
