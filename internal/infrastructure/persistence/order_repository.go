package persistence

import (
	"context"
	"time"

	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements sales.OrderRepository using GORM
type GormOrderRepository struct {
	outboxWriter
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

// FindByID finds an order with items and status history
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Order, error) {
	var model models.OrderModel
	if err := r.withDetails(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an order by its customer-facing number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*sales.Order, error) {
	var model models.OrderModel
	if err := r.withDetails(ctx).Where("order_number = ?", orderNumber).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByTransactionID finds the order a payment transaction belongs to
func (r *GormOrderRepository) FindByTransactionID(ctx context.Context, transactionID string) (*sales.Order, error) {
	var model models.OrderModel
	if err := r.withDetails(ctx).Where("payment_transaction_id = ?", transactionID).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// List returns a page of orders with items, newest first by default
func (r *GormOrderRepository) List(ctx context.Context, q sales.OrderQuery) ([]sales.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *q.PaymentStatus)
	}
	if q.Search != "" {
		query = query.Where("order_number LIKE ?", "%"+q.Search+"%")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := paginate(query.Preload("Items"), q.Filter, orderSortColumns, "created_at").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]sales.Order, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

// Create inserts a new order with its items, initial history and events
func (r *GormOrderRepository) Create(ctx context.Context, o *sales.Order) error {
	model := models.OrderModelFromDomain(o)
	events := o.GetDomainEvents()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		if err := r.appendHistory(tx, o); err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return translateError(err)
	}
	o.ClearDomainEvents()
	o.ClearPendingHistory()
	return nil
}

// SaveWithLock persists the order only if nobody else changed it since it
// was loaded. On success o.Version is incremented.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *sales.Order) error {
	events := o.GetDomainEvents()
	expected := o.Version
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, expected).
			Updates(map[string]any{
				"status":                 o.Status,
				"payment_status":         o.PaymentStatus,
				"payment_method":         o.PaymentMethod,
				"payment_transaction_id": o.PaymentTransactionID,
				"subtotal":               o.Subtotal,
				"tax":                    o.Tax,
				"shipping_cost":          o.ShippingCost,
				"discount":               o.Discount,
				"total":                  o.Total,
				"tracking_number":        o.TrackingNumber,
				"shipping_provider":      o.ShippingProvider,
				"notes":                  o.Notes,
				"cancellation_reason":    o.CancellationReason,
				"metadata":               models.NewJSON(o.Metadata),
				"version":                expected + 1,
				"updated_at":             now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.OrderModel{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrConcurrencyConflict
		}
		if err := r.appendHistory(tx, o); err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return translateError(err)
	}

	o.Version = expected + 1
	o.UpdatedAt = now
	o.ClearDomainEvents()
	o.ClearPendingHistory()
	return nil
}

func (r *GormOrderRepository) appendHistory(tx *gorm.DB, o *sales.Order) error {
	pending := o.PendingHistory()
	if len(pending) == 0 {
		return nil
	}
	rows := make([]models.OrderHistoryModel, 0, len(pending))
	for _, h := range pending {
		h.OrderID = o.ID
		rows = append(rows, models.OrderHistoryModelFromDomain(h))
	}
	return tx.Create(&rows).Error
}

// NextOrderNumber allocates the next ORD-YYYY-NNNNNN number
func (r *GormOrderRepository) NextOrderNumber(ctx context.Context, at time.Time) (string, error) {
	return nextDocumentNumber(ctx, r.db, sales.OrderNumberPrefix, at)
}

var _ sales.OrderRepository = (*GormOrderRepository)(nil)
