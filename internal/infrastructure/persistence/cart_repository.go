package persistence

import (
	"context"

	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCartRepository implements sales.CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByUser lists the user's cart lines in insertion order
func (r *GormCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]sales.CartItem, error) {
	var rows []models.CartItemModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]sales.CartItem, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// FindByID finds a cart line by ID
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.CartItem, error) {
	var model models.CartItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindLine finds the user's line for a product and optional variant
func (r *GormCartRepository) FindLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*sales.CartItem, error) {
	query := r.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID)
	if variantID == nil {
		query = query.Where("variant_id IS NULL")
	} else {
		query = query.Where("variant_id = ?", *variantID)
	}
	var model models.CartItemModel
	if err := query.First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a cart line
func (r *GormCartRepository) Save(ctx context.Context, item *sales.CartItem) error {
	return translateError(r.db.WithContext(ctx).Save(models.CartItemModelFromDomain(item)).Error)
}

// Delete removes a cart line
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CartItemModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

// ClearByUser empties the user's cart
func (r *GormCartRepository) ClearByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItemModel{}).Error
}

var _ sales.CartRepository = (*GormCartRepository)(nil)
