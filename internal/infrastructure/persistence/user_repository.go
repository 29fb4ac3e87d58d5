package persistence

import (
	"context"

	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	outboxWriter
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a user by normalized email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).
		Where("email = ?", identity.NormalizeEmail(email)).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ExistsByEmail checks whether an account uses the email
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("email = ?", identity.NormalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, u *identity.User) error {
	events := u.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(models.UserModelFromDomain(u)).Error; err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return translateError(err)
	}
	u.ClearDomainEvents()
	return nil
}

// Delete removes a user together with addresses, payment methods, cart
// items and orders
func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderIDs := tx.Model(&models.OrderModel{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("order_id IN (?)", orderIDs).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id IN (?)", orderIDs).Delete(&models.OrderHistoryModel{}).Error; err != nil {
			return err
		}
		for _, m := range []any{
			&models.OrderModel{},
			&models.CartItemModel{},
			&models.PaymentMethodModel{},
			&models.DeliveryAddressModel{},
		} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&models.UserModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return translateError(gorm.ErrRecordNotFound)
		}
		return nil
	})
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

// GormAddressRepository implements identity.AddressRepository using GORM
type GormAddressRepository struct {
	db *gorm.DB
}

// NewGormAddressRepository creates a new GormAddressRepository
func NewGormAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

// FindByID finds an address by ID
func (r *GormAddressRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.DeliveryAddress, error) {
	var model models.DeliveryAddressModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByUser lists a user's addresses, default first
func (r *GormAddressRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.DeliveryAddress, error) {
	var rows []models.DeliveryAddressModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]identity.DeliveryAddress, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates an address. Saving a default address clears the
// default flag on the user's other addresses.
func (r *GormAddressRepository) Save(ctx context.Context, a *identity.DeliveryAddress) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if a.IsDefault {
			if err := tx.Model(&models.DeliveryAddressModel{}).
				Where("user_id = ? AND id <> ?", a.UserID, a.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(models.DeliveryAddressModelFromDomain(a)).Error
	})
}

// Delete removes an address
func (r *GormAddressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.DeliveryAddressModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

var _ identity.AddressRepository = (*GormAddressRepository)(nil)

// GormPaymentMethodRepository implements identity.PaymentMethodRepository using GORM
type GormPaymentMethodRepository struct {
	db *gorm.DB
}

// NewGormPaymentMethodRepository creates a new GormPaymentMethodRepository
func NewGormPaymentMethodRepository(db *gorm.DB) *GormPaymentMethodRepository {
	return &GormPaymentMethodRepository{db: db}
}

// FindByID finds a payment method by ID
func (r *GormPaymentMethodRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.PaymentMethod, error) {
	var model models.PaymentMethodModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByUser lists a user's active payment methods, default first
func (r *GormPaymentMethodRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.PaymentMethod, error) {
	var rows []models.PaymentMethodModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]identity.PaymentMethod, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates a payment method, keeping a single default per user
func (r *GormPaymentMethodRepository) Save(ctx context.Context, m *identity.PaymentMethod) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.IsDefault {
			if err := tx.Model(&models.PaymentMethodModel{}).
				Where("user_id = ? AND id <> ?", m.UserID, m.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(models.PaymentMethodModelFromDomain(m)).Error
	})
}

// Delete removes a payment method
func (r *GormPaymentMethodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentMethodModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

var _ identity.PaymentMethodRepository = (*GormPaymentMethodRepository)(nil)
