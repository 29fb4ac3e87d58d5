package persistence

import (
	"context"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/domain/supplier"
	"github.com/flipflop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSupplierRepository implements supplier.Repository using GORM
type GormSupplierRepository struct {
	outboxWriter
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByID finds a supplier by ID
func (r *GormSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*supplier.Supplier, error) {
	var model models.SupplierModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// List returns a page of suppliers
func (r *GormSupplierRepository) List(ctx context.Context, filter shared.Filter) ([]supplier.Supplier, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SupplierModel{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR contact_email LIKE ?", like, like)
	}
	if v, ok := filter.Filters["is_active"].(bool); ok {
		query = query.Where("is_active = ?", v)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.SupplierModel
	if err := paginate(query, filter, supplierSortColumns, "name").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]supplier.Supplier, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

// FindAutoForwarding lists active suppliers that accept forwarded orders
func (r *GormSupplierRepository) FindAutoForwarding(ctx context.Context) ([]supplier.Supplier, error) {
	var rows []models.SupplierModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND auto_forward_orders = ?", true, true).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]supplier.Supplier, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates a supplier
func (r *GormSupplierRepository) Save(ctx context.Context, s *supplier.Supplier) error {
	events := s.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(models.SupplierModelFromDomain(s)).Error; err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return translateError(err)
	}
	s.ClearDomainEvents()
	return nil
}

// Delete removes a supplier and its product offers
func (r *GormSupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("supplier_id = ?", id).Delete(&models.SupplierProductModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.SupplierModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return translateError(gorm.ErrRecordNotFound)
		}
		return nil
	})
}

// FindProducts returns a page of a supplier's product offers
func (r *GormSupplierRepository) FindProducts(ctx context.Context, supplierID uuid.UUID, filter shared.Filter) ([]supplier.SupplierProduct, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SupplierProductModel{}).Where("supplier_id = ?", supplierID)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR supplier_sku LIKE ?", like, like)
	}
	if linked, ok := filter.Filters["linked"].(bool); ok {
		if linked {
			query = query.Where("product_id IS NOT NULL")
		} else {
			query = query.Where("product_id IS NULL")
		}
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.SupplierProductModel
	if err := paginate(query, filter, supplierProductSortColumns, "supplier_sku").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return supplierProductsToDomain(rows), total, nil
}

// FindProductBySKU finds a supplier's offer by the supplier's own SKU
func (r *GormSupplierRepository) FindProductBySKU(ctx context.Context, supplierID uuid.UUID, sku string) (*supplier.SupplierProduct, error) {
	var model models.SupplierProductModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND supplier_sku = ?", supplierID, sku).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindProductsByCatalogIDs lists the supplier's offers linked to the given catalog products
func (r *GormSupplierRepository) FindProductsByCatalogIDs(ctx context.Context, supplierID uuid.UUID, productIDs []uuid.UUID) ([]supplier.SupplierProduct, error) {
	if len(productIDs) == 0 {
		return []supplier.SupplierProduct{}, nil
	}
	var rows []models.SupplierProductModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND product_id IN ?", supplierID, productIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return supplierProductsToDomain(rows), nil
}

// SaveProduct creates or updates a supplier product offer
func (r *GormSupplierRepository) SaveProduct(ctx context.Context, p *supplier.SupplierProduct) error {
	return translateError(r.db.WithContext(ctx).Save(models.SupplierProductModelFromDomain(p)).Error)
}

func supplierProductsToDomain(rows []models.SupplierProductModel) []supplier.SupplierProduct {
	out := make([]supplier.SupplierProduct, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}


var _ supplier.Repository = (*GormSupplierRepository)(nil)
