package persistence

import (
	"context"
	"strings"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	outboxWriter
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Categories")
}

// FindByID finds a product with its variants and categories
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withAssociations(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindBySKU finds a product by its SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withAssociations(ctx).
		Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the products with the given IDs. Missing IDs are skipped.
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.withAssociations(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return productsToDomain(rows), nil
}

// Search lists products matching the query with the total match count
func (r *GormProductRepository) Search(ctx context.Context, q catalog.ProductQuery) ([]catalog.Product, int64, error) {
	q.Normalize()
	query := r.db.WithContext(ctx).Model(&models.ProductModel{})

	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sku) LIKE ?", like, like, like)
	}
	if len(q.CategoryIDs) > 0 {
		query = query.Where("id IN (?)",
			r.db.Model(&models.ProductCategoryModel{}).Select("product_id").Where("category_id IN ?", q.CategoryIDs))
	}
	if q.MinPrice != nil {
		query = query.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		query = query.Where("price <= ?", *q.MaxPrice)
	}
	if q.Brand != "" {
		query = query.Where("brand = ?", q.Brand)
	}
	if q.IsActive != nil {
		query = query.Where("is_active = ?", *q.IsActive)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProductModel
	err := query.
		Preload("Variants").
		Preload("Categories").
		Order(orderClause(q.SortColumn(), q.SortOrder, productSortColumns, "created_at")).
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return productsToDomain(rows), total, nil
}

// ExistsBySKU checks whether a product with the SKU exists
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a product, replacing its variants and category links
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	model := models.ProductModelFromDomain(p)
	events := p.GetDomainEvents()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}

		variantIDs := make([]uuid.UUID, 0, len(model.Variants))
		for _, v := range model.Variants {
			variantIDs = append(variantIDs, v.ID)
		}
		stale := tx.Where("product_id = ?", p.ID)
		if len(variantIDs) > 0 {
			stale = stale.Where("id NOT IN ?", variantIDs)
		}
		if err := stale.Delete(&models.ProductVariantModel{}).Error; err != nil {
			return err
		}
		for i := range model.Variants {
			if err := tx.Save(&model.Variants[i]).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("product_id = ?", p.ID).Delete(&models.ProductCategoryModel{}).Error; err != nil {
			return err
		}
		if len(model.Categories) > 0 {
			if err := tx.Create(&model.Categories).Error; err != nil {
				return err
			}
		}

		return r.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return translateError(err)
	}
	p.ClearDomainEvents()
	return nil
}

// Delete removes a product with its variants and category links and
// records a ProductDeleted event
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.ProductModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return translateError(err)
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductCategoryModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductVariantModel{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ProductModel{}, "id = ?", id).Error; err != nil {
			return err
		}
		p := model.ToDomain()
		p.MarkDeleted()
		return r.saveEvents(ctx, tx, p.GetDomainEvents())
	})
}

func productsToDomain(rows []models.ProductModel) []catalog.Product {
	out := make([]catalog.Product, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
