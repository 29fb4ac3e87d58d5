package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/flipflop/backend/internal/domain/billing"
	"github.com/flipflop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// SaveInvoice stores an invoice. An order has at most one invoice.
func (r *GormInvoiceRepository) SaveInvoice(ctx context.Context, inv *billing.Invoice) error {
	return translateError(r.db.WithContext(ctx).Save(models.InvoiceModelFromDomain(inv)).Error)
}

// SaveProforma stores a proforma invoice
func (r *GormInvoiceRepository) SaveProforma(ctx context.Context, p *billing.ProformaInvoice) error {
	return translateError(r.db.WithContext(ctx).Save(models.ProformaInvoiceModelFromDomain(p)).Error)
}

// FindInvoiceByOrder finds the invoice issued for an order
func (r *GormInvoiceRepository) FindInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindProformaByOrder finds the most recent proforma issued for an order
func (r *GormInvoiceRepository) FindProformaByOrder(ctx context.Context, orderID uuid.UUID) (*billing.ProformaInvoice, error) {
	var model models.ProformaInvoiceModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("issued_at DESC").
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// NextNumber allocates the next document number for the prefix and year
func (r *GormInvoiceRepository) NextNumber(ctx context.Context, prefix string, at time.Time) (string, error) {
	return nextDocumentNumber(ctx, r.db, prefix, at)
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)

// GormSettingsRepository implements billing.SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get returns the company settings row, inserting the defaults on first use
func (r *GormSettingsRepository) Get(ctx context.Context) (*billing.CompanySettings, error) {
	var model models.CompanySettingsModel
	err := r.db.WithContext(ctx).Order("updated_at ASC").First(&model).Error
	if err == nil {
		return model.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	defaults := billing.DefaultCompanySettings()
	if err := r.db.WithContext(ctx).Create(models.CompanySettingsModelFromDomain(defaults)).Error; err != nil {
		return nil, translateError(err)
	}
	return defaults, nil
}

// Save updates the company settings
func (r *GormSettingsRepository) Save(ctx context.Context, s *billing.CompanySettings) error {
	s.UpdatedAt = time.Now()
	return translateError(r.db.WithContext(ctx).Save(models.CompanySettingsModelFromDomain(s)).Error)
}

var _ billing.SettingsRepository = (*GormSettingsRepository)(nil)
