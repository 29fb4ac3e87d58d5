package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: opens a fresh database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.CategoryModel{},
		&models.ProductModel{},
		&models.ProductVariantModel{},
		&models.ProductCategoryModel{},
		&models.UserModel{},
		&models.DeliveryAddressModel{},
		&models.PaymentMethodModel{},
		&models.CartItemModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.OrderHistoryModel{},
		&models.DocumentSequenceModel{},
		&models.InvoiceModel{},
		&models.ProformaInvoiceModel{},
		&models.CompanySettingsModel{},
		&models.SupplierModel{},
		&models.SupplierProductModel{},
	)
	require.NoError(t, err)
	return db
}

// recordingOutbox captures events handed to the outbox
type recordingOutbox struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (o *recordingOutbox) SaveEvents(_ context.Context, _ any, events ...shared.DomainEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, events...)
	return nil
}

func (o *recordingOutbox) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.events))
	for _, e := range o.events {
		out = append(out, e.EventType())
	}
	return out
}
