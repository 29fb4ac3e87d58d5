package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/domain/supplier"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSupplierRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSupplierRepository(db)
	ctx := context.Background()

	forwarding, err := supplier.NewSupplier(supplier.Fields{
		Name:              "Sandal Wholesale",
		APIURL:            "https://api.sandals.example/",
		APIKey:            "key",
		IsActive:          true,
		AutoForwardOrders: true,
		APIConfig:         map[string]any{"catalog_path": "/v1/products"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, forwarding))

	manual, err := supplier.NewSupplier(supplier.Fields{Name: "Local Cobbler", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, manual))

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, forwarding.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://api.sandals.example", found.APIURL)
		assert.Equal(t, "/v1/products", found.APIConfig["catalog_path"])
	})

	t.Run("auto forwarding only", func(t *testing.T) {
		list, err := repo.FindAutoForwarding(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, forwarding.ID, list[0].ID)
	})

	t.Run("list sorted by name", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.OrderBy = "name"
		f.OrderDir = "asc"
		list, total, err := repo.List(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, list, 2)
		assert.Equal(t, "Local Cobbler", list[0].Name)
	})

	t.Run("products", func(t *testing.T) {
		linkedID := uuid.New()
		a, err := supplier.NewSupplierProduct(forwarding.ID, "SW-1", "Sandal", decimal.NewFromInt(100), 50)
		require.NoError(t, err)
		a.LinkProduct(linkedID)
		require.NoError(t, repo.SaveProduct(ctx, a))

		b, err := supplier.NewSupplierProduct(forwarding.ID, "SW-2", "Slide", decimal.NewFromInt(80), 0)
		require.NoError(t, err)
		require.NoError(t, repo.SaveProduct(ctx, b))

		dup, err := supplier.NewSupplierProduct(forwarding.ID, "SW-2", "Slide again", decimal.NewFromInt(80), 0)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.SaveProduct(ctx, dup), shared.ErrAlreadyExists)

		bySKU, err := repo.FindProductBySKU(ctx, forwarding.ID, "SW-1")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(130).Equal(bySKU.RetailPrice()))

		bySKU.ApplySync("Sandal v2", decimal.NewFromInt(110), 40, time.Now())
		require.NoError(t, repo.SaveProduct(ctx, bySKU))

		linked, err := repo.FindProductsByCatalogIDs(ctx, forwarding.ID, []uuid.UUID{linkedID})
		require.NoError(t, err)
		require.Len(t, linked, 1)
		assert.Equal(t, "Sandal v2", linked[0].Name)
		assert.NotNil(t, linked[0].LastSyncedAt)

		f := shared.DefaultFilter()
		f.Filters["linked"] = false
		unlinked, total, err := repo.FindProducts(ctx, forwarding.ID, f)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, unlinked, 1)
		assert.Equal(t, "SW-2", unlinked[0].SupplierSKU)
	})

	t.Run("delete removes offers", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, forwarding.ID))
		_, err := repo.FindProductBySKU(ctx, forwarding.ID, "SW-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, forwarding.ID), shared.ErrNotFound)
	})
}
