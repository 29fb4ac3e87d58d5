package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/flipflop/backend/internal/domain/catalog"
	domaininventory "github.com/flipflop/backend/internal/domain/inventory"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/inventory"
	"github.com/flipflop/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createStockedProduct(t *testing.T, repo *persistence.GormProductRepository, sku string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("Žabky "+sku, sku, decimal.NewFromInt(299))
	require.NoError(t, err)
	require.NoError(t, p.SetStock(stock))
	require.NoError(t, repo.Save(context.Background(), p))
	return p
}

func TestReservationStore_ConcurrentReservationsNeverOversell(t *testing.T) {
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	ctx := context.Background()

	products := persistence.NewGormProductRepository(tdb.DB)
	p := createStockedProduct(t, products, "FF-RACE", 5)
	store := inventory.NewPgReservationStore(tdb.Pool, zap.NewNop())

	const buyers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		reserved  int
		rejected  int
		unexpected []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Reserve(ctx, uuid.New(), []domaininventory.Line{{ProductID: p.ID, Quantity: 1}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				reserved++
			case errors.Is(err, shared.ErrInsufficientStock):
				rejected++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, unexpected)
	assert.Equal(t, 5, reserved)
	assert.Equal(t, buyers-5, rejected)

	reloaded, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.StockQuantity)
}

func TestReservationStore_Lifecycle(t *testing.T) {
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	ctx := context.Background()

	products := persistence.NewGormProductRepository(tdb.DB)
	p := createStockedProduct(t, products, "FF-LIFE", 10)
	store := inventory.NewPgReservationStore(tdb.Pool, zap.NewNop())
	stockOf := func() int {
		got, err := products.FindByID(ctx, p.ID)
		require.NoError(t, err)
		return got.StockQuantity
	}

	t.Run("repeated reserve holds stock once", func(t *testing.T) {
		orderID := uuid.New()
		lines := []domaininventory.Line{{ProductID: p.ID, Quantity: 3}}

		first, err := store.Reserve(ctx, orderID, lines)
		require.NoError(t, err)
		second, err := store.Reserve(ctx, orderID, lines)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 7, stockOf())

		require.NoError(t, store.Release(ctx, orderID))
		require.NoError(t, store.Release(ctx, orderID))
		assert.Equal(t, 10, stockOf())

		res, err := store.Find(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, domaininventory.ReservationReleased, res.Status)
	})

	t.Run("committed stock is not released", func(t *testing.T) {
		orderID := uuid.New()
		_, err := store.Reserve(ctx, orderID, []domaininventory.Line{{ProductID: p.ID, Quantity: 2}})
		require.NoError(t, err)
		require.NoError(t, store.Commit(ctx, orderID))

		require.NoError(t, store.Release(ctx, orderID))
		assert.Equal(t, 8, stockOf())

		res, err := store.Find(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, domaininventory.ReservationCommitted, res.Status)
	})

	t.Run("failed line rolls back the whole reservation", func(t *testing.T) {
		other := createStockedProduct(t, products, "FF-SHORT", 1)
		orderID := uuid.New()

		_, err := store.Reserve(ctx, orderID, []domaininventory.Line{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: other.ID, Quantity: 2},
		})
		require.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 8, stockOf())

		_, err = store.Find(ctx, orderID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
