package persistence

import (
	"context"
	"testing"

	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(t *testing.T, email string) *identity.User {
	t.Helper()
	u, err := identity.NewUser(email, "s3cret-pass", "Jana", "Novakova")
	require.NoError(t, err)
	return u
}

func TestGormUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	u := newTestUser(t, "Jana@Example.com")
	require.NoError(t, repo.Save(ctx, u))

	t.Run("email lookup is normalized", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "  JANA@example.COM ")
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.ID)
		assert.True(t, found.VerifyPassword("s3cret-pass"))

		exists, err := repo.ExistsByEmail(ctx, "jana@example.com")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := newTestUser(t, "jana@example.com")
		assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("delete cascades", func(t *testing.T) {
		addresses := NewGormAddressRepository(db)
		carts := NewGormCartRepository(db)
		orders := NewGormOrderRepository(db)

		addr, err := identity.NewDeliveryAddress(u.ID, identity.AddressFields{
			Street: "Vodickova 1", City: "Praha", PostalCode: "11000",
		}, true)
		require.NoError(t, err)
		require.NoError(t, addresses.Save(ctx, addr))

		item, err := sales.NewCartItem(u.ID, uuid.New(), nil, 1, decimal.NewFromInt(99))
		require.NoError(t, err)
		require.NoError(t, carts.Save(ctx, item))

		require.NoError(t, orders.Create(ctx, newTestOrder(t, "ORD-2026-000500", u.ID)))

		require.NoError(t, repo.Delete(ctx, u.ID))

		_, err = repo.FindByID(ctx, u.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		left, err := addresses.FindByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, left)
		lines, err := carts.FindByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, lines)
		_, total, err := orders.List(ctx, sales.OrderQuery{Filter: shared.DefaultFilter(), UserID: &u.ID})
		require.NoError(t, err)
		assert.Zero(t, total)

		assert.ErrorIs(t, repo.Delete(ctx, u.ID), shared.ErrNotFound)
	})
}

func TestGormAddressRepository_SingleDefault(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormAddressRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	fields := identity.AddressFields{Street: "Na Prikope 2", City: "Praha", PostalCode: "11000"}
	first, err := identity.NewDeliveryAddress(userID, fields, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	fields.Street = "Masarykova 5"
	fields.City = "Brno"
	second, err := identity.NewDeliveryAddress(userID, fields, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, second))

	list, err := repo.FindByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), shared.ErrNotFound)
}

func TestGormPaymentMethodRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPaymentMethodRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	card, err := identity.NewPaymentMethod(userID, identity.PaymentMethodCard, "stripe", map[string]any{"last4": "4242"}, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, card))

	cod, err := identity.NewPaymentMethod(userID, identity.PaymentMethodCashOnDelivery, "", nil, true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cod))

	methods, err := repo.FindByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, cod.ID, methods[0].ID)

	found, err := repo.FindByID(ctx, card.ID)
	require.NoError(t, err)
	assert.False(t, found.IsDefault)
	assert.Equal(t, "4242", found.Metadata["last4"])
}
