package persistence

import (
	"context"
	"testing"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T, name, sku string, price int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, sku, decimal.NewFromInt(price))
	require.NoError(t, err)
	return p
}

func TestGormProductRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	outbox := &recordingOutbox{}
	repo.SetOutboxEventSaver(outbox)
	categories := NewGormCategoryRepository(db)
	ctx := context.Background()

	shoes, err := catalog.NewCategory("Shoes", "")
	require.NoError(t, err)
	require.NoError(t, categories.Save(ctx, shoes))

	p := newTestProduct(t, "Flip Flop Classic", "ff-classic", 199)
	require.NoError(t, p.SetStock(12))
	p.SetCategories([]uuid.UUID{shoes.ID, shoes.ID})
	_, err = p.AddVariant("ff-classic-42", "Size 42", nil, 4, map[string]string{"size": "42"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, p))

	assert.Contains(t, outbox.types(), catalog.EventTypeProductCreated)
	assert.Empty(t, p.GetDomainEvents())

	t.Run("find by id with associations", func(t *testing.T) {
		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "FF-CLASSIC", found.SKU)
		assert.Equal(t, 12, found.StockQuantity)
		assert.Equal(t, []uuid.UUID{shoes.ID}, found.CategoryIDs)
		require.Len(t, found.Variants, 1)
		assert.Equal(t, "42", found.Variants[0].Options["size"])
	})

	t.Run("find by sku is case insensitive", func(t *testing.T) {
		found, err := repo.FindBySKU(ctx, " ff-classic ")
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)

		exists, err := repo.ExistsBySKU(ctx, "FF-CLASSIC")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("save replaces variants", func(t *testing.T) {
		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.NoError(t, found.RemoveVariant(found.Variants[0].ID))
		_, err = found.AddVariant("ff-classic-43", "Size 43", nil, 2, nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, found))

		reloaded, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, reloaded.Variants, 1)
		assert.Equal(t, "FF-CLASSIC-43", reloaded.Variants[0].SKU)
	})

	t.Run("duplicate sku", func(t *testing.T) {
		dup := newTestProduct(t, "Another", "FF-CLASSIC", 10)
		assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("delete emits event", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, p.ID))
		_, err := repo.FindByID(ctx, p.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Contains(t, outbox.types(), catalog.EventTypeProductDeleted)
		assert.ErrorIs(t, repo.Delete(ctx, p.ID), shared.ErrNotFound)
	})
}

func TestGormProductRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	categories := NewGormCategoryRepository(db)
	ctx := context.Background()

	summer, err := catalog.NewCategory("Summer", "summer")
	require.NoError(t, err)
	require.NoError(t, categories.Save(ctx, summer))

	cheap := newTestProduct(t, "Pool Slide", "SLIDE-1", 90)
	cheap.SetCategories([]uuid.UUID{summer.ID})
	mid := newTestProduct(t, "Beach Sandal", "SANDAL-1", 300)
	mid.SetCategories([]uuid.UUID{summer.ID})
	pricey := newTestProduct(t, "Leather Boot", "BOOT-1", 2500)
	pricey.Deactivate()
	for _, p := range []*catalog.Product{cheap, mid, pricey} {
		require.NoError(t, repo.Save(ctx, p))
	}

	tests := []struct {
		name  string
		query catalog.ProductQuery
		want  []string
		total int64
	}{
		{
			name:  "text search",
			query: catalog.ProductQuery{Search: "sandal"},
			want:  []string{"SANDAL-1"},
			total: 1,
		},
		{
			name:  "category filter sorted by price",
			query: catalog.ProductQuery{CategoryIDs: []uuid.UUID{summer.ID}, SortBy: "price", SortOrder: "asc"},
			want:  []string{"SLIDE-1", "SANDAL-1"},
			total: 2,
		},
		{
			name: "price range",
			query: catalog.ProductQuery{
				MinPrice: decimalPtr(100),
				MaxPrice: decimalPtr(3000),
				SortBy:   "price",
			},
			want:  []string{"BOOT-1", "SANDAL-1"},
			total: 2,
		},
		{
			name:  "active only",
			query: catalog.ProductQuery{IsActive: boolPtr(false)},
			want:  []string{"BOOT-1"},
			total: 1,
		},
		{
			name:  "paging keeps total",
			query: catalog.ProductQuery{Limit: 1, Page: 3, SortBy: "name", SortOrder: "asc"},
			want:  []string{"SLIDE-1"},
			total: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, total, err := repo.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			skus := make([]string, 0, len(products))
			for _, p := range products {
				skus = append(skus, p.SKU)
			}
			assert.Equal(t, tt.want, skus)
		})
	}

	t.Run("find by ids skips unknown", func(t *testing.T) {
		products, err := repo.FindByIDs(ctx, []uuid.UUID{cheap.ID, uuid.New()})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, cheap.ID, products[0].ID)
	})
}

func TestGormCategoryRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCategoryRepository(db)
	ctx := context.Background()

	parent, err := catalog.NewCategory("Footwear", "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, parent))

	child, err := catalog.NewCategory("Sandals", "")
	require.NoError(t, err)
	require.NoError(t, child.SetParent(&parent.ID))
	child.Deactivate()
	require.NoError(t, repo.Save(ctx, child))

	found, err := repo.FindBySlug(ctx, "footwear")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, found.ID)

	has, err := repo.HasChildren(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, has)

	all, err := repo.FindAll(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := repo.FindAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Footwear", active[0].Name)

	exists, err := repo.ExistsBySlug(ctx, "sandals")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, child.ID))
	assert.ErrorIs(t, repo.Delete(ctx, child.ID), shared.ErrNotFound)
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func boolPtr(v bool) *bool {
	return &v
}
