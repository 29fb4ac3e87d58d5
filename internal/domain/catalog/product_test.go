package catalog

import (
	"testing"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("creates product with defaults", func(t *testing.T) {
		p, err := NewProduct("  Flip flops ", "ff-001", decimal.NewFromInt(299))
		require.NoError(t, err)

		assert.Equal(t, "Flip flops", p.Name)
		assert.Equal(t, "FF-001", p.SKU)
		assert.True(t, p.IsActive)
		assert.True(t, p.TrackInventory)
		assert.Equal(t, 1, p.Version)
		require.Len(t, p.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeProductCreated, p.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProduct("", "SKU", decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects empty sku", func(t *testing.T) {
		_, err := NewProduct("Name", " ", decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewProduct("Name", "SKU", decimal.NewFromInt(-1))
		assert.Equal(t, "INVALID_PRICE", shared.ErrorCode(err))
	})
}

func TestProduct_SetPrice(t *testing.T) {
	p, err := NewProduct("Sandals", "SND-1", decimal.NewFromInt(500))
	require.NoError(t, err)
	p.ClearDomainEvents()

	t.Run("compare-at below price is rejected", func(t *testing.T) {
		lower := decimal.NewFromInt(400)
		err := p.SetPrice(decimal.NewFromInt(500), &lower)
		assert.Equal(t, "INVALID_PRICE", shared.ErrorCode(err))
	})

	t.Run("price change raises event", func(t *testing.T) {
		compare := decimal.NewFromInt(700)
		require.NoError(t, p.SetPrice(decimal.NewFromInt(450), &compare))

		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		ev, ok := events[0].(*ProductPriceChangedEvent)
		require.True(t, ok)
		assert.True(t, ev.OldPrice.Equal(decimal.NewFromInt(500)))
		assert.True(t, ev.NewPrice.Equal(decimal.NewFromInt(450)))
	})

	t.Run("same price raises no event", func(t *testing.T) {
		p.ClearDomainEvents()
		require.NoError(t, p.SetPrice(decimal.NewFromInt(450), nil))
		assert.Empty(t, p.GetDomainEvents())
	})
}

func TestProduct_Variants(t *testing.T) {
	p, err := NewProduct("Sandals", "SND-1", decimal.NewFromInt(500))
	require.NoError(t, err)

	special := decimal.NewFromInt(650)
	big, err := p.AddVariant("snd-1-45", "Size 45", &special, 3, map[string]string{"size": "45"})
	require.NoError(t, err)
	small, err := p.AddVariant("SND-1-38", "Size 38", nil, 0, nil)
	require.NoError(t, err)

	t.Run("duplicate sku rejected", func(t *testing.T) {
		_, err := p.AddVariant("SND-1-45", "Again", nil, 0, nil)
		assert.Equal(t, "ALREADY_EXISTS", shared.ErrorCode(err))
	})

	t.Run("effective price falls back to product", func(t *testing.T) {
		price, err := p.PriceFor(&big.ID)
		require.NoError(t, err)
		assert.True(t, price.Equal(special))

		price, err = p.PriceFor(&small.ID)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(500)))
	})

	t.Run("availability uses variant stock", func(t *testing.T) {
		assert.NoError(t, p.CheckAvailable(&big.ID, 3))
		assert.ErrorIs(t, p.CheckAvailable(&small.ID, 1), shared.ErrInsufficientStock)
	})

	t.Run("untracked product ignores stock", func(t *testing.T) {
		p.SetTrackInventory(false)
		assert.NoError(t, p.CheckAvailable(&small.ID, 10))
		p.SetTrackInventory(true)
	})

	t.Run("unknown variant", func(t *testing.T) {
		id := uuid.New()
		_, err := p.PriceFor(&id)
		assert.Equal(t, "NOT_FOUND", shared.ErrorCode(err))
	})

	t.Run("inactive product is not available", func(t *testing.T) {
		p.Deactivate()
		assert.Equal(t, "PRODUCT_INACTIVE", shared.ErrorCode(p.CheckAvailable(nil, 1)))
	})
}

func TestProduct_Images(t *testing.T) {
	p, err := NewProduct("Sandals", "SND-1", decimal.NewFromInt(500))
	require.NoError(t, err)

	p.AddImage("/uploads/products/a.jpg", false)
	p.AddImage("/uploads/products/b.jpg", false)
	p.AddImage("/uploads/products/c.jpg", true)

	assert.Equal(t, "/uploads/products/c.jpg", p.MainImageURL)
	assert.Equal(t, []string{"/uploads/products/a.jpg", "/uploads/products/b.jpg"}, p.ImageURLs)

	assert.True(t, p.RemoveImage("/uploads/products/c.jpg"))
	assert.Equal(t, "/uploads/products/a.jpg", p.MainImageURL)
	assert.Equal(t, []string{"/uploads/products/b.jpg"}, p.ImageURLs)
	assert.False(t, p.RemoveImage("/uploads/products/missing.jpg"))
}

func TestProductQuery_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		in        ProductQuery
		wantLimit int
		wantSort  string
		wantOrder string
	}{
		{"defaults", ProductQuery{}, 20, "created_at", "desc"},
		{"clamps limit", ProductQuery{Limit: 500}, 100, "created_at", "desc"},
		{"known sort", ProductQuery{SortBy: "price", SortOrder: "ASC"}, 20, "price", "asc"},
		{"unknown sort", ProductQuery{SortBy: "id; drop table"}, 20, "created_at", "desc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.in
			q.Normalize()
			assert.Equal(t, 1, q.Page)
			assert.Equal(t, tt.wantLimit, q.Limit)
			assert.Equal(t, tt.wantSort, q.SortColumn())
			assert.Equal(t, tt.wantOrder, q.SortOrder)
		})
	}
}
