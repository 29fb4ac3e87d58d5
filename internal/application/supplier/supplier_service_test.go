package supplier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/domain/supplier"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSupplierRepository keeps suppliers and offers in memory
type fakeSupplierRepository struct {
	suppliers map[uuid.UUID]*supplier.Supplier
	offers    map[uuid.UUID]*supplier.SupplierProduct
}

func newFakeSupplierRepository() *fakeSupplierRepository {
	return &fakeSupplierRepository{
		suppliers: map[uuid.UUID]*supplier.Supplier{},
		offers:    map[uuid.UUID]*supplier.SupplierProduct{},
	}
}

func (r *fakeSupplierRepository) FindByID(_ context.Context, id uuid.UUID) (*supplier.Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *fakeSupplierRepository) List(_ context.Context, _ shared.Filter) ([]supplier.Supplier, int64, error) {
	out := make([]supplier.Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *fakeSupplierRepository) FindAutoForwarding(_ context.Context) ([]supplier.Supplier, error) {
	var out []supplier.Supplier
	for _, s := range r.suppliers {
		if s.IsActive && s.AutoForwardOrders {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSupplierRepository) Save(_ context.Context, s *supplier.Supplier) error {
	r.suppliers[s.ID] = s
	return nil
}

func (r *fakeSupplierRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.suppliers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.suppliers, id)
	return nil
}

func (r *fakeSupplierRepository) FindProducts(_ context.Context, supplierID uuid.UUID, _ shared.Filter) ([]supplier.SupplierProduct, int64, error) {
	var out []supplier.SupplierProduct
	for _, p := range r.offers {
		if p.SupplierID == supplierID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSupplierRepository) FindProductBySKU(_ context.Context, supplierID uuid.UUID, sku string) (*supplier.SupplierProduct, error) {
	for _, p := range r.offers {
		if p.SupplierID == supplierID && p.SupplierSKU == sku {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSupplierRepository) FindProductsByCatalogIDs(_ context.Context, supplierID uuid.UUID, productIDs []uuid.UUID) ([]supplier.SupplierProduct, error) {
	wanted := map[uuid.UUID]bool{}
	for _, id := range productIDs {
		wanted[id] = true
	}
	var out []supplier.SupplierProduct
	for _, p := range r.offers {
		if p.SupplierID == supplierID && p.ProductID != nil && wanted[*p.ProductID] {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeSupplierRepository) SaveProduct(_ context.Context, p *supplier.SupplierProduct) error {
	r.offers[p.ID] = p
	return nil
}

// fakeProductRepository serves catalog products by ID
type fakeProductRepository struct {
	catalog.ProductRepository
	products map[uuid.UUID]*catalog.Product
	saved    int
}

func (r *fakeProductRepository) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *fakeProductRepository) Save(_ context.Context, p *catalog.Product) error {
	r.products[p.ID] = p
	r.saved++
	return nil
}

// fakeAddressRepository serves delivery addresses by ID
type fakeAddressRepository struct {
	identity.AddressRepository
	addresses map[uuid.UUID]*identity.DeliveryAddress
}

func (r *fakeAddressRepository) FindByID(_ context.Context, id uuid.UUID) (*identity.DeliveryAddress, error) {
	a, ok := r.addresses[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

// MockCatalogClient is a mock implementation of CatalogClient
type MockCatalogClient struct {
	mock.Mock
}

func (m *MockCatalogClient) FetchCatalog(ctx context.Context, s *supplier.Supplier) ([]supplier.CatalogItem, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]supplier.CatalogItem), args.Error(1)
}

func (m *MockCatalogClient) ForwardOrder(ctx context.Context, s *supplier.Supplier, order supplier.ForwardedOrder) error {
	return m.Called(ctx, s, order).Error(0)
}

type recordingCache struct {
	invalidated []uuid.UUID
}

func (c *recordingCache) Get(context.Context, uuid.UUID) (*catalog.Product, bool) { return nil, false }
func (c *recordingCache) Set(context.Context, *catalog.Product)                   {}
func (c *recordingCache) Invalidate(_ context.Context, id uuid.UUID) {
	c.invalidated = append(c.invalidated, id)
}

type supplierFixture struct {
	svc       *SupplierService
	repo      *fakeSupplierRepository
	products  *fakeProductRepository
	addresses *fakeAddressRepository
	client    *MockCatalogClient
	cache     *recordingCache
}

func newSupplierFixture() *supplierFixture {
	f := &supplierFixture{
		repo:      newFakeSupplierRepository(),
		products:  &fakeProductRepository{products: map[uuid.UUID]*catalog.Product{}},
		addresses: &fakeAddressRepository{addresses: map[uuid.UUID]*identity.DeliveryAddress{}},
		client:    new(MockCatalogClient),
		cache:     &recordingCache{},
	}
	f.svc = NewSupplierService(f.repo, f.products, f.addresses, f.client, f.cache, zap.NewNop())
	return f
}

func (f *supplierFixture) addSupplier(t *testing.T, name string, autoForward bool) *supplier.Supplier {
	t.Helper()
	s, err := supplier.NewSupplier(supplier.Fields{
		Name: name, APIURL: "https://api.example.com", IsActive: true, AutoForwardOrders: autoForward,
	})
	require.NoError(t, err)
	f.repo.suppliers[s.ID] = s
	return s
}

func (f *supplierFixture) addProduct(t *testing.T, sku string, price int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("Product "+sku, sku, decimal.NewFromInt(price))
	require.NoError(t, err)
	f.products.products[p.ID] = p
	return p
}

func (f *supplierFixture) addOffer(t *testing.T, supplierID uuid.UUID, sku string, price int64, productID *uuid.UUID) *supplier.SupplierProduct {
	t.Helper()
	offer, err := supplier.NewSupplierProduct(supplierID, sku, "Offer "+sku, decimal.NewFromInt(price), 1)
	require.NoError(t, err)
	if productID != nil {
		offer.LinkProduct(*productID)
	}
	f.repo.offers[offer.ID] = offer
	return offer
}

func TestSupplierService_CreateHidesCredentials(t *testing.T) {
	f := newSupplierFixture()

	resp, err := f.svc.Create(context.Background(), SupplierRequest{
		Name: "Beach Co", APIURL: "https://api.beach.example", APIKey: "key", APISecret: "secret",
	})
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
	assert.True(t, resp.HasAPIKey)
	assert.True(t, resp.HasAPISecret)
	assert.Equal(t, "secret", f.repo.suppliers[resp.ID].APISecret)

	_, err = f.svc.Create(context.Background(), SupplierRequest{Name: "Bad", APIURL: "ftp://files"})
	assert.Equal(t, "INVALID_API_URL", shared.ErrorCode(err))
}

func TestSupplierService_UpdateKeepsSecret(t *testing.T) {
	f := newSupplierFixture()
	created, err := f.svc.Create(context.Background(), SupplierRequest{Name: "Beach Co", APISecret: "secret"})
	require.NoError(t, err)

	active := false
	resp, err := f.svc.Update(context.Background(), created.ID, SupplierRequest{Name: "Beach Company", IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, "Beach Company", resp.Name)
	assert.False(t, resp.IsActive)
	assert.Equal(t, "secret", f.repo.suppliers[created.ID].APISecret)
}

func TestSupplierService_Sync(t *testing.T) {
	ctx := context.Background()
	f := newSupplierFixture()
	syncedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return syncedAt }

	sup := f.addSupplier(t, "Beach Co", false)
	product := f.addProduct(t, "FLIP-1", 199)
	linked := f.addOffer(t, sup.ID, "A-1", 80, &product.ID)

	f.client.On("FetchCatalog", mock.Anything, sup).Return([]supplier.CatalogItem{
		{SKU: "A-1", Name: "Flip-flop", Price: decimal.NewFromInt(100), Stock: 7},
		{SKU: "B-2", Name: "Beach towel", Price: decimal.NewFromInt(50), Stock: 3},
		{SKU: "", Name: "Broken"},
	}, nil)

	result, err := f.svc.Sync(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, supplier.SyncResult{Fetched: 3, Created: 1, Updated: 1, ProductsUpdated: 1}, *result)

	assert.True(t, linked.SupplierPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, syncedAt, *linked.LastSyncedAt)
	assert.True(t, product.Price.Equal(decimal.NewFromInt(130)), "retail price applies the default margin")
	assert.Equal(t, 7, product.StockQuantity)
	assert.Equal(t, []uuid.UUID{product.ID}, f.cache.invalidated)

	created, err := f.repo.FindProductBySKU(ctx, sup.ID, "B-2")
	require.NoError(t, err)
	assert.Nil(t, created.ProductID)
	assert.Equal(t, 3, created.SupplierStock)
}

func TestSupplierService_SyncFailsWithoutAPI(t *testing.T) {
	f := newSupplierFixture()
	sup := f.addSupplier(t, "Beach Co", false)
	f.client.On("FetchCatalog", mock.Anything, sup).
		Return(nil, shared.NewDomainError("SUPPLIER_NO_API", "Supplier has no API configured"))

	_, err := f.svc.Sync(context.Background(), sup.ID)
	assert.Equal(t, "SUPPLIER_NO_API", shared.ErrorCode(err))
}

func TestSupplierService_LinkProduct(t *testing.T) {
	ctx := context.Background()
	f := newSupplierFixture()
	sup := f.addSupplier(t, "Beach Co", false)
	product := f.addProduct(t, "FLIP-1", 199)
	compareAt := decimal.NewFromInt(210)
	require.NoError(t, product.SetPrice(product.Price, &compareAt))
	f.addOffer(t, sup.ID, "A-1", 200, nil)

	margin := decimal.NewFromInt(10)
	resp, err := f.svc.LinkProduct(ctx, sup.ID, "A-1", LinkProductRequest{ProductID: product.ID, ProfitMargin: &margin})
	require.NoError(t, err)
	assert.Equal(t, product.ID, *resp.ProductID)
	assert.True(t, resp.RetailPrice.Equal(decimal.NewFromInt(220)))
	assert.True(t, product.Price.Equal(decimal.NewFromInt(220)))
	assert.Nil(t, product.CompareAtPrice, "compare-at below the new price is dropped")

	_, err = f.svc.LinkProduct(ctx, sup.ID, "A-1", LinkProductRequest{ProductID: uuid.New()})
	assert.Equal(t, "INVALID_PRODUCT", shared.ErrorCode(err))
}

func newForwardOrder(t *testing.T, addressID uuid.UUID, lines ...sales.OrderLine) *sales.Order {
	t.Helper()
	o, err := sales.NewOrder("ORD-2026-000042", uuid.New(), addressID, "payu", lines, sales.Pricing{}, "")
	require.NoError(t, err)
	return o
}

func TestSupplierService_ForwardOrder(t *testing.T) {
	ctx := context.Background()
	f := newSupplierFixture()
	forwarding := f.addSupplier(t, "Beach Co", true)
	idle := f.addSupplier(t, "Idle Co", true)
	f.addSupplier(t, "Manual Co", false)

	sandal := f.addProduct(t, "SANDAL", 250)
	towel := f.addProduct(t, "TOWEL", 300)
	f.addOffer(t, forwarding.ID, "BC-SANDAL", 150, &sandal.ID)

	address, err := identity.NewDeliveryAddress(uuid.New(), identity.AddressFields{
		FirstName: "Jana", LastName: "Nováková", Street: "Dlouhá 12", City: "Praha", PostalCode: "110 00",
	}, true)
	require.NoError(t, err)
	f.addresses.addresses[address.ID] = address

	order := newForwardOrder(t, address.ID,
		sales.OrderLine{ProductID: sandal.ID, ProductName: "Sandal", ProductSKU: "SANDAL", Quantity: 2, UnitPrice: decimal.NewFromInt(250)},
		sales.OrderLine{ProductID: towel.ID, ProductName: "Towel", ProductSKU: "TOWEL", Quantity: 1, UnitPrice: decimal.NewFromInt(300)},
	)

	f.client.On("ForwardOrder", mock.Anything, mock.MatchedBy(func(s *supplier.Supplier) bool {
		return s.ID == forwarding.ID
	}), mock.MatchedBy(func(fo supplier.ForwardedOrder) bool {
		return fo.OrderNumber == "ORD-2026-000042" &&
			len(fo.Lines) == 1 && fo.Lines[0] == supplier.ForwardedLine{SupplierSKU: "BC-SANDAL", Quantity: 2} &&
			fo.ShipTo["city"] == "Praha"
	})).Return(nil).Once()

	require.NoError(t, f.svc.ForwardOrder(ctx, order))
	f.client.AssertExpectations(t)
	f.client.AssertNotCalled(t, "ForwardOrder", mock.Anything, mock.MatchedBy(func(s *supplier.Supplier) bool {
		return s.ID == idle.ID
	}), mock.Anything)
}

func TestSupplierService_ForwardOrderJoinsErrors(t *testing.T) {
	ctx := context.Background()
	f := newSupplierFixture()
	sup := f.addSupplier(t, "Beach Co", true)
	sandal := f.addProduct(t, "SANDAL", 250)
	f.addOffer(t, sup.ID, "BC-SANDAL", 150, &sandal.ID)
	address, err := identity.NewDeliveryAddress(uuid.New(), identity.AddressFields{Street: "Dlouhá 12", City: "Praha", PostalCode: "110 00"}, true)
	require.NoError(t, err)
	f.addresses.addresses[address.ID] = address

	order := newForwardOrder(t, address.ID,
		sales.OrderLine{ProductID: sandal.ID, ProductName: "Sandal", ProductSKU: "SANDAL", Quantity: 1, UnitPrice: decimal.NewFromInt(250)})
	f.client.On("ForwardOrder", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("502 bad gateway"))

	err = f.svc.ForwardOrder(ctx, order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supplier Beach Co")
	assert.Contains(t, err.Error(), "502 bad gateway")
}

func TestSupplierService_ForwardOrderWithoutSuppliers(t *testing.T) {
	f := newSupplierFixture()
	order := newForwardOrder(t, uuid.New(),
		sales.OrderLine{ProductID: uuid.New(), ProductName: "Sandal", ProductSKU: "SANDAL", Quantity: 1, UnitPrice: decimal.NewFromInt(250)})

	require.NoError(t, f.svc.ForwardOrder(context.Background(), order))
	f.client.AssertNotCalled(t, "ForwardOrder", mock.Anything, mock.Anything, mock.Anything)
}
