package supplier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/domain/supplier"
	"github.com/flipflop/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogClient talks to supplier APIs
type CatalogClient interface {
	FetchCatalog(ctx context.Context, s *supplier.Supplier) ([]supplier.CatalogItem, error)
	ForwardOrder(ctx context.Context, s *supplier.Supplier, order supplier.ForwardedOrder) error
}

// SupplierService manages dropshipping suppliers, their catalogue sync and
// order forwarding
type SupplierService struct {
	repo      supplier.Repository
	products  catalog.ProductRepository
	addresses identity.AddressRepository
	client    CatalogClient
	cache     cache.ProductCache
	logger    *zap.Logger
	now       func() time.Time
}

// NewSupplierService creates a new SupplierService. productCache may be nil.
func NewSupplierService(
	repo supplier.Repository,
	products catalog.ProductRepository,
	addresses identity.AddressRepository,
	client CatalogClient,
	productCache cache.ProductCache,
	logger *zap.Logger,
) *SupplierService {
	return &SupplierService{
		repo:      repo,
		products:  products,
		addresses: addresses,
		client:    client,
		cache:     productCache,
		logger:    logger,
		now:       time.Now,
	}
}

// Create creates a supplier
func (s *SupplierService) Create(ctx context.Context, req SupplierRequest) (*SupplierResponse, error) {
	sup, err := supplier.NewSupplier(req.fields())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, sup); err != nil {
		return nil, err
	}
	s.logger.Info("Supplier created", zap.String("supplier_id", sup.ID.String()), zap.String("name", sup.Name))
	resp := toSupplierResponse(sup)
	return &resp, nil
}

// Get returns a supplier
func (s *SupplierService) Get(ctx context.Context, id uuid.UUID) (*SupplierResponse, error) {
	sup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toSupplierResponse(sup)
	return &resp, nil
}

// List returns a page of suppliers
func (s *SupplierService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[SupplierResponse], error) {
	suppliers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		items = append(items, toSupplierResponse(&suppliers[i]))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update replaces a supplier's attributes
func (s *SupplierService) Update(ctx context.Context, id uuid.UUID, req SupplierRequest) (*SupplierResponse, error) {
	sup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sup.Update(req.fields()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, sup); err != nil {
		return nil, err
	}
	resp := toSupplierResponse(sup)
	return &resp, nil
}

// Delete removes a supplier together with its catalogue offers
func (s *SupplierService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Supplier deleted", zap.String("supplier_id", id.String()))
	return nil
}

// ListProducts returns a page of a supplier's catalogue offers
func (s *SupplierService) ListProducts(ctx context.Context, supplierID uuid.UUID, filter shared.Filter) (*shared.Paginated[SupplierProductResponse], error) {
	if _, err := s.repo.FindByID(ctx, supplierID); err != nil {
		return nil, err
	}
	products, total, err := s.repo.FindProducts(ctx, supplierID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]SupplierProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toSupplierProductResponse(&products[i]))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// LinkProduct links a supplier offer to a catalog product and pushes the
// offer's retail price and stock to it
func (s *SupplierService) LinkProduct(ctx context.Context, supplierID uuid.UUID, sku string, req LinkProductRequest) (*SupplierProductResponse, error) {
	offer, err := s.repo.FindProductBySKU(ctx, supplierID, sku)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_PRODUCT", "Product not found")
		}
		return nil, err
	}
	if req.ProfitMargin != nil {
		if err := offer.SetMargin(*req.ProfitMargin); err != nil {
			return nil, err
		}
	}
	offer.LinkProduct(product.ID)
	if err := s.repo.SaveProduct(ctx, offer); err != nil {
		return nil, err
	}
	if err := s.pushToProduct(ctx, product, offer); err != nil {
		return nil, err
	}
	resp := toSupplierProductResponse(offer)
	return &resp, nil
}

// Sync fetches the supplier catalogue, upserts the offers and updates the
// price and stock of linked catalog products
func (s *SupplierService) Sync(ctx context.Context, supplierID uuid.UUID) (*supplier.SyncResult, error) {
	sup, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	items, err := s.client.FetchCatalog(ctx, sup)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &supplier.SyncResult{Fetched: len(items)}
	for _, item := range items {
		offer, err := s.repo.FindProductBySKU(ctx, sup.ID, item.SKU)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			offer, err = supplier.NewSupplierProduct(sup.ID, item.SKU, item.Name, item.Price, item.Stock)
			if err != nil {
				s.logger.Warn("Skipping invalid catalogue item",
					zap.String("supplier_id", sup.ID.String()), zap.String("sku", item.SKU), zap.Error(err))
				continue
			}
			result.Created++
		case err != nil:
			return result, err
		default:
			result.Updated++
		}
		offer.ApplySync(item.Name, item.Price, item.Stock, now)
		if err := s.repo.SaveProduct(ctx, offer); err != nil {
			return result, err
		}

		if offer.ProductID == nil {
			continue
		}
		product, err := s.products.FindByID(ctx, *offer.ProductID)
		if err != nil {
			s.logger.Warn("Linked product not found",
				zap.String("product_id", offer.ProductID.String()), zap.Error(err))
			continue
		}
		if err := s.pushToProduct(ctx, product, offer); err != nil {
			s.logger.Warn("Failed to update linked product",
				zap.String("product_id", product.ID.String()), zap.Error(err))
			continue
		}
		result.ProductsUpdated++
	}

	s.logger.Info("Supplier catalogue synced",
		zap.String("supplier_id", sup.ID.String()),
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("products_updated", result.ProductsUpdated),
	)
	return result, nil
}

// ForwardOrder sends the order lines that auto-forwarding suppliers can
// fulfil. Every supplier is attempted; the errors are joined.
func (s *SupplierService) ForwardOrder(ctx context.Context, o *sales.Order) error {
	suppliers, err := s.repo.FindAutoForwarding(ctx)
	if err != nil {
		return err
	}
	if len(suppliers) == 0 {
		return nil
	}

	productIDs := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	var shipTo map[string]any
	var errs []error
	for i := range suppliers {
		sup := &suppliers[i]
		offers, err := s.repo.FindProductsByCatalogIDs(ctx, sup.ID, productIDs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		lines := forwardedLines(o.Items, offers)
		if len(lines) == 0 {
			continue
		}
		if shipTo == nil {
			if shipTo, err = s.shippingAddress(ctx, o); err != nil {
				return err
			}
		}
		payload := supplier.ForwardedOrder{OrderNumber: o.OrderNumber, Lines: lines, ShipTo: shipTo}
		if err := s.client.ForwardOrder(ctx, sup, payload); err != nil {
			errs = append(errs, fmt.Errorf("supplier %s: %w", sup.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *SupplierService) shippingAddress(ctx context.Context, o *sales.Order) (map[string]any, error) {
	a, err := s.addresses.FindByID(ctx, o.DeliveryAddressID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":        a.FirstName + " " + a.LastName,
		"street":      a.Street,
		"city":        a.City,
		"postal_code": a.PostalCode,
		"country":     a.Country,
		"phone":       a.Phone,
	}, nil
}

// pushToProduct copies the offer's retail price and stock onto the product.
// A compare-at price below the new price is dropped.
func (s *SupplierService) pushToProduct(ctx context.Context, product *catalog.Product, offer *supplier.SupplierProduct) error {
	price := offer.RetailPrice()
	compareAt := product.CompareAtPrice
	if compareAt != nil && compareAt.LessThan(price) {
		compareAt = nil
	}
	if err := product.SetPrice(price, compareAt); err != nil {
		return err
	}
	if err := product.SetStock(offer.SupplierStock); err != nil {
		return err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, product.ID)
	}
	return nil
}

func forwardedLines(items []sales.OrderItem, offers []supplier.SupplierProduct) []supplier.ForwardedLine {
	skuByProduct := make(map[uuid.UUID]string, len(offers))
	for _, offer := range offers {
		if offer.ProductID != nil {
			skuByProduct[*offer.ProductID] = offer.SupplierSKU
		}
	}
	var lines []supplier.ForwardedLine
	for _, item := range items {
		if sku, ok := skuByProduct[item.ProductID]; ok {
			lines = append(lines, supplier.ForwardedLine{SupplierSKU: sku, Quantity: item.Quantity})
		}
	}
	return lines
}
