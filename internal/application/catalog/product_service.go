package catalog

import (
	"context"
	"errors"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImageStore processes and stores product images
type ImageStore interface {
	Save(ctx context.Context, productID uuid.UUID, data []byte, declaredType string, main bool) (string, error)
	Delete(ctx context.Context, url string) error
	DeleteAll(ctx context.Context, urls []string)
}

// ProductService handles product-related business operations
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	images       ImageStore
	cache        cache.ProductCache
	logger       *zap.Logger
}

// NewProductService creates a new ProductService. productCache may be nil.
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	images ImageStore,
	productCache cache.ProductCache,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		images:       images,
		cache:        productCache,
		logger:       logger,
	}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	// Check if SKU already exists
	exists, err := s.productRepo.ExistsBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this SKU already exists")
	}
	if err := s.checkCategories(ctx, req.CategoryIDs); err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(req.Name, req.SKU, req.Price)
	if err != nil {
		return nil, err
	}
	if err := product.UpdateDetails(catalog.ProductDetails{
		Name:             req.Name,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Brand:            req.Brand,
		Manufacturer:     req.Manufacturer,
		Attributes:       req.Attributes,
		SEOTitle:         req.SEOTitle,
		SEODescription:   req.SEODescription,
		SEOKeywords:      req.SEOKeywords,
		VideoURLs:        req.VideoURLs,
	}); err != nil {
		return nil, err
	}
	if req.CompareAtPrice != nil {
		if err := product.SetPrice(req.Price, req.CompareAtPrice); err != nil {
			return nil, err
		}
	}
	if err := product.SetStock(req.StockQuantity); err != nil {
		return nil, err
	}
	if req.TrackInventory != nil {
		product.SetTrackInventory(*req.TrackInventory)
	}
	if req.IsActive != nil && !*req.IsActive {
		product.Deactivate()
	}
	product.SetCategories(req.CategoryIDs)

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("sku", product.SKU))
	resp := ToProductResponse(product)
	return &resp, nil
}

// Get returns a product. Inactive products are visible to admins only.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID, isAdmin bool) (*ProductResponse, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive && !isAdmin {
		return nil, shared.ErrNotFound
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List searches the catalog. Non-admin listings only show active products.
func (s *ProductService) List(ctx context.Context, q ProductListQuery, isAdmin bool) (*shared.Paginated[ProductResponse], error) {
	query, err := q.toDomain()
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		active := true
		query.IsActive = &active
	}
	products, total, err := s.productRepo.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	items := make([]ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, ToProductResponse(&products[i]))
	}
	page := shared.NewPaginated(items, total, query.Page, query.Limit)
	return &page, nil
}

// Update applies the provided fields to a product
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := catalog.ProductDetails{
		Name:             product.Name,
		Description:      product.Description,
		ShortDescription: product.ShortDescription,
		Brand:            product.Brand,
		Manufacturer:     product.Manufacturer,
		Attributes:       req.Attributes,
		SEOTitle:         product.SEOTitle,
		SEODescription:   product.SEODescription,
		SEOKeywords:      product.SEOKeywords,
		VideoURLs:        req.VideoURLs,
	}
	assign(&details.Name, req.Name)
	assign(&details.Description, req.Description)
	assign(&details.ShortDescription, req.ShortDescription)
	assign(&details.Brand, req.Brand)
	assign(&details.Manufacturer, req.Manufacturer)
	assign(&details.SEOTitle, req.SEOTitle)
	assign(&details.SEODescription, req.SEODescription)
	assign(&details.SEOKeywords, req.SEOKeywords)
	if err := product.UpdateDetails(details); err != nil {
		return nil, err
	}

	if req.Price != nil || req.CompareAtPrice != nil {
		price := product.Price
		if req.Price != nil {
			price = *req.Price
		}
		compareAt := product.CompareAtPrice
		if req.CompareAtPrice != nil {
			compareAt = req.CompareAtPrice
			if compareAt.IsZero() {
				compareAt = nil
			}
		}
		if err := product.SetPrice(price, compareAt); err != nil {
			return nil, err
		}
	}
	if req.StockQuantity != nil {
		if err := product.SetStock(*req.StockQuantity); err != nil {
			return nil, err
		}
	}
	if req.TrackInventory != nil {
		product.SetTrackInventory(*req.TrackInventory)
	}
	if req.IsActive != nil {
		if *req.IsActive {
			product.Activate()
		} else {
			product.Deactivate()
		}
	}
	if req.CategoryIDs != nil {
		if err := s.checkCategories(ctx, req.CategoryIDs); err != nil {
			return nil, err
		}
		product.SetCategories(req.CategoryIDs)
	}

	return s.save(ctx, product)
}

// Delete removes a product together with its stored images
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	urls := append([]string(nil), product.ImageURLs...)
	if product.MainImageURL != "" {
		urls = append(urls, product.MainImageURL)
	}
	if s.images != nil && len(urls) > 0 {
		s.images.DeleteAll(ctx, urls)
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// AddVariant adds a variant to a product
func (s *ProductService) AddVariant(ctx context.Context, productID uuid.UUID, req VariantRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	v, err := product.AddVariant(req.SKU, req.Name, req.Price, req.StockQuantity, req.Options)
	if err != nil {
		return nil, err
	}
	if req.IsActive != nil && !*req.IsActive {
		if err := v.Update(v.Name, v.Price, v.StockQuantity, false); err != nil {
			return nil, err
		}
	}
	return s.save(ctx, product)
}

// UpdateVariant changes a variant of a product
func (s *ProductService) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, req UpdateVariantRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	v, err := product.Variant(variantID)
	if err != nil {
		return nil, err
	}
	active := v.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}
	if err := v.Update(req.Name, req.Price, req.StockQuantity, active); err != nil {
		return nil, err
	}
	return s.save(ctx, product)
}

// RemoveVariant deletes a variant of a product
func (s *ProductService) RemoveVariant(ctx context.Context, productID, variantID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := product.RemoveVariant(variantID); err != nil {
		return nil, err
	}
	return s.save(ctx, product)
}

// UploadImage stores an image and attaches it to the product. A stored file
// whose product save fails is removed again.
func (s *ProductService) UploadImage(ctx context.Context, productID uuid.UUID, data []byte, contentType string, main bool) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	url, err := s.images.Save(ctx, productID, data, contentType, main)
	if err != nil {
		return nil, err
	}
	product.AddImage(url, main)
	resp, err := s.save(ctx, product)
	if err != nil {
		if derr := s.images.Delete(context.WithoutCancel(ctx), url); derr != nil {
			s.logger.Warn("Failed to remove orphaned image", zap.String("url", url), zap.Error(derr))
		}
		return nil, err
	}
	return resp, nil
}

// DeleteImage detaches an image from the product and deletes the file
func (s *ProductService) DeleteImage(ctx context.Context, productID uuid.UUID, url string) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.RemoveImage(url) {
		return nil, shared.NewDomainError("NOT_FOUND", "Image not found on product")
	}
	resp, err := s.save(ctx, product)
	if err != nil {
		return nil, err
	}
	if err := s.images.Delete(ctx, url); err != nil {
		s.logger.Warn("Failed to delete image file", zap.String("url", url), zap.Error(err))
	}
	return resp, nil
}

// Summaries returns the active products among ids, for the assistant prompt
func (s *ProductService) Summaries(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := products[:0]
	for _, p := range products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *ProductService) load(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, id); ok {
			return p, nil
		}
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, product)
	}
	return product, nil
}

func (s *ProductService) save(ctx context.Context, product *catalog.Product) (*ProductResponse, error) {
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx, product.ID)
	resp := ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

func (s *ProductService) checkCategories(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("INVALID_CATEGORY", "Category not found")
			}
			return err
		}
	}
	return nil
}

func assign(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
