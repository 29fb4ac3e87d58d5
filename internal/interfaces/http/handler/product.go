package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/flipflop/backend/internal/application/catalog"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultMaxImageBytes bounds a single product image upload
const DefaultMaxImageBytes = 5 << 20

// ProductService is the catalogue surface used by ProductHandler
type ProductService interface {
	Create(ctx context.Context, req catalog.CreateProductRequest) (*catalog.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID, isAdmin bool) (*catalog.ProductResponse, error)
	List(ctx context.Context, q catalog.ProductListQuery, isAdmin bool) (*shared.Paginated[catalog.ProductResponse], error)
	Update(ctx context.Context, id uuid.UUID, req catalog.UpdateProductRequest) (*catalog.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, productID uuid.UUID, req catalog.VariantRequest) (*catalog.ProductResponse, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, req catalog.UpdateVariantRequest) (*catalog.ProductResponse, error)
	RemoveVariant(ctx context.Context, productID, variantID uuid.UUID) (*catalog.ProductResponse, error)
	UploadImage(ctx context.Context, productID uuid.UUID, data []byte, contentType string, main bool) (*catalog.ProductResponse, error)
	DeleteImage(ctx context.Context, productID uuid.UUID, url string) (*catalog.ProductResponse, error)
}

// ProductHandler serves the product catalogue
type ProductHandler struct {
	BaseHandler
	productService ProductService
	maxImageBytes  int64
}

// NewProductHandler creates a new product handler. maxImageBytes <= 0 uses
// DefaultMaxImageBytes.
func NewProductHandler(productService ProductService, maxImageBytes int64) *ProductHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &ProductHandler{productService: productService, maxImageBytes: maxImageBytes}
}

// List godoc
// @ID           listProducts
// @Summary      List products
// @Description  Inactive products are only listed for administrators
// @Tags         products
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(20) maximum(100)
// @Param        search query string false "Full-text search over name, description and SKU"
// @Param        categoryIds query []string false "Category filter" collectionFormat(multi)
// @Param        sortBy query string false "Sort field" Enums(name, price, createdAt, rating)
// @Param        sortOrder query string false "Sort direction" Enums(asc, desc)
// @Param        minPrice query string false "Minimum price"
// @Param        maxPrice query string false "Maximum price"
// @Param        brand query string false "Brand"
// @Success      200 {object} Envelope[[]catalog.ProductResponse]
// @Failure      400 {object} ErrorEnvelope
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var q catalog.ProductListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.productService.List(c.Request.Context(), q, middleware.IsAdmin(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	successPage(&h.BaseHandler, c, page)
}

// Get godoc
// @ID           getProduct
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} Envelope[catalog.ProductResponse]
// @Failure      404 {object} ErrorEnvelope
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Get(c.Request.Context(), id, middleware.IsAdmin(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Create godoc
// @ID           createProduct
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalog.CreateProductRequest true "Product"
// @Success      201 {object} Envelope[catalog.ProductResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalog.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Update godoc
// @ID           updateProduct
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.UpdateProductRequest true "Changed fields"
// @Success      200 {object} Envelope[catalog.ProductResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalog.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete godoc
// @ID           deleteProduct
// @Summary      Delete a product
// @Tags         products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddVariant godoc
// @ID           addProductVariant
// @Summary      Add a variant
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalog.VariantRequest true "Variant"
// @Success      201 {object} Envelope[catalog.ProductResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /products/{id}/variants [post]
func (h *ProductHandler) AddVariant(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalog.VariantRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.AddVariant(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// UpdateVariant godoc
// @ID           updateProductVariant
// @Summary      Update a variant
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        variantId path string true "Variant ID" format(uuid)
// @Param        request body catalog.UpdateVariantRequest true "Variant fields"
// @Success      200 {object} Envelope[catalog.ProductResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /products/{id}/variants/{variantId} [put]
func (h *ProductHandler) UpdateVariant(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	variantID, ok := h.uuidParam(c, "variantId")
	if !ok {
		return
	}
	var req catalog.UpdateVariantRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.UpdateVariant(c.Request.Context(), id, variantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// RemoveVariant godoc
// @ID           removeProductVariant
// @Summary      Remove a variant
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        variantId path string true "Variant ID" format(uuid)
// @Success      200 {object} Envelope[catalog.ProductResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /products/{id}/variants/{variantId} [delete]
func (h *ProductHandler) RemoveVariant(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	variantID, ok := h.uuidParam(c, "variantId")
	if !ok {
		return
	}
	product, err := h.productService.RemoveVariant(c.Request.Context(), id, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// UploadImage godoc
// @ID           uploadProductImage
// @Summary      Upload a product image
// @Description  JPEG, PNG or WebP. The image is resized and re-encoded before storage.
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        image formData file true "Image file"
// @Param        main formData bool false "Use as main image"
// @Success      201 {object} Envelope[catalog.ProductResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      413 {object} ErrorEnvelope
// @Failure      415 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /products/{id}/images [post]
func (h *ProductHandler) UploadImage(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		h.BadRequest(c, "Missing image file")
		return
	}
	if file.Size > h.maxImageBytes {
		h.HandleError(c, shared.NewDomainError("IMAGE_TOO_LARGE", "Image exceeds the maximum upload size"))
		return
	}
	f, err := file.Open()
	if err != nil {
		h.BadRequest(c, "Unreadable image file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		h.BadRequest(c, "Unreadable image file")
		return
	}
	if int64(len(data)) > h.maxImageBytes {
		h.HandleError(c, shared.NewDomainError("IMAGE_TOO_LARGE", "Image exceeds the maximum upload size"))
		return
	}
	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	main, _ := strconv.ParseBool(c.PostForm("main"))

	product, err := h.productService.UploadImage(c.Request.Context(), id, data, contentType, main)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// DeleteImage godoc
// @ID           deleteProductImage
// @Summary      Delete a product image
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        url query string true "Image URL as stored on the product"
// @Success      200 {object} Envelope[catalog.ProductResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /products/{id}/images [delete]
func (h *ProductHandler) DeleteImage(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	url := c.Query("url")
	if url == "" {
		h.BadRequest(c, "url query parameter is required")
		return
	}
	product, err := h.productService.DeleteImage(c.Request.Context(), id, url)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
