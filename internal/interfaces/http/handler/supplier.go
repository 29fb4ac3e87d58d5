package handler

import (
	"context"

	supplierapp "github.com/flipflop/backend/internal/application/supplier"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/domain/supplier"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SupplierService is the supplier surface used by SupplierHandler
type SupplierService interface {
	Create(ctx context.Context, req supplierapp.SupplierRequest) (*supplierapp.SupplierResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*supplierapp.SupplierResponse, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[supplierapp.SupplierResponse], error)
	Update(ctx context.Context, id uuid.UUID, req supplierapp.SupplierRequest) (*supplierapp.SupplierResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, supplierID uuid.UUID, filter shared.Filter) (*shared.Paginated[supplierapp.SupplierProductResponse], error)
	LinkProduct(ctx context.Context, supplierID uuid.UUID, sku string, req supplierapp.LinkProductRequest) (*supplierapp.SupplierProductResponse, error)
	Sync(ctx context.Context, supplierID uuid.UUID) (*supplier.SyncResult, error)
}

// SupplierHandler serves the admin supplier desk
type SupplierHandler struct {
	BaseHandler
	supplierService SupplierService
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(supplierService SupplierService) *SupplierHandler {
	return &SupplierHandler{supplierService: supplierService}
}

// PageQuery is the common page/search query of admin listings
type PageQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search" binding:"max=100"`
}

func (q PageQuery) filter() shared.Filter {
	f := shared.DefaultFilter()
	if q.Page > 0 {
		f.Page = q.Page
	}
	if q.PageSize > 0 {
		f.PageSize = q.PageSize
	}
	f.Search = q.Search
	return f
}

// List godoc
// @ID           listSuppliers
// @Summary      List suppliers
// @Tags         suppliers
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        search query string false "Name search"
// @Success      200 {object} Envelope[[]supplierapp.SupplierResponse]
// @Security     BearerAuth
// @Router       /admin/suppliers [get]
func (h *SupplierHandler) List(c *gin.Context) {
	var q PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.supplierService.List(c.Request.Context(), q.filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	successPage(&h.BaseHandler, c, page)
}

// Get godoc
// @ID           getSupplier
// @Summary      Get a supplier
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Success      200 {object} Envelope[supplierapp.SupplierResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/suppliers/{id} [get]
func (h *SupplierHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	s, err := h.supplierService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// Create godoc
// @ID           createSupplier
// @Summary      Create a supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        request body supplierapp.SupplierRequest true "Supplier"
// @Success      201 {object} Envelope[supplierapp.SupplierResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/suppliers [post]
func (h *SupplierHandler) Create(c *gin.Context) {
	var req supplierapp.SupplierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	s, err := h.supplierService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, s)
}

// Update godoc
// @ID           updateSupplier
// @Summary      Replace a supplier
// @Description  An empty api_secret keeps the stored secret
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Param        request body supplierapp.SupplierRequest true "Supplier"
// @Success      200 {object} Envelope[supplierapp.SupplierResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/suppliers/{id} [put]
func (h *SupplierHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req supplierapp.SupplierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	s, err := h.supplierService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// Delete godoc
// @ID           deleteSupplier
// @Summary      Delete a supplier
// @Tags         suppliers
// @Param        id path string true "Supplier ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/suppliers/{id} [delete]
func (h *SupplierHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.supplierService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Sync godoc
// @ID           syncSupplier
// @Summary      Pull the supplier catalogue
// @Description  Upserts supplier offers and reprices linked catalog products
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Success      200 {object} Envelope[supplier.SyncResult]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Failure      502 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/suppliers/{id}/sync [post]
func (h *SupplierHandler) Sync(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	result, err := h.supplierService.Sync(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListProducts godoc
// @ID           listSupplierProducts
// @Summary      List supplier offers
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        search query string false "SKU or name search"
// @Success      200 {object} Envelope[[]supplierapp.SupplierProductResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/suppliers/{id}/products [get]
func (h *SupplierHandler) ListProducts(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var q PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.supplierService.ListProducts(c.Request.Context(), id, q.filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	successPage(&h.BaseHandler, c, page)
}

// LinkProduct godoc
// @ID           linkSupplierProduct
// @Summary      Link a supplier offer to a catalog product
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        id path string true "Supplier ID" format(uuid)
// @Param        sku path string true "Supplier SKU"
// @Param        request body supplierapp.LinkProductRequest true "Link"
// @Success      200 {object} Envelope[supplierapp.SupplierProductResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/suppliers/{id}/products/{sku} [put]
func (h *SupplierHandler) LinkProduct(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req supplierapp.LinkProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	offer, err := h.supplierService.LinkProduct(c.Request.Context(), id, c.Param("sku"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, offer)
}
