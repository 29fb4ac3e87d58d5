package handler

import (
	"context"
	"strconv"

	"github.com/flipflop/backend/internal/application/catalog"
	"github.com/flipflop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CategoryService is the category surface used by CategoryHandler
type CategoryService interface {
	Create(ctx context.Context, req catalog.CreateCategoryRequest) (*catalog.CategoryResponse, error)
	GetByID(ctx context.Context, id uuid.UUID, isAdmin bool) (*catalog.CategoryResponse, error)
	List(ctx context.Context, activeOnly bool) ([]catalog.CategoryResponse, error)
	GetTree(ctx context.Context, activeOnly bool) ([]catalog.CategoryTreeNode, error)
	Update(ctx context.Context, id uuid.UUID, req catalog.UpdateCategoryRequest) (*catalog.CategoryResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryHandler serves product categories
type CategoryHandler struct {
	BaseHandler
	categoryService CategoryService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// activeOnly hides inactive categories from everyone but administrators who
// ask for them with ?all=true
func activeOnly(c *gin.Context) bool {
	all, _ := strconv.ParseBool(c.Query("all"))
	return !(all && middleware.IsAdmin(c))
}

// List godoc
// @ID           listCategories
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Param        all query bool false "Include inactive categories (admin only)"
// @Success      200 {object} Envelope[[]catalog.CategoryResponse]
// @Router       /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context(), activeOnly(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categories)
}

// Tree godoc
// @ID           getCategoryTree
// @Summary      Category tree
// @Tags         categories
// @Produce      json
// @Param        all query bool false "Include inactive categories (admin only)"
// @Success      200 {object} Envelope[[]catalog.CategoryTreeNode]
// @Router       /categories/tree [get]
func (h *CategoryHandler) Tree(c *gin.Context) {
	tree, err := h.categoryService.GetTree(c.Request.Context(), activeOnly(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// Get godoc
// @ID           getCategory
// @Summary      Get a category
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Success      200 {object} Envelope[catalog.CategoryResponse]
// @Failure      404 {object} ErrorEnvelope
// @Router       /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.GetByID(c.Request.Context(), id, middleware.IsAdmin(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Create godoc
// @ID           createCategory
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body catalog.CreateCategoryRequest true "Category"
// @Success      201 {object} Envelope[catalog.CategoryResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req catalog.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, category)
}

// Update godoc
// @ID           updateCategory
// @Summary      Update a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        request body catalog.UpdateCategoryRequest true "Changed fields"
// @Success      200 {object} Envelope[catalog.CategoryResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalog.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Delete godoc
// @ID           deleteCategory
// @Summary      Delete a category
// @Description  Categories with subcategories cannot be deleted
// @Tags         categories
// @Param        id path string true "Category ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
