package handler

import (
	"context"

	"github.com/flipflop/backend/internal/application/sales"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CartService is the cart surface used by CartHandler
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*sales.CartResponse, error)
	AddItem(ctx context.Context, userID uuid.UUID, req sales.CartItemRequest) (*sales.CartResponse, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req sales.UpdateCartItemRequest) (*sales.CartResponse, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*sales.CartResponse, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CartHandler serves the caller's shopping cart
type CartHandler struct {
	BaseHandler
	cartService CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// Get godoc
// @ID           getCart
// @Summary      Current cart
// @Description  Lines whose product became unavailable are flagged, not removed
// @Tags         cart
// @Produce      json
// @Success      200 {object} Envelope[sales.CartResponse]
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	cart, err := h.cartService.Get(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// AddItem godoc
// @ID           addCartItem
// @Summary      Add a product to the cart
// @Description  Adding a product already in the cart increases its quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body sales.CartItemRequest true "Cart line"
// @Success      201 {object} Envelope[sales.CartResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req sales.CartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cart, err := h.cartService.AddItem(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, cart)
}

// UpdateItem godoc
// @ID           updateCartItem
// @Summary      Change a cart line quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        id path string true "Cart item ID" format(uuid)
// @Param        request body sales.UpdateCartItemRequest true "Quantity"
// @Success      200 {object} Envelope[sales.CartResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /cart/items/{id} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req sales.UpdateCartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cart, err := h.cartService.UpdateItem(c.Request.Context(), userID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// RemoveItem godoc
// @ID           removeCartItem
// @Summary      Remove a cart line
// @Tags         cart
// @Produce      json
// @Param        id path string true "Cart item ID" format(uuid)
// @Success      200 {object} Envelope[sales.CartResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	cart, err := h.cartService.RemoveItem(c.Request.Context(), userID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// Clear godoc
// @ID           clearCart
// @Summary      Empty the cart
// @Tags         cart
// @Success      204
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	if err := h.cartService.Clear(c.Request.Context(), userID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
