package handler

import (
	"context"

	"github.com/flipflop/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserService is the profile surface used by UserHandler
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*identity.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req identity.UpdateProfileRequest) (*identity.UserResponse, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]identity.AddressResponse, error)
	AddAddress(ctx context.Context, userID uuid.UUID, req identity.AddressRequest) (*identity.AddressResponse, error)
	UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, req identity.AddressRequest) (*identity.AddressResponse, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error
	ListPaymentMethods(ctx context.Context, userID uuid.UUID) ([]identity.PaymentMethodResponse, error)
	AddPaymentMethod(ctx context.Context, userID uuid.UUID, req identity.PaymentMethodRequest) (*identity.PaymentMethodResponse, error)
	DeletePaymentMethod(ctx context.Context, userID, methodID uuid.UUID) error
}

// UserHandler serves /users/me and its sub-resources
type UserHandler struct {
	BaseHandler
	userService UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile godoc
// @ID           getMyProfile
// @Summary      Current user profile
// @Tags         users
// @Produce      json
// @Success      200 {object} Envelope[identity.UserResponse]
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateProfile godoc
// @ID           updateMyProfile
// @Summary      Update current user profile
// @Description  Only provided fields change; preferences are merged
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body identity.UpdateProfileRequest true "Profile fields"
// @Success      200 {object} Envelope[identity.UserResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req identity.UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ListAddresses godoc
// @ID           listMyAddresses
// @Summary      List delivery addresses
// @Tags         users
// @Produce      json
// @Success      200 {object} Envelope[[]identity.AddressResponse]
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me/addresses [get]
func (h *UserHandler) ListAddresses(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	addresses, err := h.userService.ListAddresses(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, addresses)
}

// AddAddress godoc
// @ID           addMyAddress
// @Summary      Add a delivery address
// @Description  The first address becomes the default
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body identity.AddressRequest true "Address"
// @Success      201 {object} Envelope[identity.AddressResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me/addresses [post]
func (h *UserHandler) AddAddress(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req identity.AddressRequest
	if !h.bindJSON(c, &req) {
		return
	}
	address, err := h.userService.AddAddress(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, address)
}

// UpdateAddress godoc
// @ID           updateMyAddress
// @Summary      Replace a delivery address
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "Address ID" format(uuid)
// @Param        request body identity.AddressRequest true "Address"
// @Success      200 {object} Envelope[identity.AddressResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me/addresses/{id} [put]
func (h *UserHandler) UpdateAddress(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	addressID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req identity.AddressRequest
	if !h.bindJSON(c, &req) {
		return
	}
	address, err := h.userService.UpdateAddress(c.Request.Context(), userID, addressID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, address)
}

// DeleteAddress godoc
// @ID           deleteMyAddress
// @Summary      Delete a delivery address
// @Tags         users
// @Param        id path string true "Address ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me/addresses/{id} [delete]
func (h *UserHandler) DeleteAddress(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	addressID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.userService.DeleteAddress(c.Request.Context(), userID, addressID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListPaymentMethods godoc
// @ID           listMyPaymentMethods
// @Summary      List saved payment methods
// @Tags         users
// @Produce      json
// @Success      200 {object} Envelope[[]identity.PaymentMethodResponse]
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me/payment-methods [get]
func (h *UserHandler) ListPaymentMethods(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	methods, err := h.userService.ListPaymentMethods(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, methods)
}

// AddPaymentMethod godoc
// @ID           addMyPaymentMethod
// @Summary      Save a payment method
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body identity.PaymentMethodRequest true "Payment method"
// @Success      201 {object} Envelope[identity.PaymentMethodResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me/payment-methods [post]
func (h *UserHandler) AddPaymentMethod(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req identity.PaymentMethodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	method, err := h.userService.AddPaymentMethod(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, method)
}

// DeletePaymentMethod godoc
// @ID           deleteMyPaymentMethod
// @Summary      Remove a saved payment method
// @Tags         users
// @Param        id path string true "Payment method ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me/payment-methods/{id} [delete]
func (h *UserHandler) DeletePaymentMethod(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	methodID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.userService.DeletePaymentMethod(c.Request.Context(), userID, methodID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
