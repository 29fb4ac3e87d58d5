package handler

import (
	"context"

	"github.com/flipflop/backend/internal/application/identity"
	"github.com/flipflop/backend/internal/infrastructure/auth"
	"github.com/flipflop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthService is the account session surface used by AuthHandler
type AuthService interface {
	Register(ctx context.Context, req identity.RegisterRequest) (*identity.AuthResponse, error)
	Login(ctx context.Context, req identity.LoginRequest) (*identity.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.AuthResponse, error)
	Logout(ctx context.Context, access *auth.Claims, refreshToken string) error
	ChangePassword(ctx context.Context, claims *auth.Claims, req identity.ChangePasswordRequest) error
	DeleteAccount(ctx context.Context, claims *auth.Claims, req identity.DeleteAccountRequest) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register godoc
// @ID           registerUser
// @Summary      Register a customer account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.RegisterRequest true "Account details"
// @Success      201 {object} Envelope[identity.AuthResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Failure      429 {object} ErrorEnvelope
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req identity.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Login godoc
// @ID           loginUser
// @Summary      User login
// @Description  Authenticate with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.LoginRequest true "Login credentials"
// @Success      200 {object} Envelope[identity.AuthResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      401 {object} ErrorEnvelope
// @Failure      403 {object} ErrorEnvelope
// @Failure      429 {object} ErrorEnvelope
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req identity.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Refresh godoc
// @ID           refreshToken
// @Summary      Refresh access token
// @Description  Exchange a refresh token for a new pair; the old refresh token is revoked
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.RefreshRequest true "Refresh token"
// @Success      200 {object} Envelope[identity.AuthResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      401 {object} ErrorEnvelope
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req identity.RefreshRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Logout godoc
// @ID           logoutUser
// @Summary      User logout
// @Description  Revoke the current access token and, when given, the refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.LogoutRequest false "Refresh token to revoke"
// @Success      204
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req identity.LogoutRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ChangePassword godoc
// @ID           changePassword
// @Summary      Change password
// @Description  Every token issued before the change is revoked
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body identity.ChangePasswordRequest true "Old and new password"
// @Success      204
// @Failure      400 {object} ErrorEnvelope
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req identity.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), claims, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// DeleteAccount godoc
// @ID           deleteMyAccount
// @Summary      Delete the current account
// @Description  Removes addresses, payment methods, cart and orders and revokes every token
// @Tags         users
// @Accept       json
// @Param        request body identity.DeleteAccountRequest true "Current password"
// @Success      204
// @Failure      400 {object} ErrorEnvelope
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /users/me [delete]
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req identity.DeleteAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), claims, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
