package handler

import (
	"context"

	"github.com/flipflop/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// CompanySettingsService reads and changes the seller details printed on invoices
type CompanySettingsService interface {
	Get(ctx context.Context) (*billing.CompanySettingsResponse, error)
	Update(ctx context.Context, req billing.UpdateCompanySettingsRequest) (*billing.CompanySettingsResponse, error)
}

// CompanySettingsHandler serves /admin/company-settings
type CompanySettingsHandler struct {
	BaseHandler
	settings CompanySettingsService
}

// NewCompanySettingsHandler creates a new CompanySettingsHandler
func NewCompanySettingsHandler(settings CompanySettingsService) *CompanySettingsHandler {
	return &CompanySettingsHandler{settings: settings}
}

// Get godoc
// @ID           getCompanySettings
// @Summary      Company settings
// @Description  Created with defaults on first read
// @Tags         admin
// @Produce      json
// @Success      200 {object} Envelope[billing.CompanySettingsResponse]
// @Security     BearerAuth
// @Router       /admin/company-settings [get]
func (h *CompanySettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Update godoc
// @ID           updateCompanySettings
// @Summary      Update company settings
// @Description  Applies to invoices issued afterwards; issued invoices keep their snapshot
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body billing.UpdateCompanySettingsRequest true "Changed fields"
// @Success      200 {object} Envelope[billing.CompanySettingsResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/company-settings [put]
func (h *CompanySettingsHandler) Update(c *gin.Context) {
	var req billing.UpdateCompanySettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	settings, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}
