package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/flipflop/backend/internal/application/health"
	"github.com/gin-gonic/gin"
)

// HealthChecker produces the dependency health report
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// SystemHandler serves liveness, health and build information
type SystemHandler struct {
	BaseHandler
	checker   HealthChecker
	name      string
	version   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(checker HealthChecker, name, version string) *SystemHandler {
	return &SystemHandler{
		checker:   checker,
		name:      name,
		version:   version,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"flipflop-backend"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// Health godoc
// @ID           getHealth
// @Summary      Service health
// @Description  The database is critical and turns the report unhealthy (503); other dependencies only degrade it.
// @Tags         system
// @Produce      json
// @Success      200 {object} health.Report
// @Failure      503 {object} health.Report
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns basic system information including version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} Envelope[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
