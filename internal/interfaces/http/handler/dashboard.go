package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/marv/gateway/internal/application/dashboard"
)

// DashboardHandler serves the dashboard summary
type DashboardHandler struct {
	BaseHandler
	service *dashboard.Service
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats godoc
// @Summary      Dashboard statistics
// @Description  Record counts, device status breakdown and the most recent devices and repairs.
// @Description  Collections the backend failed to return are listed in unavailable and counted as empty.
// @Tags         dashboard
// @Produce      json
// @Param        X-Session-ID header string true "Gateway session"
// @Success      200 {object} dto.Response{data=dashboard.Stats}
// @Router       /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	h.Success(c, h.service.Stats(c.Request.Context()))
}
