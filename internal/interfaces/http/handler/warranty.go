package handler

import (
	"github.com/gin-gonic/gin"

	warrantyapp "github.com/marv/gateway/internal/application/warranty"
)

// WarrantyHandler serves the public warranty lookup
type WarrantyHandler struct {
	BaseHandler
	service *warrantyapp.Service
}

// NewWarrantyHandler creates a new WarrantyHandler
func NewWarrantyHandler(service *warrantyapp.Service) *WarrantyHandler {
	return &WarrantyHandler{service: service}
}

// Lookup godoc
// @Summary      Check a device's warranty
// @Description  Look up a device by serial number with its repairs and warranty coverage.
// @Description  Warranty dates are also rendered in the Persian calendar.
// @Tags         warranty
// @Produce      json
// @Param        serial path string true "Serial number"
// @Success      200 {object} dto.Response{data=warrantyapp.Result}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /warranty/{serial} [get]
func (h *WarrantyHandler) Lookup(c *gin.Context) {
	result, err := h.service.Lookup(c.Request.Context(), c.Param("serial"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
