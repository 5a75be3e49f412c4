package handler

import (
	"github.com/gin-gonic/gin"

	bulkapp "github.com/marv/gateway/internal/application/bulk"
	"github.com/marv/gateway/internal/interfaces/http/middleware"
)

// SerialHandler previews serial range expansion
type SerialHandler struct {
	BaseHandler
	service *bulkapp.Service
}

// NewSerialHandler creates a new SerialHandler
func NewSerialHandler(service *bulkapp.Service) *SerialHandler {
	return &SerialHandler{service: service}
}

// ExpandSerialsRequest is a serial range as typed by an operator
// @Description Serial range to expand
type ExpandSerialsRequest struct {
	StartSerial string `json:"start_serial" binding:"required" example:"SN0008"`
	EndSerial   string `json:"end_serial" binding:"required" example:"SN0012"`
	Prefix      string `json:"prefix" example:""`
}

// ExpandSerialsResponse is the expanded range
// @Description Expanded serial range
type ExpandSerialsResponse struct {
	Prefix   string   `json:"prefix" example:"SN"`
	Start    int64    `json:"start" example:"8"`
	End      int64    `json:"end" example:"12"`
	PadWidth int      `json:"pad_width" example:"4"`
	Count    int      `json:"count" example:"5"`
	Serials  []string `json:"serials"`
}

// Expand godoc
// @Summary      Expand a serial range
// @Description  Expand a start/end serial pair into every serial in between, zero-padded to the widest bound
// @Tags         serials
// @Accept       json
// @Produce      json
// @Param        request body ExpandSerialsRequest true "Serial range"
// @Success      200 {object} dto.Response{data=ExpandSerialsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /serials/expand [post]
func (h *SerialHandler) Expand(c *gin.Context) {
	var req ExpandSerialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	r, serials, err := h.service.Expand(bulkapp.RangeInput{
		StartSerial: req.StartSerial,
		EndSerial:   req.EndSerial,
		Prefix:      req.Prefix,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ExpandSerialsResponse{
		Prefix:   r.Prefix,
		Start:    r.Start,
		End:      r.End,
		PadWidth: r.PadWidth,
		Count:    len(serials),
		Serials:  serials,
	})
}
