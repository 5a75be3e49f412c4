package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	bulkapp "github.com/marv/gateway/internal/application/bulk"
	"github.com/marv/gateway/internal/domain/bulk"
	"github.com/marv/gateway/internal/domain/shared"
	"github.com/marv/gateway/internal/domain/warranty"
	"github.com/marv/gateway/internal/interfaces/http/dto"
	"github.com/marv/gateway/internal/interfaces/http/middleware"
)

// BulkHandler handles bulk device and test provisioning
type BulkHandler struct {
	BaseHandler
	service *bulkapp.Service
}

// NewBulkHandler creates a new BulkHandler
func NewBulkHandler(service *bulkapp.Service) *BulkHandler {
	return &BulkHandler{service: service}
}

// BulkDevicesRequest creates one device per serial in the range
// @Description Request body for bulk device creation
type BulkDevicesRequest struct {
	StartSerial   string `json:"start_serial" binding:"required" example:"SN0001"`
	EndSerial     string `json:"end_serial" binding:"required" example:"SN0100"`
	Prefix        string `json:"prefix" example:""`
	ProductID     *int64 `json:"product_id" binding:"omitempty,gt=0" example:"3"`
	AssembledBy   *int64 `json:"assembled_by" binding:"omitempty,gt=0"`
	TestedBy      *int64 `json:"tested_by" binding:"omitempty,gt=0"`
	AssemblyDate  string `json:"assembly_date" binding:"omitempty,ymd" example:"2024-03-20"`
	TestDate      string `json:"test_date" binding:"omitempty,ymd"`
	WarrantyStart string `json:"warranty_start" binding:"omitempty,ymd" example:"2024-03-20"`
	WarrantyEnd   string `json:"warranty_end" binding:"omitempty,ymd" example:"2025-03-20"`
	Status        string `json:"status" binding:"omitempty,oneof=active in_repair repaired scrapped" example:"active"`
	Note          string `json:"note" binding:"max=2000"`
}

// BulkTestsRequest records the same test against every device in the range
// @Description Request body for bulk test creation
type BulkTestsRequest struct {
	StartSerial string `json:"start_serial" binding:"required" example:"SN0001"`
	EndSerial   string `json:"end_serial" binding:"required" example:"SN0100"`
	Prefix      string `json:"prefix" example:""`
	TesterID    *int64 `json:"tester_id" binding:"omitempty,gt=0"`
	TestName    string `json:"test_name" binding:"required,max=200" example:"Burn-in"`
	TestDate    string `json:"test_date" binding:"omitempty,ymd" example:"2024-03-20"`
	TestResult  string `json:"test_result" binding:"omitempty,oneof=passed warning failed" example:"passed"`
	Notes       string `json:"notes" binding:"max=2000"`
}

// ListRunsQuery holds the filters of the run list
type ListRunsQuery struct {
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Kind        string `form:"kind" binding:"omitempty,oneof=devices tests"`
	Status      string `form:"status" binding:"omitempty,oneof=pending processing completed partial failed"`
	RequestedBy string `form:"requested_by"`
	From        string `form:"from" binding:"omitempty,ymd"`
	To          string `form:"to" binding:"omitempty,ymd"`
	OrderBy     string `form:"order_by" binding:"omitempty,oneof=created_at completed_at total failed status"`
	OrderDir    string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// BulkRunResponse is a bulk run as returned by the API
// @Description Bulk run
type BulkRunResponse struct {
	ID          uuid.UUID      `json:"id"`
	Kind        string         `json:"kind" example:"devices"`
	Status      string         `json:"status" example:"completed"`
	StartSerial string         `json:"start_serial"`
	EndSerial   string         `json:"end_serial"`
	Prefix      string         `json:"prefix,omitempty"`
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	SuccessRate float64        `json:"success_rate"`
	Failures    []bulk.Failure `json:"failures"`
	RequestedBy string         `json:"requested_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
}

func toBulkRunResponse(run *bulk.Run) BulkRunResponse {
	failures := run.Failures
	if failures == nil {
		failures = []bulk.Failure{}
	}
	return BulkRunResponse{
		ID:          run.ID,
		Kind:        string(run.Kind),
		Status:      string(run.Status),
		StartSerial: run.StartSerial,
		EndSerial:   run.EndSerial,
		Prefix:      run.Prefix,
		Total:       run.Total,
		Succeeded:   run.Succeeded,
		Failed:      run.FailedCount,
		SuccessRate: run.SuccessRate(),
		Failures:    failures,
		RequestedBy: run.RequestedBy,
		CreatedAt:   run.CreatedAt,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		DurationMS:  run.Duration().Milliseconds(),
	}
}

// CreateDevices godoc
// @Summary      Create devices for a serial range
// @Description  Expand the serial range and create one device per serial in a single backend call
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Param        X-Session-ID header string true "Gateway session"
// @Param        request body BulkDevicesRequest true "Device range"
// @Success      201 {object} dto.Response{data=BulkRunResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bulk/devices [post]
func (h *BulkHandler) CreateDevices(c *gin.Context) {
	var req BulkDevicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	run, err := h.service.CreateDevices(c.Request.Context(), bulkapp.DeviceRequest{
		RangeInput: bulkapp.RangeInput{
			StartSerial: req.StartSerial,
			EndSerial:   req.EndSerial,
			Prefix:      req.Prefix,
		},
		ProductID:     req.ProductID,
		AssembledBy:   req.AssembledBy,
		TestedBy:      req.TestedBy,
		AssemblyDate:  req.AssemblyDate,
		TestDate:      req.TestDate,
		WarrantyStart: req.WarrantyStart,
		WarrantyEnd:   req.WarrantyEnd,
		Status:        warranty.DeviceStatus(req.Status),
		Note:          req.Note,
		RequestedBy:   middleware.GetSessionID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toBulkRunResponse(run))
}

// CreateTests godoc
// @Summary      Record a test for a serial range
// @Description  Resolve every serial in the range to a device and record the same test against each.
// @Description  Serials fail independently; the run reports partial success.
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Param        X-Session-ID header string true "Gateway session"
// @Param        request body BulkTestsRequest true "Test range"
// @Success      201 {object} dto.Response{data=BulkRunResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bulk/tests [post]
func (h *BulkHandler) CreateTests(c *gin.Context) {
	var req BulkTestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	run, err := h.service.CreateTests(c.Request.Context(), bulkapp.TestRequest{
		RangeInput: bulkapp.RangeInput{
			StartSerial: req.StartSerial,
			EndSerial:   req.EndSerial,
			Prefix:      req.Prefix,
		},
		TesterID:    req.TesterID,
		TestName:    req.TestName,
		TestDate:    req.TestDate,
		Result:      warranty.TestResult(req.TestResult),
		Notes:       req.Notes,
		RequestedBy: middleware.GetSessionID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toBulkRunResponse(run))
}

// ListRuns godoc
// @Summary      List bulk runs
// @Description  List bulk runs newest first
// @Tags         bulk
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        kind query string false "devices or tests"
// @Param        status query string false "Run status"
// @Param        from query string false "Created on or after (YYYY-MM-DD)"
// @Param        to query string false "Created on or before (YYYY-MM-DD)"
// @Param        order_by query string false "created_at, completed_at, total, failed or status"
// @Param        order_dir query string false "asc or desc" default(desc)
// @Success      200 {object} dto.Response{data=[]BulkRunResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bulk/runs [get]
func (h *BulkHandler) ListRuns(c *gin.Context) {
	var q ListRunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	defaults := dto.DefaultListRequest()
	if q.Page == 0 {
		q.Page = defaults.Page
	}
	if q.PageSize == 0 {
		q.PageSize = defaults.PageSize
	}

	filter := bulkapp.ListRunsFilter{
		Kind:        q.Kind,
		Status:      q.Status,
		RequestedBy: q.RequestedBy,
		OrderBy:     q.OrderBy,
		OrderDir:    q.OrderDir,
	}
	if q.From != "" {
		from, _ := time.ParseInLocation(time.DateOnly, q.From, time.Local)
		filter.CreatedFrom = &from
	}
	if q.To != "" {
		to, _ := time.ParseInLocation(time.DateOnly, q.To, time.Local)
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.CreatedTo = &to
	}

	result, err := h.service.ListRuns(c.Request.Context(), filter, q.Page, q.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]BulkRunResponse, len(result.Items))
	for i, run := range result.Items {
		items[i] = toBulkRunResponse(run)
	}
	h.SuccessWithMeta(c, items, result.TotalCount, q.Page, q.PageSize)
}

// GetRun godoc
// @Summary      Get a bulk run
// @Description  Get a bulk run with its per-serial failures
// @Tags         bulk
// @Produce      json
// @Param        id path string true "Run ID" format(uuid)
// @Success      200 {object} dto.Response{data=BulkRunResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bulk/runs/{id} [get]
func (h *BulkHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "Bulk run not found")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, toBulkRunResponse(run))
}
