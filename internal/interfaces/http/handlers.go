package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/approvals/internal/application/service"
	"github.com/tallyhq/approvals/internal/domain/apperr"
	"github.com/tallyhq/approvals/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	reportService     service.ReportService
	transitionService service.TransitionService
	exportService     service.ExportService
	logger            Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	reportService service.ReportService,
	transitionService service.TransitionService,
	exportService service.ExportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		reportService:     reportService,
		transitionService: transitionService,
		exportService:     exportService,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ReportResponse represents a report in API responses
type ReportResponse struct {
	ID              int64   `json:"id"`
	Reference       string  `json:"reference"`
	EmployeeID      int64   `json:"employee_id"`
	Title           string  `json:"title"`
	PeriodLabel     string  `json:"period_label"`
	Status          string  `json:"status"`
	TotalAmount     string  `json:"total_amount"`
	SubmittedAt     *string `json:"submitted_at,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	ApprovedBy      *int64  `json:"approved_by,omitempty"`
	RejectedAt      *string `json:"rejected_at,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID          int64  `json:"id"`
	ReportID    int64  `json:"report_id"`
	EntryDate   string `json:"entry_date"`
	Category    string `json:"category"`
	ProjectCode string `json:"project_code"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
}

// ReportDetailResponse bundles a report with its line items
type ReportDetailResponse struct {
	Report ReportResponse     `json:"report"`
	Lines  []LineItemResponse `json:"lines"`
}

// CreateReportRequest represents the body for creating a report
type CreateReportRequest struct {
	Title       string `json:"title" binding:"required"`
	PeriodLabel string `json:"period_label" binding:"required"`
}

// LineRequest represents the body for creating or updating a line item
type LineRequest struct {
	EntryDate   string `json:"entry_date" binding:"required"`
	Category    string `json:"category" binding:"required"`
	ProjectCode string `json:"project_code" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
}

// FinalizeRequest represents the body for the finalize transition
type FinalizeRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// ReviewRequest represents the body for a line review decision
type ReviewRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// ListReportsRequest represents query parameters for listing reports
type ListReportsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateReport handles POST /api/v1/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "title and period_label are required",
		})
		return
	}

	report, err := h.reportService.CreateReport(c.Request.Context(), callerFrom(c), req.Title, req.PeriodLabel)
	if err != nil {
		h.fail(c, err, "Failed to create report")
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toReportResponse(report),
	})
}

// ListReports handles GET /api/v1/reports
func (h *Handlers) ListReports(c *gin.Context) {
	var req ListReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	reports, err := h.reportService.ListReports(c.Request.Context(), callerFrom(c), req.Limit, req.Offset)
	if err != nil {
		h.fail(c, err, "Failed to list reports")
		return
	}

	responses := make([]ReportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, toReportResponse(report))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    responses,
	})
}

// GetReport handles GET /api/v1/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	report, lines, err := h.reportService.GetReport(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		h.fail(c, err, "Failed to get report")
		return
	}

	detail := ReportDetailResponse{
		Report: toReportResponse(report),
		Lines:  make([]LineItemResponse, 0, len(lines)),
	}
	for _, line := range lines {
		detail.Lines = append(detail.Lines, toLineResponse(line))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    detail,
	})
}

// AddLine handles POST /api/v1/reports/:id/lines
func (h *Handlers) AddLine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	input, ok := h.bindLine(c)
	if !ok {
		return
	}

	line, err := h.reportService.AddLine(c.Request.Context(), id, callerFrom(c), input)
	if err != nil {
		h.fail(c, err, "Failed to add line")
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toLineResponse(line),
	})
}

// UpdateLine handles PUT /api/v1/reports/:id/lines/:lineID
func (h *Handlers) UpdateLine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.pathID(c, "lineID")
	if !ok {
		return
	}

	input, ok := h.bindLine(c)
	if !ok {
		return
	}

	line, err := h.reportService.UpdateLine(c.Request.Context(), id, lineID, callerFrom(c), input)
	if err != nil {
		h.fail(c, err, "Failed to update line")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toLineResponse(line),
	})
}

// DeleteLine handles DELETE /api/v1/reports/:id/lines/:lineID
func (h *Handlers) DeleteLine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.pathID(c, "lineID")
	if !ok {
		return
	}

	if err := h.reportService.DeleteLine(c.Request.Context(), id, lineID, callerFrom(c)); err != nil {
		h.fail(c, err, "Failed to delete line")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
	})
}

// Submit handles POST /api/v1/reports/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.transitionService.Submit(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		h.fail(c, err, "Submit failed")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toReportResponse(report),
	})
}

// Finalize handles POST /api/v1/reports/:id/finalize
func (h *Handlers) Finalize(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "action is required",
		})
		return
	}

	report, err := h.transitionService.Finalize(c.Request.Context(), id, callerFrom(c), req.Action, req.Reason)
	if err != nil {
		h.fail(c, err, "Finalize failed")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toReportResponse(report),
	})
}

// ReviewLine handles POST /api/v1/reports/:id/lines/:lineID/review
func (h *Handlers) ReviewLine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.pathID(c, "lineID")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "decision is required",
		})
		return
	}

	line, err := h.transitionService.ReviewLine(c.Request.Context(), id, lineID, callerFrom(c), req.Decision)
	if err != nil {
		h.fail(c, err, "Line review failed")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toLineResponse(line),
	})
}

// ExportReport handles GET /api/v1/reports/:id/export
func (h *Handlers) ExportReport(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	filename, content, err := h.exportService.ExportReport(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		h.fail(c, err, "Export failed")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

// pathID parses a numeric path parameter, writing a 400 response on failure.
func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid " + name + " parameter",
		})
		return 0, false
	}
	return id, true
}

// bindLine parses and validates a line item request body.
func (h *Handlers) bindLine(c *gin.Context) (service.NewLineInput, bool) {
	var req LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "entry_date, category, project_code and amount are required",
		})
		return service.NewLineInput{}, false
	}

	entryDate, err := time.Parse("2006-01-02", req.EntryDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "entry_date must be formatted as YYYY-MM-DD",
		})
		return service.NewLineInput{}, false
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "amount must be a decimal number",
		})
		return service.NewLineInput{}, false
	}

	return service.NewLineInput{
		EntryDate:   entryDate,
		Category:    req.Category,
		ProjectCode: req.ProjectCode,
		Amount:      amount,
	}, true
}

// fail translates an application error into the HTTP response envelope.
func (h *Handlers) fail(c *gin.Context, err error, logMsg string) {
	code := statusForKind(apperr.KindOf(err))
	if code >= http.StatusInternalServerError {
		h.logger.Error(logMsg, "error", err)
	}
	c.JSON(code, Response{
		Success: false,
		Error:   apperr.MessageOf(err),
	})
}

// statusForKind maps the application error taxonomy onto HTTP status codes.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// toReportResponse converts a domain report to the API response shape
func toReportResponse(report *entity.Report) ReportResponse {
	resp := ReportResponse{
		ID:              report.ID,
		Reference:       report.Reference,
		EmployeeID:      report.EmployeeID,
		Title:           report.Title,
		PeriodLabel:     report.PeriodLabel,
		Status:          report.Status.String(),
		TotalAmount:     report.TotalAmount.String(),
		ApprovedBy:      report.ApprovedBy,
		RejectionReason: report.RejectionReason,
		CreatedAt:       report.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       report.UpdatedAt.Format(time.RFC3339),
	}

	resp.SubmittedAt = formatTime(report.SubmittedAt)
	resp.ApprovedAt = formatTime(report.ApprovedAt)
	resp.RejectedAt = formatTime(report.RejectedAt)

	return resp
}

// toLineResponse converts a domain line item to the API response shape
func toLineResponse(line *entity.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:          line.ID,
		ReportID:    line.ReportID,
		EntryDate:   line.EntryDate.Format("2006-01-02"),
		Category:    line.Category,
		ProjectCode: line.ProjectCode,
		Amount:      line.Amount.String(),
		Status:      line.Status.String(),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}
