package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/submission-service/internal/export"
	"github.com/SAP-F-2025/submission-service/internal/models"
	"github.com/SAP-F-2025/submission-service/internal/repositories"
	"github.com/SAP-F-2025/submission-service/internal/services"
	"github.com/SAP-F-2025/submission-service/internal/utils"
	"github.com/SAP-F-2025/submission-service/internal/validator"
)

type SubmissionHandler struct {
	BaseHandler
	submissionService services.SubmissionService
	renderer          *export.ReportRenderer
}

func NewSubmissionHandler(submissionService services.SubmissionService, logger utils.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:       NewBaseHandler(logger),
		submissionService: submissionService,
		renderer:          export.NewReportRenderer(),
	}
}

// CreateSubmission creates a workflow entity, optionally with an attachment.
// Accepts multipart/form-data (fields + "attachment" file) or plain JSON.
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	h.LogRequest(c, "Creating submission", "actor", actor.Username)

	var req services.CreateSubmissionRequest
	var upload *services.AttachmentUpload

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		req = services.CreateSubmissionRequest{
			Owner: c.PostForm("owner"),
			Title: c.PostForm("title"),
		}
		if details := c.PostForm("details"); details != "" {
			req.Details = json.RawMessage(details)
		}
		if targetDate := c.PostForm("target_date"); targetDate != "" {
			req.TargetDate = &targetDate
		}
		if status := c.PostForm("status"); status != "" {
			req.Status = models.SubmissionStatus(status)
		}

		var closeUpload func()
		upload, closeUpload, err = h.openUpload(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
			return
		}
		if closeUpload != nil {
			defer closeUpload()
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid request body", Details: err.Error()})
			return
		}
	}

	response, err := h.submissionService.Create(c.Request.Context(), &req, upload, actor)
	if err != nil {
		h.handleServiceError(c, err, "Failed to create submission")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// UpdateSubmission updates descriptive fields, the status, and/or the
// attachment of an existing submission.
func (h *SubmissionHandler) UpdateSubmission(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating submission", "submission_id", id, "actor", actor.Username)

	var req services.UpdateSubmissionRequest
	var upload *services.AttachmentUpload

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if title, exists := c.GetPostForm("title"); exists {
			req.Title = &title
		}
		if details := c.PostForm("details"); details != "" {
			req.Details = json.RawMessage(details)
		}
		if targetDate, exists := c.GetPostForm("target_date"); exists && targetDate != "" {
			req.TargetDate = &targetDate
		}
		if status, exists := c.GetPostForm("status"); exists && status != "" {
			s := models.SubmissionStatus(status)
			req.Status = &s
		}

		var closeUpload func()
		upload, closeUpload, err = h.openUpload(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
			return
		}
		if closeUpload != nil {
			defer closeUpload()
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid request body", Details: err.Error()})
			return
		}
	}

	response, err := h.submissionService.Update(c.Request.Context(), id, &req, upload, actor)
	if err != nil {
		h.handleServiceError(c, err, "Failed to update submission")
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateSubmissionStatus changes only the workflow status.
func (h *SubmissionHandler) UpdateSubmissionStatus(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid request body", Details: err.Error()})
		return
	}

	h.LogRequest(c, "Updating submission status", "submission_id", id, "status", req.Status, "actor", actor.Username)

	response, err := h.submissionService.UpdateStatus(c.Request.Context(), id, &req, actor)
	if err != nil {
		h.handleServiceError(c, err, "Failed to update submission status")
		return
	}

	c.JSON(http.StatusOK, response)
}

// DeleteSubmission removes the record and its attachment file.
func (h *SubmissionHandler) DeleteSubmission(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting submission", "submission_id", id, "actor", actor.Username)

	if err := h.submissionService.Delete(c.Request.Context(), id, actor); err != nil {
		h.handleServiceError(c, err, "Failed to delete submission")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "submission deleted"})
}

// GetSubmission retrieves one submission by id.
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	response, err := h.submissionService.GetByID(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get submission")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListSubmissions lists submissions with filtering, restricted to the
// actor's own records for submitter-class callers.
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	filters, ok := h.parseSubmissionFilters(c)
	if !ok {
		return
	}

	response, err := h.submissionService.List(c.Request.Context(), filters, actor)
	if err != nil {
		h.handleServiceError(c, err, "Failed to list submissions")
		return
	}

	c.JSON(http.StatusOK, response)
}

// DownloadAttachment streams the stored attachment under its original name.
func (h *SubmissionHandler) DownloadAttachment(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	response, err := h.submissionService.GetByID(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get submission")
		return
	}

	if !response.HasAttachment() || response.AttachmentMissing {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "submission has no attachment on disk",
		})
		return
	}

	name := *response.AttachmentName
	if name == "" {
		name = fmt.Sprintf("attachment_%d", response.ID)
	}
	c.FileAttachment(*response.AttachmentPath, name)
}

// ExportSubmissions renders the filtered listing as csv (default) or xlsx.
func (h *SubmissionHandler) ExportSubmissions(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	filters, ok := h.parseSubmissionFilters(c)
	if !ok {
		return
	}
	// Exports are not paginated.
	filters.Limit = -1
	filters.Offset = 0

	response, err := h.submissionService.List(c.Request.Context(), filters, actor)
	if err != nil {
		h.handleServiceError(c, err, "Failed to export submissions")
		return
	}

	submissions := make([]*models.Submission, len(response.Submissions))
	for i, item := range response.Submissions {
		submissions[i] = item.Submission
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	timestamp := time.Now().Format("20060102_150405")

	switch format {
	case "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, submissions); err != nil {
			h.LogError(c, err, "Failed to render csv export")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to render export"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=submissions_%s.csv", timestamp))
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := h.renderer.Render(&buf, submissions); err != nil {
			h.LogError(c, err, "Failed to render xlsx export")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to render export"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=submissions_%s.xlsx", timestamp))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "format must be csv or xlsx",
		})
	}
}

// ===== HELPER METHODS =====

// openUpload extracts the optional multipart attachment. The returned closer
// must be deferred when an upload is present.
func (h *SubmissionHandler) openUpload(c *gin.Context) (*services.AttachmentUpload, func(), error) {
	fileHeader, err := c.FormFile("attachment")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("invalid attachment upload: %w", err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open attachment upload: %w", err)
	}

	upload := &services.AttachmentUpload{
		Source:       file,
		OriginalName: fileHeader.Filename,
	}
	return upload, func() { file.Close() }, nil
}

func (h *SubmissionHandler) parseSubmissionFilters(c *gin.Context) (repositories.SubmissionFilters, bool) {
	page := 1
	size := 50

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if sizeStr := c.Query("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 200 {
			size = s
		}
	}

	filters := repositories.SubmissionFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if q := c.Query("q"); q != "" {
		filters.FreeText = &q
	}
	if owner := c.Query("owner"); owner != "" {
		filters.Owner = &owner
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.SubmissionStatus(statusStr)
		if !models.ValidStatus(status) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "bad_request",
				Message: fmt.Sprintf("unknown status %q", statusStr),
			})
			return filters, false
		}
		filters.Status = &status
	}
	if from := c.Query("date_from"); from != "" {
		parsed, err := validator.ParseTargetDate(from)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "date_from must be YYYY-MM-DD"})
			return filters, false
		}
		filters.DateFrom = &parsed
	}
	if to := c.Query("date_to"); to != "" {
		parsed, err := validator.ParseTargetDate(to)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "date_to must be YYYY-MM-DD"})
			return filters, false
		}
		filters.DateTo = &parsed
	}

	return filters, true
}
