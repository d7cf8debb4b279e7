package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/riadkhan60/chickenhut/internal/service/report"
)

// ReportService is the pipeline surface the HTTP layer drives.
type ReportService interface {
	Run(ctx context.Context) (report.RunResult, error)
	RenderOnly(ctx context.Context, opts report.RenderOptions) (report.RunResult, error)
}

// ScheduleStore reads and updates the persisted sending time.
type ScheduleStore interface {
	SendingTime(ctx context.Context) (string, error)
	UpdateSendingTime(ctx context.Context, hhmm string) error
}

// ReportHandler adapts the report service and schedule store to HTTP.
type ReportHandler struct {
	svc      ReportService
	schedule ScheduleStore
	logger   *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(svc ReportService, schedule ScheduleStore, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, schedule: schedule, logger: logger}
}

// GenerateReport triggers one pipeline run for interactive callers: 423
// when busy, 404 when there is nothing to report, 500 on failure.
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	res, err := h.svc.Run(c.Request.Context())
	switch {
	case errors.Is(err, report.ErrBusy):
		c.JSON(http.StatusLocked, gin.H{
			"success": false,
			"message": "A report is already being processed. Please try again later.",
		})
	case errors.Is(err, report.ErrNothingToReport):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "No unreported completed orders found",
		})
	case err != nil:
		h.logger.Error("report run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to generate and send report",
			"error":   err.Error(),
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"message":      "Orders report generated and emailed successfully",
			"orders_count": res.OrdersCount,
		})
	}
}

// RunReport is the same pipeline tuned for programmatic callers: an empty
// batch is a 200 success, not a 404.
func (h *ReportHandler) RunReport(c *gin.Context) {
	res, err := h.svc.Run(c.Request.Context())
	switch {
	case errors.Is(err, report.ErrBusy):
		c.JSON(http.StatusLocked, gin.H{
			"success": false,
			"message": "A report is already being processed. Please try again later.",
		})
	case errors.Is(err, report.ErrNothingToReport):
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "No unreported completed orders found",
		})
	case err != nil:
		h.logger.Error("report run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to generate and send report",
			"error":   err.Error(),
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"message":      "Orders report generated and emailed successfully",
			"orders_count": res.OrdersCount,
		})
	}
}

// TestPDF renders a document without sending or marking anything, for
// verification. Supports synthetic data, a row limit, inclusion of already
// reported orders, and streaming the file back as a download.
func (h *ReportHandler) TestPDF(c *gin.Context) {
	opts := report.RenderOptions{
		UseSampleData:   c.Query("useTestData") == "true",
		IncludeReported: c.Query("includeReported") == "true",
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "limit must be a positive integer"})
			return
		}
		opts.Limit = limit
	}

	res, err := h.svc.RenderOnly(c.Request.Context(), opts)
	switch {
	case errors.Is(err, report.ErrNothingToReport):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "No orders found for PDF generation",
		})
		return
	case err != nil:
		h.logger.Error("test pdf failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to generate test PDF",
			"error":   err.Error(),
		})
		return
	}

	if c.Query("download") == "true" {
		c.FileAttachment(res.DocumentPath, filepath.Base(res.DocumentPath))
		if err := os.Remove(res.DocumentPath); err != nil {
			h.logger.Warn("failed to delete test pdf after download", zap.String("path", res.DocumentPath), zap.Error(err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "PDF generated successfully",
		"pdfPath":     res.DocumentPath,
		"ordersCount": res.OrdersCount,
	})
}

// SendingTime returns the persisted trigger time, creating the default on
// first read.
func (h *ReportHandler) SendingTime(c *gin.Context) {
	t, err := h.schedule.SendingTime(c.Request.Context())
	if err != nil {
		h.logger.Error("failed reading sending time", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read sending time"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"time": t})
}

type sendingTimeRequest struct {
	Time string `json:"time" binding:"required"`
}

// UpdateSendingTime persists a new trigger time. The scheduler picks it up
// within one polling interval.
func (h *ReportHandler) UpdateSendingTime(c *gin.Context) {
	var req sendingTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time"})
		return
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time"})
		return
	}

	if err := h.schedule.UpdateSendingTime(c.Request.Context(), req.Time); err != nil {
		h.logger.Error("failed updating sending time", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update sending time"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"time": req.Time})
}
