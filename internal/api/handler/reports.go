package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"modcheck/backend/internal/config"
	"modcheck/backend/internal/models"
	"modcheck/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type createReportRequest struct {
	TargetID   string `json:"targetId" binding:"required"`
	TargetType string `json:"targetType"`
	Comment    string `json:"comment"`
}

// autoCheckItem is one ledger entry as returned to moderators.
type autoCheckItem struct {
	ID     string                 `json:"id"`
	Detail models.AutoCheckDetail `json:"detail"`
	Score  float64                `json:"score"`
	Ignore bool                   `json:"ignore"`
}

// CreateReport files a report and queues it for the auto-check when that is enabled.
func (h *Handler) CreateReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "targetId is required"})
		return
	}

	ctx := c.Request.Context()
	report := &models.AbuseReport{
		ReporterID: c.GetString(ctxUserID),
		TargetID:   req.TargetID,
		TargetType: req.TargetType,
		Comment:    req.Comment,
	}
	if err := h.Store.CreateReport(ctx, report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save report"})
		return
	}

	p, err := h.Store.GetModerationPolicy(ctx)
	if err != nil {
		slog.Error("failed to load moderation policy", "report_id", report.ID, "error", err)
	} else if p.AutoCheckEnabled && h.Queue != nil {
		t := models.Trigger{Model: models.AbuseCheckModel, ID: report.ID}
		if err := h.Queue.Publish(ctx, t); err != nil {
			// the report stays open for manual review
			slog.Error("failed to enqueue auto-check", "report_id", report.ID, "error", err)
		}
	}

	c.JSON(http.StatusCreated, report)
}

// ListReports returns reports for the moderation queue. With state=unresolved
// reports the auto-check already handled are hidden.
func (h *Handler) ListReports(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	unresolved := c.Query("state") == "unresolved"
	reports, err := h.Store.ListReports(c.Request.Context(), storage.ReportFilter{
		Unresolved:      unresolved,
		HideAutoHandled: unresolved,
		Limit:           limit,
	})
	if err != nil {
		slog.Error("failed to list reports", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListAutoProcessed pages through the auto-check ledger.
func (h *Handler) ListAutoProcessed(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	records, err := h.Store.ListAutoCheckRecords(c.Request.Context(), storage.Page{
		Limit:   limit,
		SinceID: c.Query("sinceId"),
		UntilID: c.Query("untilId"),
	})
	if err != nil {
		slog.Error("failed to list auto-check records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list records"})
		return
	}

	items := make([]autoCheckItem, 0, len(records))
	for _, rec := range records {
		items = append(items, autoCheckItem{
			ID:     rec.ID,
			Detail: rec.Detail.Data(),
			Score:  rec.Score,
			Ignore: rec.Ignore,
		})
	}
	c.JSON(http.StatusOK, items)
}

// ExportAutoProcessed writes the ledger to a spreadsheet in object storage.
func (h *Handler) ExportAutoProcessed(c *gin.Context) {
	if h.Exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export storage is not configured"})
		return
	}
	res, err := h.Exporter.Export(c.Request.Context())
	if err != nil {
		slog.Error("auto-check export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
		return
	}
	slog.Info("auto-check ledger exported", "key", res.Key, "rows", res.Rows, "moderator_id", c.GetString(ctxUserID))
	c.JSON(http.StatusOK, res)
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return config.DefaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > config.MaxListLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return 0, false
	}
	return limit, true
}
