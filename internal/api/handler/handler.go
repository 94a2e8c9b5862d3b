package handler

import (
	"context"

	"modcheck/backend/internal/export"
	"modcheck/backend/internal/feed"
	"modcheck/backend/internal/models"
	"modcheck/backend/internal/queue"
	"modcheck/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Store is the part of storage the HTTP API reads and writes.
type Store interface {
	GetModerationPolicy(ctx context.Context) (*models.ModerationPolicy, error)
	SaveModerationPolicy(ctx context.Context, p *models.ModerationPolicy) error
	CreateReport(ctx context.Context, report *models.AbuseReport) error
	ListReports(ctx context.Context, filter storage.ReportFilter) ([]models.AbuseReport, error)
	ListAutoCheckRecords(ctx context.Context, page storage.Page) ([]models.AutoCheckRecord, error)
}

type Exporter interface {
	Export(ctx context.Context) (*export.Result, error)
}

// Handler holds the dependencies of the HTTP API.
type Handler struct {
	Store     Store
	Queue     queue.Publisher
	Exporter  Exporter // nil when object storage is not configured
	Hub       *feed.Hub
	JWTSecret []byte
}

func NewHandler(store Store, q queue.Publisher, exporter Exporter, hub *feed.Hub, jwtSecret string) *Handler {
	return &Handler{
		Store:     store,
		Queue:     q,
		Exporter:  exporter,
		Hub:       hub,
		JWTSecret: []byte(jwtSecret),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/abuse-reports", h.RequireUser(), h.CreateReport)

	admin := r.Group("/admin", h.RequireModerator())
	admin.GET("/moderation-policy", h.GetPolicy)
	admin.PUT("/moderation-policy", h.UpdatePolicy)

	admin.GET("/abuse-reports", h.ListReports)
	admin.GET("/abuse-reports/auto-processed", h.ListAutoProcessed)
	admin.POST("/abuse-reports/auto-processed/export", h.ExportAutoProcessed)
	admin.GET("/abuse-reports/feed", h.ServeFeed)
}
