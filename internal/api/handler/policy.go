package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"modcheck/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// GetPolicy returns the moderation policy with the scoring token masked.
func (h *Handler) GetPolicy(c *gin.Context) {
	p, err := h.Store.GetModerationPolicy(c.Request.Context())
	if err != nil {
		slog.Error("failed to load moderation policy", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load policy"})
		return
	}
	c.JSON(http.StatusOK, p.Masked())
}

// UpdatePolicy applies a partial update to the moderation policy.
func (h *Handler) UpdatePolicy(c *gin.Context) {
	var req models.PolicyUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	p, err := h.Store.GetModerationPolicy(ctx)
	if err != nil {
		slog.Error("failed to load moderation policy", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load policy"})
		return
	}

	req.Apply(p)
	if err := h.Store.SaveModerationPolicy(ctx, p); err != nil {
		if errors.Is(err, models.ErrThresholdOutOfRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("failed to save moderation policy", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save policy"})
		return
	}

	slog.Info("moderation policy updated",
		"moderator_id", c.GetString(ctxUserID),
		"enabled", p.AutoCheckEnabled,
		"action", p.ActionOnFlag,
		"threshold", p.ScoreThreshold,
	)
	c.JSON(http.StatusOK, p.Masked())
}
