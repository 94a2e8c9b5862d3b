package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"modcheck/backend/internal/config"
	"modcheck/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// ReportFilter narrows the moderator report listing.
type ReportFilter struct {
	// Unresolved keeps only reports nobody has resolved yet.
	Unresolved bool
	// HideAutoHandled drops reports the auto-check already ignored or actioned.
	HideAutoHandled bool
	Limit           int
}

// RefreshEvent is published on config.RefreshChannel after the cache is rebuilt.
type RefreshEvent struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// RefreshAutoIgnoreCache rebuilds the set of unresolved reports that the
// auto-check already handled, then announces the refresh. It never fails
// the caller; errors are logged.
func (s *Service) RefreshAutoIgnoreCache(ctx context.Context) {
	if err := s.refreshAutoIgnoreCache(ctx); err != nil {
		slog.Warn("auto-ignore cache refresh failed", "error", err)
	}
}

func (s *Service) refreshAutoIgnoreCache(ctx context.Context) error {
	if s.Redis == nil {
		return ErrNoRedis
	}
	ctx, cancel := context.WithTimeout(ctx, config.CacheRefreshTimeout)
	defer cancel()

	var ids []string
	if err := s.DB.WithContext(ctx).Model(&models.AbuseReport{}).
		Where("resolved = ?", false).
		Where("status IN ?", []models.ReportStatus{models.ReportIgnored, models.ReportActioned}).
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("load auto-handled reports: %w", err)
	}

	pipe := s.Redis.TxPipeline()
	pipe.Del(ctx, config.AutoIgnoreSetKey)
	if len(ids) > 0 {
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe.SAdd(ctx, config.AutoIgnoreSetKey, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild auto-ignore set: %w", err)
	}

	event, err := json.Marshal(RefreshEvent{Type: "refresh", At: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, config.RefreshChannel, event).Err()
}

// IsAutoHandled reports whether a report is in the auto-ignore set.
func (s *Service) IsAutoHandled(ctx context.Context, reportID string) (bool, error) {
	if s.Redis == nil {
		return false, ErrNoRedis
	}
	return s.Redis.SIsMember(ctx, config.AutoIgnoreSetKey, reportID).Result()
}

// SubscribeRefresh subscribes to cache refresh announcements.
func (s *Service) SubscribeRefresh(ctx context.Context) *redis.PubSub {
	return s.Redis.Subscribe(ctx, config.RefreshChannel)
}

// ListReports returns reports newest first. Hiding auto-handled reports
// falls back to the database status when Redis is unavailable.
func (s *Service) ListReports(ctx context.Context, filter ReportFilter) ([]models.AbuseReport, error) {
	q := s.DB.WithContext(ctx).Model(&models.AbuseReport{})
	if filter.Unresolved {
		q = q.Where("resolved = ?", false)
	}
	if filter.HideAutoHandled {
		hidden, err := s.autoHandledIDs(ctx)
		switch {
		case err == nil && len(hidden) > 0:
			q = q.Where("id NOT IN ?", hidden)
		case err != nil:
			slog.Warn("auto-ignore cache unavailable, filtering by status", "error", err)
			q = q.Where("status = ?", models.ReportOpen)
		}
	}

	limit := filter.Limit
	if limit <= 0 || limit > config.MaxListLimit {
		limit = config.MaxListLimit
	}

	var reports []models.AbuseReport
	if err := q.Order("created_at desc").Limit(limit).Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Service) autoHandledIDs(ctx context.Context) ([]string, error) {
	if s.Redis == nil {
		return nil, ErrNoRedis
	}
	ids, err := s.Redis.SMembers(ctx, config.AutoIgnoreSetKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return ids, err
}
