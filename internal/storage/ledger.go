package storage

import (
	"context"
	"fmt"

	"modcheck/backend/internal/config"
	"modcheck/backend/internal/models"
)

// Page selects a window of the ledger. SinceID and UntilID are exclusive
// bounds on the time-sortable record id.
type Page struct {
	Limit   int
	SinceID string
	UntilID string
}

func (p Page) limit() int {
	switch {
	case p.Limit <= 0:
		return config.DefaultListLimit
	case p.Limit > config.MaxListLimit:
		return config.MaxListLimit
	default:
		return p.Limit
	}
}

// InsertAutoCheckRecord appends one entry to the ledger.
func (s *Service) InsertAutoCheckRecord(ctx context.Context, rec *models.AutoCheckRecord) error {
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("%w: insert auto-check record: %w", ErrPersistence, err)
	}
	return nil
}

// ListAutoCheckRecords returns ledger entries newest first. With only SinceID
// set the window starts right after it and is returned oldest first.
func (s *Service) ListAutoCheckRecords(ctx context.Context, page Page) ([]models.AutoCheckRecord, error) {
	q := s.DB.WithContext(ctx).Model(&models.AutoCheckRecord{})
	if page.SinceID != "" {
		q = q.Where("id > ?", page.SinceID)
	}
	if page.UntilID != "" {
		q = q.Where("id < ?", page.UntilID)
	}
	if page.SinceID != "" && page.UntilID == "" {
		q = q.Order("id asc")
	} else {
		q = q.Order("id desc")
	}

	var records []models.AutoCheckRecord
	if err := q.Limit(page.limit()).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// AllAutoCheckRecords returns the whole ledger oldest first, used by exports.
func (s *Service) AllAutoCheckRecords(ctx context.Context) ([]models.AutoCheckRecord, error) {
	var records []models.AutoCheckRecord
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
