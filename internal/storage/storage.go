package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"modcheck/backend/internal/config"
	"modcheck/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDeletionFailed = errors.New("content deletion failed")
	ErrPersistence    = errors.New("persistence error")
	ErrNoRedis        = errors.New("redis is not configured")
)

type Storage interface {
	GetReport(ctx context.Context, id string) (*models.AbuseReport, error)
	CreateReport(ctx context.Context, report *models.AbuseReport) error
	ListReports(ctx context.Context, filter ReportFilter) ([]models.AbuseReport, error)
	UpdateReportStatus(ctx context.Context, reportID string, status models.ReportStatus) error

	FindNote(ctx context.Context, id string) (*models.Note, error)
	DeleteNote(ctx context.Context, actor models.Actor, note *models.Note) error

	FindRootUser(ctx context.Context) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)

	GetModerationPolicy(ctx context.Context) (*models.ModerationPolicy, error)
	SaveModerationPolicy(ctx context.Context, p *models.ModerationPolicy) error

	InsertAutoCheckRecord(ctx context.Context, rec *models.AutoCheckRecord) error
	ListAutoCheckRecords(ctx context.Context, page Page) ([]models.AutoCheckRecord, error)
	AllAutoCheckRecords(ctx context.Context) ([]models.AutoCheckRecord, error)

	RefreshAutoIgnoreCache(ctx context.Context)
	IsAutoHandled(ctx context.Context, reportID string) (bool, error)
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	// RootUserID pins the deleting account; empty means "first root user".
	RootUserID string
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates every table the pipeline owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Note{},
		&models.AbuseReport{},
		&models.AutoCheckRecord{},
		&models.ModerationPolicy{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// GetReport loads one abuse report.
func (s *Service) GetReport(ctx context.Context, id string) (*models.AbuseReport, error) {
	var report models.AbuseReport
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

func (s *Service) CreateReport(ctx context.Context, report *models.AbuseReport) error {
	if err := s.DB.WithContext(ctx).Create(report).Error; err != nil {
		slog.Error("failed to save abuse report", "target_id", report.TargetID, "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// UpdateReportStatus overwrites the status of a report. No concurrency check
// is done against moderators resolving the same report.
func (s *Service) UpdateReportStatus(ctx context.Context, reportID string, status models.ReportStatus) error {
	res := s.DB.WithContext(ctx).Model(&models.AbuseReport{}).
		Where("id = ?", reportID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("%w: update report %s: %w", ErrPersistence, reportID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: update report %s: %w", ErrPersistence, reportID, ErrNotFound)
	}
	return nil
}

// FindNote returns a note that has not been deleted.
func (s *Service) FindNote(ctx context.Context, id string) (*models.Note, error) {
	var note models.Note
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&note).Error; err != nil {
		return nil, notFound(err)
	}
	return &note, nil
}

// DeleteNote soft-deletes a note on behalf of actor.
func (s *Service) DeleteNote(ctx context.Context, actor models.Actor, note *models.Note) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(note).Update("deleted_by_id", actor.ID).Error; err != nil {
			return err
		}
		res := tx.Delete(note)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: note %s: %w", ErrDeletionFailed, note.ID, err)
	}
	return nil
}

// FindRootUser returns the account used as deleting principal.
func (s *Service) FindRootUser(ctx context.Context) (*models.User, error) {
	var user models.User
	q := s.DB.WithContext(ctx)
	if s.RootUserID != "" {
		q = q.Where("id = ?", s.RootUserID)
	} else {
		q = q.Where("is_root = ?", true).Order("id asc")
	}
	if err := q.First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// policyRowID is the primary key of the single policy row.
const policyRowID = 1

// GetModerationPolicy returns the stored policy, creating the default row on first use.
// Concurrent first calls race on the same primary key, so only one row is ever inserted.
func (s *Service) GetModerationPolicy(ctx context.Context) (*models.ModerationPolicy, error) {
	db := s.DB.WithContext(ctx)

	var p models.ModerationPolicy
	err := db.Where("id = ?", policyRowID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	defaults := models.ModerationPolicy{
		ID:             policyRowID,
		ActionOnFlag:   config.DefaultActionOnFlag,
		ScoreThreshold: config.DefaultScoreThreshold,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		return nil, err
	}
	if err := db.Where("id = ?", policyRowID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveModerationPolicy validates and stores the policy row.
func (s *Service) SaveModerationPolicy(ctx context.Context, p *models.ModerationPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == 0 {
		if _, err := s.GetModerationPolicy(ctx); err != nil {
			return err
		}
		p.ID = policyRowID
	}
	return s.DB.WithContext(ctx).Save(p).Error
}
