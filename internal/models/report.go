package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportStatus is the moderation state of an abuse report.
// The numeric values are stored in the database, so they must not be reordered.
type ReportStatus int

const (
	ReportOpen ReportStatus = iota
	ReportIgnored
	ReportActioned
)

func (s ReportStatus) String() string {
	switch s {
	case ReportOpen:
		return "open"
	case ReportIgnored:
		return "ignored"
	case ReportActioned:
		return "actioned"
	default:
		return "unknown"
	}
}

// TargetTypeNote is the only target type that is checked automatically.
// TargetType stays an open string so that other kinds can be added later.
const TargetTypeNote = "note"

// AbuseReport is a report filed by a user or moderator against a piece of content.
type AbuseReport struct {
	ID         string       `gorm:"primaryKey;size:36" json:"id"`
	ReporterID string       `gorm:"size:36;index" json:"reporterId"`
	TargetID   string       `gorm:"size:128;index" json:"targetId"`
	TargetType string       `gorm:"size:32" json:"targetType"`
	Comment    string       `gorm:"type:text" json:"comment"`
	Status     ReportStatus `gorm:"not null;default:0" json:"status"`
	Resolved   bool         `gorm:"not null;default:false;index" json:"resolved"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// BeforeCreate assigns a time-ordered UUID when the report has no ID yet.
func (r *AbuseReport) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		r.ID = id.String()
	}
	if r.TargetType == "" {
		r.TargetType = TargetTypeNote
	}
	return nil
}
