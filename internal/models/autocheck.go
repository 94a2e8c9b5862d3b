package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AutoCheckDetail is the immutable snapshot of one automated decision.
type AutoCheckDetail struct {
	ReportID      string       `json:"id"`
	TargetID      string       `json:"targetId"`
	TargetType    string       `json:"targetType"`
	NoteText      string       `json:"noteText"`
	Label         string       `json:"label"`
	DerivedStatus ReportStatus `json:"status"`
	Resolved      bool         `json:"resolved"`
}

// AutoCheckRecord is an append-only ledger entry written once per check.
// IDs are UUIDv7 so that ordering by ID is ordering by creation time.
type AutoCheckRecord struct {
	ID        string                              `gorm:"primaryKey;size:36" json:"id"`
	Detail    datatypes.JSONType[AutoCheckDetail] `gorm:"not null" json:"detail"`
	Score     float64                             `gorm:"not null" json:"score"`
	Ignore    bool                                `gorm:"not null;default:false;index" json:"ignore"`
	CreatedAt time.Time                           `json:"createdAt"`
}

func (AutoCheckRecord) TableName() string { return "abuse_note_autocheck" }

func (r *AutoCheckRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		r.ID = id.String()
	}
	return nil
}
