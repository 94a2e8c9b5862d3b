package models

import (
	"time"

	"gorm.io/gorm"
)

// Note is a post that can be reported. Deleting a note is a soft delete,
// DeletedByID keeps the principal who removed it.
type Note struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      string         `gorm:"size:36;index" json:"userId"`
	Text        *string        `gorm:"type:text" json:"text"`
	CW          *string        `gorm:"type:text" json:"cw"`
	DeletedByID *string        `gorm:"size:36" json:"-"`
	CreatedAt   time.Time      `json:"createdAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Body returns the text sent to the scoring backend, empty when the note has none.
func (n *Note) Body() string {
	if n == nil || n.Text == nil {
		return ""
	}
	return *n.Text
}
