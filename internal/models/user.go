package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account that can act on content. Only the fields the
// moderation pipeline needs are mapped here.
type User struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Username    string `gorm:"size:128;uniqueIndex" json:"username"`
	IsRoot      bool   `gorm:"not null;default:false" json:"isRoot"`
	IsModerator bool   `gorm:"not null;default:false" json:"isModerator"`
}

// BeforeCreate is a GORM hook that generates a UUID for the user
// when the ID has not been set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
