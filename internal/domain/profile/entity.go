package profile

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile rows are created out of band (see cmd/seed); the service only reads them.
type UserProfile struct {
	UserID    uuid.UUID `gorm:"column:user_id;primaryKey" json:"user_id"`
	UserName  string    `gorm:"column:user_name" json:"user_name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (UserProfile) TableName() string { return "user_profile" }
