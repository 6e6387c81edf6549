package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformUser is the durable profile record. Its ID is the identity id shared
// with AuthCredential and UserRole; it is always assigned by the caller.
type PlatformUser struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TelegramID   *int64    `gorm:"uniqueIndex" json:"telegram_id"`
	Email        string    `gorm:"size:255;index" json:"email"`
	FirstName    string    `gorm:"size:255" json:"first_name"`
	LastName     string    `gorm:"size:255" json:"last_name"`
	Username     string    `gorm:"size:255" json:"username"`
	LanguageCode string    `gorm:"size:35" json:"language_code"`
	PhotoURL     string    `gorm:"size:1024" json:"photo_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (PlatformUser) TableName() string {
	return "users"
}
