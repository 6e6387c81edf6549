package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProviderEmail    = "email"
	ProviderTelegram = "telegram"
)

// AuthCredential is the sign-in record. Email is the unique key; Telegram
// accounts use a synthesized pseudo-email.
type AuthCredential struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	SecretHash       string     `gorm:"not null" json:"-"`
	Provider         string     `gorm:"size:20;not null;default:'email'" json:"provider"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	LastSignInAt     *time.Time `json:"last_sign_in_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
