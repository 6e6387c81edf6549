package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser     = "user"
	RoleAdmin    = "admin"
	RoleMerchant = "merchant"

	// BaselineRoleID is the pre-seeded id of RoleUser.
	BaselineRoleID uint = 1
)

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"size:50;not null;uniqueIndex" json:"name"`
}

// DefaultRoles are seeded on migration.
func DefaultRoles() []Role {
	return []Role{
		{ID: BaselineRoleID, Name: RoleUser},
		{ID: 2, Name: RoleAdmin},
		{ID: 3, Name: RoleMerchant},
	}
}

// UserRole assigns exactly one role to an identity.
type UserRole struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	RoleID    uint      `gorm:"not null" json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}
