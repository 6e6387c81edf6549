// Package repository defines the persistence boundary for identities,
// credentials, role assignments and refresh tokens.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PlatformUser, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.PlatformUser, error)
	// Create returns ErrAlreadyExists when the id or telegram id is taken.
	Create(ctx context.Context, user *models.PlatformUser) error
	// UpdateProfile overwrites the display fields and UpdatedAt of user.ID.
	UpdateProfile(ctx context.Context, user *models.PlatformUser) error
}

type CredentialRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.AuthCredential, error)
	FindByEmail(ctx context.Context, email string) (*models.AuthCredential, error)
	// Create returns ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, cred *models.AuthCredential) error
	TouchSignIn(ctx context.Context, id uuid.UUID, at time.Time) error
}

type RoleRepository interface {
	FindAssignment(ctx context.Context, userID uuid.UUID) (*models.UserRole, error)
	// Assign returns ErrAlreadyExists when the user already has a role.
	Assign(ctx context.Context, assignment *models.UserRole) error
	FindRole(ctx context.Context, roleID uint) (*models.Role, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	// FindActive returns a non-revoked token by hash regardless of expiry.
	FindActive(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// Store groups the repositories behind one backend.
type Store interface {
	Users() UserRepository
	Credentials() CredentialRepository
	Roles() RoleRepository
	RefreshTokens() RefreshTokenRepository

	// Tx runs fn against a store bound to a single transaction.
	Tx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}
