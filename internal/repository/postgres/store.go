// Package postgres implements repository.Store on GORM.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repository.UserRepository                 { return &userRepo{db: s.db} }
func (s *Store) Credentials() repository.CredentialRepository     { return &credentialRepo{db: s.db} }
func (s *Store) Roles() repository.RoleRepository                 { return &roleRepo{db: s.db} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return &refreshTokenRepo{db: s.db} }

func (s *Store) Tx(ctx context.Context, fn func(repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// byUser scopes a query to rows owned by one identity.
func byUser(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// IsUniqueViolation reports whether err came from a unique index, either
// translated by GORM or raw from the driver.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, repository.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
