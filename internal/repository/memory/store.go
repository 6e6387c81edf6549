// Package memory is an in-process repository.Store. It enforces the same
// unique keys as the Postgres schema and is used for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	users           map[uuid.UUID]models.PlatformUser
	usersByTelegram map[int64]uuid.UUID
	creds           map[uuid.UUID]models.AuthCredential
	credsByEmail    map[string]uuid.UUID
	roles           map[uint]models.Role
	assignments     map[uuid.UUID]models.UserRole
	tokens          map[string]models.RefreshToken
}

// New returns an empty store seeded with models.DefaultRoles.
func New() *Store {
	s := &Store{
		users:           make(map[uuid.UUID]models.PlatformUser),
		usersByTelegram: make(map[int64]uuid.UUID),
		creds:           make(map[uuid.UUID]models.AuthCredential),
		credsByEmail:    make(map[string]uuid.UUID),
		roles:           make(map[uint]models.Role),
		assignments:     make(map[uuid.UUID]models.UserRole),
		tokens:          make(map[string]models.RefreshToken),
	}
	for _, r := range models.DefaultRoles() {
		s.roles[r.ID] = r
	}
	return s
}

func (s *Store) Users() repository.UserRepository                 { return (*userRepo)(s) }
func (s *Store) Credentials() repository.CredentialRepository     { return (*credentialRepo)(s) }
func (s *Store) Roles() repository.RoleRepository                 { return (*roleRepo)(s) }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return (*refreshTokenRepo)(s) }

// Tx is not isolated: fn runs directly against the store.
func (s *Store) Tx(ctx context.Context, fn func(repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Counts returns the number of users, credentials and role assignments.
func (s *Store) Counts() (users, credentials, assignments int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), len(s.creds), len(s.assignments)
}

// PutRole adds or replaces a role row.
func (s *Store) PutRole(role models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.ID] = role
}

// DeleteRole removes a role row, leaving assignments that reference it dangling.
func (s *Store) DeleteRole(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, id)
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	if updated != nil && updated.IsZero() {
		*updated = now
	}
}
