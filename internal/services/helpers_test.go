package services

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/config"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository/memory"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/telegram"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const testBotToken = "42:test-bot-token"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
		TelegramBotToken: testBotToken,
		InitDataMaxAge:   telegram.DefaultMaxAge,
		StoreTimeout:     time.Second,
		StorageDriver:    "memory",
	}
}

type testServices struct {
	telegram *TelegramAuthService
	auth     *AuthService
	roles    *RoleSynchronizer
}

func newTestServices(t *testing.T, store repository.Store) testServices {
	t.Helper()
	cfg := testConfig()
	roles := NewRoleSynchronizer(store.Roles())
	auth := NewAuthService(store, cfg, roles)
	auth.bcryptCost = bcrypt.MinCost
	tg := NewTelegramAuthService(store, cfg, roles, auth)
	tg.establisher.bcryptCost = bcrypt.MinCost
	return testServices{telegram: tg, auth: auth, roles: roles}
}

func signedInitData(id int64, firstName string, authDate time.Time) string {
	v := url.Values{}
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	v.Set("user", `{"id":`+strconv.FormatInt(id, 10)+`,"first_name":"`+firstName+`","language_code":"en"}`)
	return telegram.Sign(v, testBotToken)
}

// racyStore swaps in wrapped repositories over a memory store.
type racyStore struct {
	*memory.Store
	creds repository.CredentialRepository
	users repository.UserRepository
	roles repository.RoleRepository
}

func (s *racyStore) Credentials() repository.CredentialRepository {
	if s.creds != nil {
		return s.creds
	}
	return s.Store.Credentials()
}

func (s *racyStore) Users() repository.UserRepository {
	if s.users != nil {
		return s.users
	}
	return s.Store.Users()
}

func (s *racyStore) Roles() repository.RoleRepository {
	if s.roles != nil {
		return s.roles
	}
	return s.Store.Roles()
}

// barrier makes the first n lookups report not-found and wait for each
// other, forcing concurrent callers into the insert path together.
type barrier struct {
	n     int32
	calls atomic.Int32
	wg    sync.WaitGroup
}

func newBarrier(n int) *barrier {
	b := &barrier{n: int32(n)}
	b.wg.Add(n)
	return b
}

func (b *barrier) hit() bool {
	if b.calls.Add(1) > b.n {
		return false
	}
	b.wg.Done()
	b.wg.Wait()
	return true
}

type barrierCreds struct {
	repository.CredentialRepository
	b *barrier
}

func (r *barrierCreds) FindByEmail(ctx context.Context, email string) (*models.AuthCredential, error) {
	if r.b.hit() {
		return nil, repository.ErrNotFound
	}
	return r.CredentialRepository.FindByEmail(ctx, email)
}

type barrierUsers struct {
	repository.UserRepository
	b *barrier
}

func (r *barrierUsers) FindByTelegramID(ctx context.Context, telegramID int64) (*models.PlatformUser, error) {
	if r.b.hit() {
		return nil, repository.ErrNotFound
	}
	return r.UserRepository.FindByTelegramID(ctx, telegramID)
}

type failingCreds struct {
	repository.CredentialRepository
	findErr   error
	createErr error
	touchErr  error
	block     bool
}

func (r *failingCreds) FindByEmail(ctx context.Context, email string) (*models.AuthCredential, error) {
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.CredentialRepository.FindByEmail(ctx, email)
}

func (r *failingCreds) TouchSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	if r.touchErr != nil {
		return r.touchErr
	}
	return r.CredentialRepository.TouchSignIn(ctx, id, at)
}

func (r *failingCreds) Create(ctx context.Context, cred *models.AuthCredential) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.CredentialRepository.Create(ctx, cred)
}

type failingUsers struct {
	repository.UserRepository
	findErr   error
	updateErr error
}

func (r *failingUsers) FindByTelegramID(ctx context.Context, telegramID int64) (*models.PlatformUser, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.UserRepository.FindByTelegramID(ctx, telegramID)
}

func (r *failingUsers) UpdateProfile(ctx context.Context, user *models.PlatformUser) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.UserRepository.UpdateProfile(ctx, user)
}

type failingRoles struct {
	repository.RoleRepository
	findAssignmentErr error
	assignErr         error
	findRoleErr       error
	// assignDuplicateOf simulates a concurrent writer: Assign stores this
	// assignment instead and reports a duplicate.
	assignDuplicateOf *models.UserRole
}

func (r *failingRoles) FindAssignment(ctx context.Context, userID uuid.UUID) (*models.UserRole, error) {
	if r.findAssignmentErr != nil {
		return nil, r.findAssignmentErr
	}
	return r.RoleRepository.FindAssignment(ctx, userID)
}

func (r *failingRoles) Assign(ctx context.Context, a *models.UserRole) error {
	if r.assignDuplicateOf != nil {
		if err := r.RoleRepository.Assign(ctx, r.assignDuplicateOf); err != nil {
			return err
		}
		return repository.ErrAlreadyExists
	}
	if r.assignErr != nil {
		return r.assignErr
	}
	return r.RoleRepository.Assign(ctx, a)
}

func (r *failingRoles) FindRole(ctx context.Context, roleID uint) (*models.Role, error) {
	if r.findRoleErr != nil {
		return nil, r.findRoleErr
	}
	return r.RoleRepository.FindRole(ctx, roleID)
}
