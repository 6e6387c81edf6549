package memory

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersUniqueTelegramID(t *testing.T) {
	ctx := context.Background()
	s := New()
	tg := int64(555)

	first := &models.PlatformUser{ID: uuid.New(), TelegramID: &tg, FirstName: "Ann"}
	require.NoError(t, s.Users().Create(ctx, first))
	assert.False(t, first.CreatedAt.IsZero())

	dup := &models.PlatformUser{ID: uuid.New(), TelegramID: &tg}
	assert.ErrorIs(t, s.Users().Create(ctx, dup), repository.ErrAlreadyExists)

	found, err := s.Users().FindByTelegramID(ctx, tg)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	users, _, _ := s.Counts()
	assert.Equal(t, 1, users)
}

func TestUpdateProfileMissing(t *testing.T) {
	s := New()
	err := s.Users().UpdateProfile(context.Background(), &models.PlatformUser{ID: uuid.New()})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCredentialsUniqueEmail(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Credentials().Create(ctx, &models.AuthCredential{ID: uuid.New(), Email: "a@b.c"}))
	err := s.Credentials().Create(ctx, &models.AuthCredential{ID: uuid.New(), Email: "a@b.c"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	_, err = s.Credentials().FindByEmail(ctx, "x@y.z")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRolesSeededAndSingleAssignment(t *testing.T) {
	ctx := context.Background()
	s := New()

	role, err := s.Roles().FindRole(ctx, models.BaselineRoleID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role.Name)

	uid := uuid.New()
	require.NoError(t, s.Roles().Assign(ctx, &models.UserRole{ID: uuid.New(), UserID: uid, RoleID: 1}))
	assert.ErrorIs(t, s.Roles().Assign(ctx, &models.UserRole{ID: uuid.New(), UserID: uid, RoleID: 2}), repository.ErrAlreadyExists)

	s.DeleteRole(models.BaselineRoleID)
	_, err = s.Roles().FindRole(ctx, models.BaselineRoleID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRefreshTokenRevoke(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.RefreshTokens().Create(ctx, &models.RefreshToken{ID: uuid.New(), TokenHash: "h"}))
	_, err := s.RefreshTokens().FindActive(ctx, "h")
	require.NoError(t, err)

	require.NoError(t, s.RefreshTokens().Revoke(ctx, "h"))
	_, err = s.RefreshTokens().FindActive(ctx, "h")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Users().FindByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
