package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	store := memory.New()
	svc := newTestServices(t, store)
	ctx := context.Background()

	reg, err := svc.auth.Register(ctx, &dto.RegisterRequest{Email: " Ann@Example.com ", Password: "correct horse", FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", reg.User.Email)
	assert.Equal(t, int64(0), reg.User.ID)
	assert.Equal(t, models.RoleUser, reg.Role)

	users, creds, roles := store.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, creds)
	assert.Equal(t, 1, roles)

	_, err = svc.auth.Register(ctx, &dto.RegisterRequest{Email: "ann@example.com", Password: "another pass"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.auth.Login(ctx, &dto.LoginRequest{Email: "ANN@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.IdentityID, login.User.IdentityID)

	_, err = svc.auth.Login(ctx, &dto.LoginRequest{Email: "ann@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestServices(t, memory.New())

	_, err := svc.auth.Register(context.Background(), &dto.RegisterRequest{Email: "not-an-email", Password: "long enough"})
	assert.ErrorIs(t, err, ErrInvalidRegistration)

	_, err = svc.auth.Register(context.Background(), &dto.RegisterRequest{Email: "a@b.co", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidRegistration)
}

func TestTelegramCredentialCannotPasswordLogin(t *testing.T) {
	svc := newTestServices(t, memory.New())
	ctx := context.Background()

	_, err := svc.telegram.Validate(ctx, signedInitData(31, "Jo", time.Now()))
	require.NoError(t, err)

	_, err = svc.auth.Login(ctx, &dto.LoginRequest{Email: PseudoEmail(31), Password: ""})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotates(t *testing.T) {
	svc := newTestServices(t, memory.New())
	ctx := context.Background()

	reg, err := svc.auth.Register(ctx, &dto.RegisterRequest{Email: "k@example.com", Password: "password1"})
	require.NoError(t, err)

	next, err := svc.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, reg.RefreshToken, next.RefreshToken)

	_, err = svc.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshExpired(t *testing.T) {
	svc := newTestServices(t, memory.New())
	ctx := context.Background()

	reg, err := svc.auth.Register(ctx, &dto.RegisterRequest{Email: "l@example.com", Password: "password1"})
	require.NoError(t, err)

	svc.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout(t *testing.T) {
	svc := newTestServices(t, memory.New())
	ctx := context.Background()

	reg, err := svc.auth.Register(ctx, &dto.RegisterRequest{Email: "m@example.com", Password: "password1"})
	require.NoError(t, err)

	err = svc.auth.Logout(ctx, uuid.New(), &dto.LogoutRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.auth.Logout(ctx, reg.User.IdentityID, &dto.LogoutRequest{RefreshToken: reg.RefreshToken}))
	require.NoError(t, svc.auth.Logout(ctx, reg.User.IdentityID, &dto.LogoutRequest{RefreshToken: reg.RefreshToken}))

	_, err = svc.auth.Refresh(ctx, &dto.RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSession(t *testing.T) {
	store := memory.New()
	svc := newTestServices(t, store)
	ctx := context.Background()

	resp, err := svc.telegram.Validate(ctx, signedInitData(64, "Lu", time.Now()))
	require.NoError(t, err)

	session, err := svc.auth.Session(ctx, resp.User.IdentityID)
	require.NoError(t, err)
	assert.Equal(t, int64(64), session.User.ID)
	assert.Equal(t, models.RoleUser, session.Role)

	_, err = svc.auth.Session(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterRejectsTelegramPseudoEmail(t *testing.T) {
	store := memory.New()
	svc := newTestServices(t, store)
	ctx := context.Background()

	_, err := svc.auth.Register(ctx, &dto.RegisterRequest{Email: PseudoEmail(555), Password: "squatter-pass"})
	assert.ErrorIs(t, err, ErrInvalidRegistration)

	_, err = svc.auth.Register(ctx, &dto.RegisterRequest{Email: "Someone@Telegram.Local", Password: "squatter-pass"})
	assert.ErrorIs(t, err, ErrInvalidRegistration)

	resp, err := svc.telegram.Validate(ctx, signedInitData(555, "Vic", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(555), resp.User.ID)

	_, err = svc.auth.Login(ctx, &dto.LoginRequest{Email: PseudoEmail(555), Password: "squatter-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSurvivesSignInStampFailure(t *testing.T) {
	base := memory.New()
	store := &racyStore{Store: base, creds: &failingCreds{CredentialRepository: base.Credentials(), touchErr: errors.New("stamp refused")}}
	svc := newTestServices(t, store)
	ctx := context.Background()

	_, err := svc.auth.Register(ctx, &dto.RegisterRequest{Email: "stamp@example.com", Password: "correct horse"})
	require.NoError(t, err)

	login, err := svc.auth.Login(ctx, &dto.LoginRequest{Email: "stamp@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
}
