package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository/memory"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/telegram"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFirstContact(t *testing.T) {
	store := memory.New()
	svc := newTestServices(t, store)

	resp, err := svc.telegram.Validate(context.Background(), signedInitData(555, "Ann", time.Now()))
	require.NoError(t, err)

	assert.True(t, resp.Validated)
	assert.Equal(t, int64(555), resp.User.ID)
	assert.Equal(t, "Ann", resp.User.FirstName)
	assert.Equal(t, "user", resp.Role)
	require.NotNil(t, resp.Session)
	assert.NotEmpty(t, resp.Session.AccessToken)
	assert.NotEmpty(t, resp.Session.RefreshToken)

	users, creds, roles := store.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, creds)
	assert.Equal(t, 1, roles)

	cred, err := store.Credentials().FindByEmail(context.Background(), PseudoEmail(555))
	require.NoError(t, err)
	assert.Equal(t, resp.User.IdentityID, cred.ID)
	assert.Equal(t, models.ProviderTelegram, cred.Provider)
	assert.NotNil(t, cred.EmailConfirmedAt)
	assert.NotNil(t, cred.LastSignInAt)
}

func TestValidateReturningUser(t *testing.T) {
	store := memory.New()
	svc := newTestServices(t, store)
	ctx := context.Background()

	first, err := svc.telegram.Validate(ctx, signedInitData(555, "Ann", time.Now()))
	require.NoError(t, err)

	second, err := svc.telegram.Validate(ctx, signedInitData(555, "Annie", time.Now()))
	require.NoError(t, err)

	assert.Equal(t, first.User.IdentityID, second.User.IdentityID)
	assert.Equal(t, "Annie", second.User.FirstName)
	assert.False(t, second.User.UpdatedAt.Before(first.User.UpdatedAt))

	users, creds, roles := store.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, creds)
	assert.Equal(t, 1, roles)

	stored, err := store.Users().FindByTelegramID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, "Annie", stored.FirstName)
}

func TestValidateConcurrentDuplicates(t *testing.T) {
	store := memory.New()
	svc := newTestServices(t, store)
	payload := signedInitData(777, "Bo", time.Now())

	const n = 16
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.telegram.Validate(context.Background(), payload)
			errs[i] = err
			if err == nil {
				ids[i] = resp.User.IdentityID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	users, creds, roles := store.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, creds)
	assert.Equal(t, 1, roles)
}

// Two service instances share a store but not an in-process dedupe group,
// and both observe "not found" before either inserts.
func TestValidateCrossInstanceRace(t *testing.T) {
	base := memory.New()
	store := &racyStore{Store: base}
	store.creds = &barrierCreds{CredentialRepository: base.Credentials(), b: newBarrier(2)}
	store.users = &barrierUsers{UserRepository: base.Users(), b: newBarrier(2)}

	a := newTestServices(t, store)
	b := newTestServices(t, store)
	payload := signedInitData(888, "Cy", time.Now())

	before := testutil.ToFloat64(metrics.CredentialRaceRecoveries)

	var wg sync.WaitGroup
	results := make([]uuid.UUID, 2)
	errs := make([]error, 2)
	for i, svc := range []*TelegramAuthService{a.telegram, b.telegram} {
		wg.Add(1)
		go func(i int, svc *TelegramAuthService) {
			defer wg.Done()
			resp, err := svc.Validate(context.Background(), payload)
			errs[i] = err
			if err == nil {
				results[i] = resp.User.IdentityID
			}
		}(i, svc)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])

	users, creds, _ := base.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, creds)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CredentialRaceRecoveries))
}

func TestValidateRejections(t *testing.T) {
	svc := newTestServices(t, memory.New())
	ctx := context.Background()

	_, err := svc.telegram.Validate(ctx, "auth_date=1&user=%7B%22id%22%3A1%7D")
	assert.ErrorIs(t, err, telegram.ErrMissingHash)
	assert.Equal(t, "rejected_input", outcome(err))

	tampered := signedInitData(1, "Ann", time.Now()) + "&extra=1"
	_, err = svc.telegram.Validate(ctx, tampered)
	assert.ErrorIs(t, err, telegram.ErrInvalidSignature)
	assert.Equal(t, "rejected_auth", outcome(err))

	_, err = svc.telegram.Validate(ctx, signedInitData(1, "Ann", time.Now().Add(-48*time.Hour)))
	assert.ErrorIs(t, err, telegram.ErrStale)
}

func TestValidateMissingBotToken(t *testing.T) {
	svc := newTestServices(t, memory.New())
	svc.telegram.cfg.TelegramBotToken = ""

	_, err := svc.telegram.Validate(context.Background(), signedInitData(1, "Ann", time.Now()))
	assert.ErrorIs(t, err, telegram.ErrMissingBotToken)
	assert.Equal(t, "error", outcome(err))
}

func TestValidateIdentityMismatch(t *testing.T) {
	store := memory.New()
	svc := newTestServices(t, store)
	ctx := context.Background()

	tg := int64(321)
	require.NoError(t, store.Users().Create(ctx, &models.PlatformUser{ID: uuid.New(), TelegramID: &tg}))

	_, err := svc.telegram.Validate(ctx, signedInitData(321, "Di", time.Now()))
	assert.ErrorIs(t, err, ErrIdentityMismatch)
}

func TestValidateEstablishFailure(t *testing.T) {
	base := memory.New()
	boom := errors.New("auth store down")
	store := &racyStore{Store: base, creds: &failingCreds{CredentialRepository: base.Credentials(), findErr: boom}}
	svc := newTestServices(t, store)

	_, err := svc.telegram.Validate(context.Background(), signedInitData(5, "Ed", time.Now()))
	var establishErr *EstablishError
	require.ErrorAs(t, err, &establishErr)
	assert.ErrorIs(t, err, boom)

	users, _, _ := base.Counts()
	assert.Zero(t, users)
}

func TestValidateStoreTimeout(t *testing.T) {
	base := memory.New()
	store := &racyStore{Store: base, creds: &failingCreds{CredentialRepository: base.Credentials(), block: true}}
	svc := newTestServices(t, store)
	svc.telegram.cfg.StoreTimeout = 20 * time.Millisecond

	start := time.Now()
	_, err := svc.telegram.Validate(context.Background(), signedInitData(6, "Fa", time.Now()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestValidateResolveFailure(t *testing.T) {
	base := memory.New()
	boom := errors.New("profile store down")
	store := &racyStore{Store: base, users: &failingUsers{UserRepository: base.Users(), findErr: boom}}
	svc := newTestServices(t, store)

	_, err := svc.telegram.Validate(context.Background(), signedInitData(7, "Gil", time.Now()))
	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.ErrorIs(t, err, boom)
}

func TestValidateRoleFailureIsNotFatal(t *testing.T) {
	base := memory.New()
	store := &racyStore{Store: base, roles: &failingRoles{RoleRepository: base.Roles(), assignErr: errors.New("insert refused")}}
	svc := newTestServices(t, store)

	resp, err := svc.telegram.Validate(context.Background(), signedInitData(8, "Hu", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, resp.Role)

	_, _, roles := base.Counts()
	assert.Zero(t, roles)
}

func TestValidateSessionClaims(t *testing.T) {
	svc := newTestServices(t, memory.New())

	resp, err := svc.telegram.Validate(context.Background(), signedInitData(99, "Io", time.Now()))
	require.NoError(t, err)

	token, err := jwt.Parse(resp.Session.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, resp.User.IdentityID.String(), claims["sub"])
	assert.Equal(t, "user", claims["role"])
	assert.Equal(t, float64(99), claims["tg_id"])
	assert.Equal(t, PseudoEmail(99), claims["email"])
}
