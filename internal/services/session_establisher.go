package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/telegram"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
)

const pseudoEmailDomain = "telegram.local"

// defaultEstablishTimeout bounds a shared lookup when no store timeout is set.
const defaultEstablishTimeout = 5 * time.Second

// PseudoEmail is the credential key for a Telegram account.
func PseudoEmail(externalID int64) string {
	return fmt.Sprintf("telegram_%d@%s", externalID, pseudoEmailDomain)
}

// SessionEstablisher finds or provisions the credential for a verified
// Telegram claim and returns its identity id.
//
// An existing credential is trusted without a password check: the claim was
// already authenticated by its signature.
type SessionEstablisher struct {
	creds      repository.CredentialRepository
	group      singleflight.Group
	bcryptCost int
	timeout    time.Duration
	now        func() time.Time
}

func NewSessionEstablisher(creds repository.CredentialRepository) *SessionEstablisher {
	return &SessionEstablisher{
		creds:      creds,
		bcryptCost: bcrypt.DefaultCost,
		timeout:    defaultEstablishTimeout,
		now:        time.Now,
	}
}

func (s *SessionEstablisher) Establish(ctx context.Context, claim *telegram.Claim) (uuid.UUID, error) {
	email := PseudoEmail(claim.ID)

	// Duplicate calls in this process share one lookup; across processes
	// the unique email index and the re-query in establish take over. The
	// shared lookup runs detached from whichever caller started it, under
	// its own timeout, and every caller stops waiting when its ctx ends.
	ch := s.group.DoChan(email, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.establish(shared, email)
	})

	var id uuid.UUID
	select {
	case <-ctx.Done():
		return uuid.Nil, &EstablishError{Cause: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return uuid.Nil, res.Err
		}
		id = res.Val.(uuid.UUID)
	}

	if err := s.creds.TouchSignIn(ctx, id, s.now()); err != nil {
		slog.Warn("credential sign-in timestamp not updated", "action", "establish", "user_id", id.String(), "error", err)
	}
	return id, nil
}

func (s *SessionEstablisher) establish(ctx context.Context, email string) (uuid.UUID, error) {
	cred, err := s.creds.FindByEmail(ctx, email)
	if err == nil {
		return telegramCredentialID(cred)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, &EstablishError{Cause: err}
	}

	secret, err := generateSecret()
	if err != nil {
		return uuid.Nil, &EstablishError{Cause: err}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.bcryptCost)
	if err != nil {
		return uuid.Nil, &EstablishError{Cause: fmt.Errorf("hash secret: %w", err)}
	}

	confirmed := s.now()
	cred = &models.AuthCredential{
		ID:               uuid.New(),
		Email:            email,
		SecretHash:       string(hash),
		Provider:         models.ProviderTelegram,
		EmailConfirmedAt: &confirmed,
	}
	err = s.creds.Create(ctx, cred)
	if err == nil {
		slog.Info("telegram credential created", "action", "establish", "user_id", cred.ID.String())
		return cred.ID, nil
	}
	if !errors.Is(err, repository.ErrAlreadyExists) {
		return uuid.Nil, &EstablishError{Cause: err}
	}

	// Another request created it first.
	metrics.CredentialRaceRecoveries.Inc()
	existing, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, &EstablishError{Cause: fmt.Errorf("re-query after duplicate: %w", err)}
	}
	return telegramCredentialID(existing)
}

// telegramCredentialID returns the identity behind a credential found at a
// pseudo-email, refusing credentials other providers created.
func telegramCredentialID(cred *models.AuthCredential) (uuid.UUID, error) {
	if cred.Provider != models.ProviderTelegram {
		slog.Error("pseudo-email held by foreign credential", "action", "establish", "user_id", cred.ID.String(), "provider", cred.Provider)
		return uuid.Nil, &EstablishError{Cause: ErrForeignCredential}
	}
	return cred.ID, nil
}

// generateSecret returns a 256-bit random secret. It is hashed and never
// returned to anyone.
func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
