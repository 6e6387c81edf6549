package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/config"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/telegram"
	"github.com/google/uuid"
)

// TelegramAuthService reconciles Mini App init data with a platform
// identity: verify, establish credential, resolve profile, sync role, then
// issue a session. The order is fixed because the profile id comes from the
// credential.
type TelegramAuthService struct {
	cfg         *config.Config
	establisher *SessionEstablisher
	resolver    *IdentityResolver
	roles       *RoleSynchronizer
	auth        *AuthService
	now         func() time.Time
}

func NewTelegramAuthService(store repository.Store, cfg *config.Config, roles *RoleSynchronizer, auth *AuthService) *TelegramAuthService {
	establisher := NewSessionEstablisher(store.Credentials())
	if cfg.StoreTimeout > 0 {
		establisher.timeout = cfg.StoreTimeout
	}
	return &TelegramAuthService{
		cfg:         cfg,
		establisher: establisher,
		resolver:    NewIdentityResolver(store.Users()),
		roles:       roles,
		auth:        auth,
		now:         time.Now,
	}
}

func (s *TelegramAuthService) Validate(ctx context.Context, initData string) (*dto.TelegramValidateResponse, error) {
	resp, err := s.validate(ctx, initData)
	metrics.ReconcileTotal.WithLabelValues(outcome(err)).Inc()
	return resp, err
}

func (s *TelegramAuthService) validate(ctx context.Context, initData string) (*dto.TelegramValidateResponse, error) {
	claim, err := telegram.Verify(initData, s.cfg.TelegramBotToken, s.now(), s.cfg.InitDataMaxAge)
	if err != nil {
		return nil, err
	}

	var identityID uuid.UUID
	err = s.step(ctx, func(ctx context.Context) error {
		var err error
		identityID, err = s.establisher.Establish(ctx, claim)
		return err
	})
	if err != nil {
		return nil, err
	}

	var user *models.PlatformUser
	err = s.step(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.resolver.Resolve(ctx, identityID, claim)
		return err
	})
	if err != nil {
		return nil, err
	}

	var role RoleResult
	_ = s.step(ctx, func(ctx context.Context) error {
		role = s.roles.SyncRole(ctx, identityID)
		return nil
	})

	var session *dto.AuthResponse
	err = s.step(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.auth.IssueTokens(ctx, user, role.Name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	slog.Info("telegram identity reconciled",
		"action", "telegram_validate",
		"user_id", identityID.String(),
		"telegram_id", claim.ID,
		"role", role.Name,
		"role_fallback", role.Fallback,
	)

	return &dto.TelegramValidateResponse{
		Validated: true,
		User:      dto.NewUserResponse(user),
		Role:      role.Name,
		Session:   session,
	}, nil
}

// step bounds one store round-trip by the configured timeout.
func (s *TelegramAuthService) step(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, telegram.ErrMissingPayload),
		errors.Is(err, telegram.ErrMalformedPayload),
		errors.Is(err, telegram.ErrMissingHash),
		errors.Is(err, telegram.ErrMalformedUser):
		return "rejected_input"
	case errors.Is(err, telegram.ErrInvalidSignature),
		errors.Is(err, telegram.ErrStale):
		return "rejected_auth"
	default:
		return "error"
	}
}
