package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/telegram"
	"github.com/google/uuid"
)

// IdentityResolver keeps one PlatformUser per Telegram id, keyed by the
// identity id the SessionEstablisher returned.
type IdentityResolver struct {
	users repository.UserRepository
	now   func() time.Time
}

func NewIdentityResolver(users repository.UserRepository) *IdentityResolver {
	return &IdentityResolver{users: users, now: time.Now}
}

func (r *IdentityResolver) Resolve(ctx context.Context, identityID uuid.UUID, claim *telegram.Claim) (*models.PlatformUser, error) {
	user, err := r.users.FindByTelegramID(ctx, claim.ID)
	if err == nil {
		return r.refresh(ctx, identityID, user, claim)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, &PersistenceError{Op: "find user", Cause: err}
	}

	telegramID := claim.ID
	now := r.now()
	user = &models.PlatformUser{
		ID:         identityID,
		TelegramID: &telegramID,
		Email:      PseudoEmail(claim.ID),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyClaim(user, claim)

	err = r.users.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrAlreadyExists) {
		return nil, &PersistenceError{Op: "create user", Cause: err}
	}

	existing, err := r.users.FindByTelegramID(ctx, claim.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "find user after duplicate", Cause: err}
	}
	return r.refresh(ctx, identityID, existing, claim)
}

func (r *IdentityResolver) refresh(ctx context.Context, identityID uuid.UUID, user *models.PlatformUser, claim *telegram.Claim) (*models.PlatformUser, error) {
	if user.ID != identityID {
		return nil, fmt.Errorf("%w: profile %s, credential %s", ErrIdentityMismatch, user.ID, identityID)
	}
	applyClaim(user, claim)
	user.UpdatedAt = r.now()
	if err := r.users.UpdateProfile(ctx, user); err != nil {
		return nil, &PersistenceError{Op: "update user", Cause: err}
	}
	return user, nil
}

func applyClaim(user *models.PlatformUser, claim *telegram.Claim) {
	user.FirstName = claim.FirstName
	user.LastName = claim.LastName
	user.Username = claim.Username
	user.LanguageCode = claim.LanguageCode
	user.PhotoURL = claim.PhotoURL
}
