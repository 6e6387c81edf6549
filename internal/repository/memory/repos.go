package memory

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/google/uuid"
)

type userRepo Store

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PlatformUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*models.PlatformUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.usersByTelegram[telegramID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.users[id]
	return &user, nil
}

func (r *userRepo) Create(ctx context.Context, user *models.PlatformUser) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return repository.ErrAlreadyExists
	}
	if user.TelegramID != nil {
		if _, ok := r.usersByTelegram[*user.TelegramID]; ok {
			return repository.ErrAlreadyExists
		}
		r.usersByTelegram[*user.TelegramID] = user.ID
	}
	stamp(&user.CreatedAt, &user.UpdatedAt)
	r.users[user.ID] = *user
	return nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, user *models.PlatformUser) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Username = user.Username
	stored.LanguageCode = user.LanguageCode
	stored.PhotoURL = user.PhotoURL
	stored.UpdatedAt = user.UpdatedAt
	r.users[user.ID] = stored
	return nil
}

type credentialRepo Store

func (r *credentialRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.AuthCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cred, ok := r.creds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cred, nil
}

func (r *credentialRepo) FindByEmail(ctx context.Context, email string) (*models.AuthCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.credsByEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cred := r.creds[id]
	return &cred, nil
}

func (r *credentialRepo) Create(ctx context.Context, cred *models.AuthCredential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[cred.ID]; ok {
		return repository.ErrAlreadyExists
	}
	if _, ok := r.credsByEmail[cred.Email]; ok {
		return repository.ErrAlreadyExists
	}
	stamp(&cred.CreatedAt, &cred.UpdatedAt)
	r.creds[cred.ID] = *cred
	r.credsByEmail[cred.Email] = cred.ID
	return nil
}

func (r *credentialRepo) TouchSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[id]
	if !ok {
		return nil
	}
	cred.LastSignInAt = &at
	r.creds[id] = cred
	return nil
}

type roleRepo Store

func (r *roleRepo) FindAssignment(ctx context.Context, userID uuid.UUID) (*models.UserRole, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *roleRepo) Assign(ctx context.Context, assignment *models.UserRole) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assignments[assignment.UserID]; ok {
		return repository.ErrAlreadyExists
	}
	stamp(&assignment.CreatedAt, nil)
	r.assignments[assignment.UserID] = *assignment
	return nil
}

func (r *roleRepo) FindRole(ctx context.Context, roleID uint) (*models.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[roleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &role, nil
}

type refreshTokenRepo Store

func (r *refreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.TokenHash]; ok {
		return repository.ErrAlreadyExists
	}
	stamp(&token.CreatedAt, nil)
	r.tokens[token.TokenHash] = *token
	return nil
}

func (r *refreshTokenRepo) FindActive(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[tokenHash]
	if !ok || token.Revoked {
		return nil, repository.ErrNotFound
	}
	return &token, nil
}

func (r *refreshTokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[tokenHash]; ok {
		token.Revoked = true
		r.tokens[tokenHash] = token
	}
	return nil
}
