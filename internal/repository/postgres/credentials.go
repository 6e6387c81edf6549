package postgres

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type credentialRepo struct {
	db *gorm.DB
}

func (r *credentialRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.AuthCredential, error) {
	var cred models.AuthCredential
	if err := r.db.WithContext(ctx).First(&cred, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find credential")
	}
	return &cred, nil
}

func (r *credentialRepo) FindByEmail(ctx context.Context, email string) (*models.AuthCredential, error) {
	var cred models.AuthCredential
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&cred).Error; err != nil {
		return nil, translate(err, "find credential by email")
	}
	return &cred, nil
}

func (r *credentialRepo) Create(ctx context.Context, cred *models.AuthCredential) error {
	return translate(r.db.WithContext(ctx).Create(cred).Error, "create credential")
}

func (r *credentialRepo) TouchSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.AuthCredential{}).
		Where("id = ?", id).
		Update("last_sign_in_at", at).Error
	return translate(err, "touch credential")
}
