package postgres

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"gorm.io/gorm"
)

type refreshTokenRepo struct {
	db *gorm.DB
}

func (r *refreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	return translate(r.db.WithContext(ctx).Create(token).Error, "store refresh token")
}

func (r *refreshTokenRepo) FindActive(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND revoked = false", tokenHash).
		First(&token).Error
	if err != nil {
		return nil, translate(err, "find refresh token")
	}
	return &token, nil
}

func (r *refreshTokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	err := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
	return translate(err, "revoke refresh token")
}
