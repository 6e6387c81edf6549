package postgres

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PlatformUser, error) {
	var user models.PlatformUser
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return &user, nil
}

func (r *userRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*models.PlatformUser, error) {
	var user models.PlatformUser
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, translate(err, "find user by telegram id")
	}
	return &user, nil
}

func (r *userRepo) Create(ctx context.Context, user *models.PlatformUser) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "create user")
}

func (r *userRepo) UpdateProfile(ctx context.Context, user *models.PlatformUser) error {
	result := r.db.WithContext(ctx).
		Model(&models.PlatformUser{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"username":      user.Username,
			"language_code": user.LanguageCode,
			"photo_url":     user.PhotoURL,
			"updated_at":    user.UpdatedAt,
		})
	if result.Error != nil {
		return translate(result.Error, "update user")
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
