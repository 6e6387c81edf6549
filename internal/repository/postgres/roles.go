package postgres

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type roleRepo struct {
	db *gorm.DB
}

func (r *roleRepo) FindAssignment(ctx context.Context, userID uuid.UUID) (*models.UserRole, error) {
	var assignment models.UserRole
	if err := r.db.WithContext(ctx).Scopes(byUser(userID)).First(&assignment).Error; err != nil {
		return nil, translate(err, "find role assignment")
	}
	return &assignment, nil
}

func (r *roleRepo) Assign(ctx context.Context, assignment *models.UserRole) error {
	return translate(r.db.WithContext(ctx).Create(assignment).Error, "assign role")
}

func (r *roleRepo) FindRole(ctx context.Context, roleID uint) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, "id = ?", roleID).Error; err != nil {
		return nil, translate(err, "find role")
	}
	return &role, nil
}
