package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/google/uuid"
)

// RoleResult is the outcome of SyncRole. Name is never empty. Fallback is
// set when Name is the baseline role because the store could not answer;
// Err then holds the cause.
type RoleResult struct {
	Name     string
	Fallback bool
	Err      error
}

type RoleSynchronizer struct {
	roles repository.RoleRepository
}

func NewRoleSynchronizer(roles repository.RoleRepository) *RoleSynchronizer {
	return &RoleSynchronizer{roles: roles}
}

// SyncRole makes sure identityID has a role assignment, creating the
// baseline one if absent, and returns the role name. It never fails.
func (s *RoleSynchronizer) SyncRole(ctx context.Context, identityID uuid.UUID) RoleResult {
	assignment, err := s.roles.FindAssignment(ctx, identityID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		assignment = &models.UserRole{
			ID:     uuid.New(),
			UserID: identityID,
			RoleID: models.BaselineRoleID,
		}
		if err := s.roles.Assign(ctx, assignment); err != nil {
			if !errors.Is(err, repository.ErrAlreadyExists) {
				return s.fallback(identityID, "assign_failed", err)
			}
			assignment, err = s.roles.FindAssignment(ctx, identityID)
			if err != nil {
				return s.fallback(identityID, "requery_failed", err)
			}
		}
	default:
		return s.fallback(identityID, "lookup_failed", err)
	}

	role, err := s.roles.FindRole(ctx, assignment.RoleID)
	if err != nil {
		return s.fallback(identityID, "role_unresolved", err)
	}
	if role.Name == "" {
		return s.fallback(identityID, "role_unresolved", errors.New("role has no name"))
	}
	return RoleResult{Name: role.Name}
}

// RoleOf reads the current role without creating an assignment. Missing or
// unreadable assignments resolve to the baseline role.
func (s *RoleSynchronizer) RoleOf(ctx context.Context, identityID uuid.UUID) string {
	assignment, err := s.roles.FindAssignment(ctx, identityID)
	if err != nil {
		return models.RoleUser
	}
	role, err := s.roles.FindRole(ctx, assignment.RoleID)
	if err != nil || role.Name == "" {
		return models.RoleUser
	}
	return role.Name
}

func (s *RoleSynchronizer) fallback(identityID uuid.UUID, reason string, err error) RoleResult {
	metrics.RoleFallbacks.WithLabelValues(reason).Inc()
	slog.Warn("role sync fell back to baseline role",
		"action", "sync_role",
		"user_id", identityID.String(),
		"reason", reason,
		"error", err,
	)
	return RoleResult{Name: models.RoleUser, Fallback: true, Err: err}
}
