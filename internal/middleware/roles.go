package middleware

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RoleLookup interface {
	RoleOf(ctx context.Context, identityID uuid.UUID) string
}

// RoleRequired admits identities whose current role is one of allowed.
// Admins pass every guard. Must run after JWTProtected.
func RoleRequired(lookup RoleLookup, allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := UserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		role := lookup.RoleOf(c.UserContext(), userID)
		if role == models.RoleAdmin || contains(allowed, role) {
			c.Locals("role", role)
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Insufficient role",
		})
	}
}

// Role returns the role stored by RoleRequired, if any.
func Role(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
