package apps

import (
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Routers groups the mount points handed to a plugin.
type Routers struct {
	// Public is the /api group with no auth. It cannot share the /api/p
	// prefix because Fiber applies group middleware to the whole prefix.
	Public fiber.Router

	// Protected is prefixed with /api/p and has JWT middleware applied.
	Protected fiber.Router

	// Guard builds a role check for routes mounted on Protected.
	Guard func(roles ...string) fiber.Handler
}

// Plugin defines the interface every app must implement.
type Plugin interface {
	// ID returns the unique app identifier.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts app-specific routes.
	RegisterRoutes(r Routers, db *gorm.DB, cfg *config.Config)
}

// AdminPlugin extends Plugin with admin-specific route registration.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts admin-only routes on the given Fiber group.
	// The group has both JWT and the admin role guard applied.
	RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}
