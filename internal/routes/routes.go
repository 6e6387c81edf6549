package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/apps"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/config"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

// TelegramValidatePath is served with its own CORS policy; the global CORS
// middleware must skip it.
const TelegramValidatePath = "/api/auth/telegram/validate"

type Handlers struct {
	Auth     *handlers.AuthHandler
	Telegram *handlers.TelegramHandler
	Health   *handlers.HealthHandler
}

// Setup mounts every route. db may be nil, in which case plugins are skipped.
func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	roles middleware.RoleLookup,
	h Handlers,
	plugins []apps.Plugin,
) {
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	// General API rate limiter, per IP
	api.Use(limiter.New(limiter.Config{
		Max:               cfg.APIRateLimit,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Auth, with a stricter per-IP limit
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               cfg.AuthRateLimit,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.All("/telegram/validate", middleware.OpenCORS(), h.Telegram.Validate)
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	// Protected routes (JWT required) - apply middleware to individual routes
	// so it does not affect the public ones above.
	api.Post("/auth/logout", middleware.JWTProtected(cfg), h.Auth.Logout)
	api.Get("/auth/session", middleware.JWTProtected(cfg), h.Auth.Session)

	if db == nil {
		return
	}

	guard := func(allowed ...string) fiber.Handler {
		return middleware.RoleRequired(roles, allowed...)
	}
	routers := apps.Routers{
		Public:    api,
		Protected: api.Group("/p", middleware.JWTProtected(cfg)),
		Guard:     guard,
	}
	admin := api.Group("/admin", middleware.JWTProtected(cfg), guard(models.RoleAdmin))

	for _, p := range plugins {
		p.RegisterRoutes(routers, db, cfg)
		if ap, ok := p.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, db, cfg)
		}
	}
}
