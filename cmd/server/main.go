package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/apps"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/apps/storefront"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/config"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/database"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/ids"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/logging"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository/memory"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository/postgres"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/routes"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("")
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.AppEnv)
	metrics.Init()

	plugins := []apps.Plugin{
		storefront.New(),
	}

	var (
		store repository.Store
		db    *gorm.DB
		stop  = func() {}
	)
	switch cfg.StorageDriver {
	case "postgres":
		db, stop = openPostgres(cfg, plugins)
		store = postgres.New(db)
	case "memory":
		slog.Warn("using in-memory storage; data is lost on restart and storefront routes are disabled")
		store = memory.New()
	}

	// Services
	roles := services.NewRoleSynchronizer(store.Roles())
	authService := services.NewAuthService(store, cfg, roles)
	telegramService := services.NewTelegramAuthService(store, cfg, roles, authService)

	if cfg.TelegramBotToken == "" {
		slog.Warn("TELEGRAM_BOT_TOKEN is not set; telegram validation will fail")
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: ids.New}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg, routes.TelegramValidatePath))
	app.Use(middleware.SecurityHeaders())
	app.Use(metrics.Instrument())

	routes.Setup(app, cfg, db, roles, routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		Telegram: handlers.NewTelegramHandler(telegramService, cfg),
		Health:   handlers.NewHealthHandler(store, cfg.StorageDriver),
	}, plugins)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	stop()
	sentry.Flush(2 * time.Second)
	slog.Info("server stopped")
}

// openPostgres connects, migrates and attaches the database log sink. The
// returned func stops background work and closes the pool.
func openPostgres(cfg *config.Config, plugins []apps.Plugin) (*gorm.DB, func()) {
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.MigrateShared(); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	for _, p := range plugins {
		if models := p.Models(); len(models) > 0 {
			if err := database.MigrateModels(models); err != nil {
				slog.Error("plugin migration failed", "plugin", p.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
		}
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewStdoutHandler(os.Stdout, cfg.AppEnv),
		pgLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	return database.DB, func() {
		close(cleanupDone)
		pgLogHandler.Stop()
		if err := database.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
