package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Database. DatabaseURL wins over the discrete DB_* fields when set.
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" envDefault:"storefront_db"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`

	// StorageDriver selects the repository backend: postgres or memory.
	StorageDriver string        `env:"STORAGE_DRIVER" envDefault:"postgres"`
	StoreTimeout  time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// JWT. JWTSecret is the privileged service key; nothing is signed without it.
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`

	// Telegram. A missing bot token is reported per request, not at startup.
	TelegramBotToken string        `env:"TELEGRAM_BOT_TOKEN"`
	InitDataMaxAge   time.Duration `env:"INIT_DATA_MAX_AGE" envDefault:"24h"`

	// Server
	Port          string `env:"PORT" envDefault:"8080"`
	CORSOrigins   string `env:"CORS_ORIGINS" envDefault:"*"`
	AuthRateLimit int    `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	APIRateLimit  int    `env:"API_RATE_LIMIT" envDefault:"60"`

	// Observability
	AppEnv           string `env:"APP_ENV" envDefault:"development"`
	SentryDSN        string `env:"SENTRY_DSN"`
	LogRetentionDays int    `env:"LOG_RETENTION_DAYS" envDefault:"30"`
}

// Load reads a .env file when present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StorageDriver {
	case "postgres":
		if c.DatabaseURL == "" && c.DBPassword == "" {
			return errors.New("DATABASE_URL or DB_PASSWORD is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.StoreTimeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	if c.InitDataMaxAge <= 0 {
		return errors.New("INIT_DATA_MAX_AGE must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}
