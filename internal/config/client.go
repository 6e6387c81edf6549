package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ClientConfig configures the Mini App client CLI.
type ClientConfig struct {
	APIBaseURL  string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	InitDataVar string        `env:"TG_INIT_DATA_VAR" envDefault:"TG_INIT_DATA"`
	SessionDB   string        `env:"SESSION_DB" envDefault:".miniapp/session.db"`
	CallTimeout time.Duration `env:"CLIENT_CALL_TIMEOUT" envDefault:"10s"`
	AppEnv      string        `env:"APP_ENV" envDefault:"development"`

	// CallsPerSecond throttles API calls; 0 disables throttling.
	CallsPerSecond float64 `env:"CLIENT_CALLS_PER_SECOND" envDefault:"5"`

	// BotToken is only read by the initdata command.
	BotToken string `env:"TELEGRAM_BOT_TOKEN"`
}

func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if cfg.CallTimeout <= 0 {
		return nil, errors.New("CLIENT_CALL_TIMEOUT must be positive")
	}
	return cfg, nil
}
