package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, 24*time.Hour, cfg.InitDataMaxAge)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.IsProduction())
	assert.Contains(t, cfg.DSN(), "dbname=storefront_db")
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "memory")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			JWTSecret:      "s",
			StorageDriver:  "memory",
			StoreTimeout:   time.Second,
			InitDataMaxAge: time.Hour,
		}
	}

	t.Run("memory needs no database", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("postgres needs credentials", func(t *testing.T) {
		cfg := base()
		cfg.StorageDriver = "postgres"
		assert.Error(t, cfg.Validate())

		cfg.DatabaseURL = "postgres://localhost/db"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.StorageDriver = "sqlite"
		assert.ErrorContains(t, cfg.Validate(), "unknown STORAGE_DRIVER")
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		cfg := base()
		cfg.StoreTimeout = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestDSNPrefersURL(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://u:p@h/db", DBHost: "ignored"}
	assert.Equal(t, "postgres://u:p@h/db", cfg.DSN())
}

func TestLoadClientDefaults(t *testing.T) {
	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "TG_INIT_DATA", cfg.InitDataVar)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)

	t.Setenv("CLIENT_CALL_TIMEOUT", "0s")
	_, err = LoadClient()
	assert.Error(t, err)
}
