package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "catering-invoicing", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 200*time.Millisecond, cfg.Reconcile.BatchDelay)
		assert.Equal(t, 100*time.Millisecond, cfg.Reconcile.FieldDelay)
		assert.True(t, cfg.Reconcile.InvalidateMilestones)
		assert.Equal(t, "delay", cfg.Reconcile.SettleMode)
		assert.Equal(t, 0.08, cfg.Invoicing.DefaultTaxRate)
		assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
		assert.False(t, cfg.Cache.RedisInvalidation)
		assert.True(t, cfg.Swagger.Enabled)
		assert.Empty(t, cfg.Swagger.AllowedIPs)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("CATERING_APP_PORT", "9090")
		t.Setenv("CATERING_DATABASE_DRIVER", "sqlite")
		t.Setenv("CATERING_DATABASE_DBNAME", ":memory:")
		t.Setenv("CATERING_RECONCILE_BATCH_DELAY", "50ms")
		t.Setenv("CATERING_RECONCILE_INVALIDATE_MILESTONES", "false")
		t.Setenv("CATERING_RECONCILE_SETTLE_MODE", "ack")
		t.Setenv("CATERING_SWAGGER_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.App.Port)
		assert.Equal(t, ":memory:", cfg.Database.DSN())
		assert.Equal(t, 50*time.Millisecond, cfg.Reconcile.BatchDelay)
		assert.False(t, cfg.Reconcile.InvalidateMilestones)
		assert.Equal(t, "ack", cfg.Reconcile.SettleMode)
		assert.False(t, cfg.Swagger.Enabled)
	})

	t.Run("rejects unknown settle mode", func(t *testing.T) {
		t.Setenv("CATERING_RECONCILE_SETTLE_MODE", "sleep")
		_, err := Load()
		assert.ErrorContains(t, err, "settle_mode")
	})
}

func TestValidate_Production(t *testing.T) {
	base := func() *Config {
		cfg := &Config{App: AppConfig{Env: "production"}}
		applyDefaults(cfg)
		cfg.Database.Password = "s3cret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"valid", func(cfg *Config) {}, ""},
		{"missing password", func(cfg *Config) { cfg.Database.Password = "" }, "database.password"},
		{"sqlite", func(cfg *Config) { cfg.Database.Driver = "sqlite" }, "sqlite"},
		{"wildcard cors", func(cfg *Config) { cfg.HTTP.CORSAllowOrigins = []string{"*"} }, "cors"},
		{"tax rate", func(cfg *Config) { cfg.Invoicing.DefaultTaxRate = 1.5 }, "tax_rate"},
		{"open swagger", func(cfg *Config) { cfg.Swagger.Enabled = true }, "swagger"},
		{"restricted swagger", func(cfg *Config) {
			cfg.Swagger.Enabled = true
			cfg.Swagger.AllowedIPs = []string{"10.0.0.0/8"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5432,
		User:     "caterer",
		Password: "p@ss word",
		DBName:   "catering",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://caterer:p%40ss%20word@db:5432/catering?sslmode=require", d.DSN())
}
