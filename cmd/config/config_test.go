package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test", []string{"-memory"})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddress)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, "5", cfg.FeePercent.String())
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.SweepWindow)
	assert.Equal(t, 500, cfg.SweepBatch)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
}

func TestEnvOverridesFlags(t *testing.T) {
	t.Setenv("RUN_ADDRESS", ":9090")
	t.Setenv("DATABASE_URI", "postgres://localhost/workwise")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("PLATFORM_FEE_PERCENT", "7.5")
	t.Setenv("SWEEP_INTERVAL", "15m")
	t.Setenv("SWEEP_BATCH", "50")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load("test", []string{"-a", ":7070", "-fee", "3"})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.RunAddress)
	assert.Equal(t, "postgres://localhost/workwise", cfg.DatabaseURI)
	assert.Equal(t, "7.5", cfg.FeePercent.String())
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 50, cfg.SweepBatch)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load("test", nil)
	assert.Error(t, err, "database uri required")

	_, err = Load("test", []string{"-memory", "-fee", "five"})
	assert.Error(t, err)

	t.Setenv("SWEEP_WINDOW", "soon")
	_, err = Load("test", []string{"-memory"})
	assert.Error(t, err)
}

func TestLoadRequiresStripeSecretsForPostgres(t *testing.T) {
	t.Setenv("DATABASE_URI", "postgres://localhost/workwise")

	_, err := Load("test", nil)
	assert.ErrorContains(t, err, "stripe")

	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	_, err = Load("test", nil)
	assert.ErrorContains(t, err, "webhook secret")

	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	cfg, err := Load("test", nil)
	require.NoError(t, err)
	assert.Equal(t, "whsec_test", cfg.WebhookSecret)

	cfg, err = Load("test", []string{"-memory"})
	require.NoError(t, err, "memory mode runs without stripe")
	assert.True(t, cfg.UseMemoryStore)
}
