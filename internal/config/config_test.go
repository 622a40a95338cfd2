package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "whsec")
	t.Setenv("SESSION_SECRET", "session")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(800), cfg.FeeRateBPS)
	assert.Equal(t, int64(10), cfg.MinTip)
	assert.Equal(t, int64(100), cfg.MinorUnitsPerToken)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.False(t, cfg.SMTPEnabled())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "whsec")
	t.Setenv("SESSION_SECRET", "session")
	t.Setenv("FEE_RATE_BPS", "500")
	t.Setenv("MIN_TIP", "25")
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("API_PORT", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(500), cfg.FeeRateBPS)
	assert.Equal(t, int64(25), cfg.MinTip)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 6533, cfg.APIPort, "unparsable values fall back to defaults")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			WebhookSecret:      "whsec",
			SessionSecret:      "session",
			FeeRateBPS:         800,
			MinTip:             10,
			MinorUnitsPerToken: 100,
			StoreTimeout:       time.Second,
			ReconcileInterval:  time.Minute,
			DatabaseDriver:     "postgres",
			PostgresDB:         "obolus",
			PostgresHost:       "localhost",
		}
	}
	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.WebhookSecret = ""
	assert.ErrorContains(t, cfg.Validate(), "WEBHOOK_SECRET")

	cfg = valid()
	cfg.FeeRateBPS = BasisPoints
	assert.ErrorContains(t, cfg.Validate(), "FEE_RATE_BPS")

	cfg = valid()
	cfg.DatabaseDriver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_DRIVER")

	cfg = valid()
	cfg.MinTip = 0
	assert.ErrorContains(t, cfg.Validate(), "MIN_TIP")
}
