package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 4, cfg.Planning.DefaultCavityLimit)
	assert.Equal(t, 0.05, cfg.Planning.WasteUplift)
	assert.Equal(t, 60, cfg.Alerts.ExpiryAlertDays)
	assert.Equal(t, "0 6 * * *", cfg.Alerts.ExpiryCron)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CatalogTTL)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.planta.local")
	t.Setenv("DB_NAME", "produccion")
	t.Setenv("EXPIRY_ALERT_DAYS", "30")
	t.Setenv("LEGACY_RATE_LIMIT_BURST", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.planta.local", cfg.Database.Host)
	assert.Equal(t, 30, cfg.Alerts.ExpiryAlertDays)
	assert.Equal(t, 3, cfg.Legacy.RateLimitBurst)
	assert.Contains(t, cfg.Database.DSN(), "host=db.planta.local port=5432")
	assert.Contains(t, cfg.Database.DSN(), "dbname=produccion")
}
