package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/turfbook.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "turfbook", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, 48, cfg.Booking.AdvanceWindowHours)
	assert.Equal(t, 4, cfg.Booking.MaxSlotsPerBooking)
	assert.Equal(t, int64(500), cfg.Booking.PriceHalf)
	assert.Equal(t, int64(1000), cfg.Booking.PriceFull)
	assert.Equal(t, 3, cfg.Booking.CheckRetries)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestLoad_MissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
app:
  name: test
`)

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestLoad_NotifyValidation(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/turfbook.db
notify:
  enabled: true
`)

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bot_token")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TB_DB_PATH", "/tmp/env-expanded.db")

	path := writeConfig(t, `
database:
  path: ${TB_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-expanded.db", cfg.Database.Path)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: turfbook
  environment: test
  version: 1.2.3
database:
  path: data/turfbook.db
redis:
  enabled: true
  address: localhost:6379
booking:
  advance_window_hours: 24
  max_slots_per_booking: 2
  price_half: 600
  price_full: 1200
api:
  http:
    port: 9000
  auth:
    enabled: true
    api_keys:
      - key: secret
        name: frontend
  rate_limit:
    rps: 10
    burst: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Booking.AdvanceWindowHours)
	assert.Equal(t, 2, cfg.Booking.MaxSlotsPerBooking)
	assert.Equal(t, int64(600), cfg.Booking.PriceHalf)
	assert.Equal(t, 9000, cfg.API.HTTP.Port)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "frontend", cfg.API.Auth.APIKeys[0].Name)
	assert.Equal(t, float64(10), cfg.API.RateLimit.RPS)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
