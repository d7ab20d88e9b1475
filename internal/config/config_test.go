package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mt5-sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
remote:
  gateway_url: "https://gateway.example:8443"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Remote.PumpMode)
	assert.Equal(t, 1, cfg.Remote.FallbackPumpMode)
	assert.Equal(t, 120*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 600, cfg.Remote.RateLimitPerMinute)
	assert.Equal(t, 8, cfg.Sync.Workers)
	assert.Equal(t, 30*24*time.Hour, cfg.Sync.ClosedWindow)
	assert.Equal(t, "@every 10s", cfg.Sync.OpenSchedule)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
remote:
  gateway_url: "https://gateway.example"
  pump_mode: 3
  timeout: 30s
sync:
  workers: 2
  closed_window: 48h
  open_schedule: "*/5 * * * *"
server:
  port: "9090"
log_level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Remote.PumpMode)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 2, cfg.Sync.Workers)
	assert.Equal(t, 48*time.Hour, cfg.Sync.ClosedWindow)
	assert.Equal(t, "*/5 * * * *", cfg.Sync.OpenSchedule)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing gateway", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "sync:\n  workers: 1\n"))
		assert.Error(t, err)
	})

	t.Run("bad schedule", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
remote:
  gateway_url: "https://gateway.example"
sync:
  open_schedule: "every now and then"
`))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestGatewayFromEnv(t *testing.T) {
	t.Setenv("MT5_GATEWAY_URL", "https://env-gateway.example")

	cfg, err := LoadConfig(writeConfig(t, "log_level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://env-gateway.example", cfg.Remote.GatewayURL)
}

func TestBackfillConfig(t *testing.T) {
	from, err := ParseTime("2025-01-01")
	require.NoError(t, err)
	to, err := ParseTime("2025-02-01T00:00:00Z")
	require.NoError(t, err)

	assert.NoError(t, BackfillConfig{From: from, To: to}.Validate())
	assert.Error(t, BackfillConfig{From: to, To: from}.Validate())
	assert.Error(t, BackfillConfig{}.Validate())

	_, err = ParseTime("01/02/2025")
	assert.Error(t, err)
}

func TestParseBackfillArgs(t *testing.T) {
	bf, err := ParseBackfillArgs("2025-01-01", "2025-01-08", "1001, 1002,")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1001, 1002}, bf.Logins)
	assert.Equal(t, 7*24*time.Hour, bf.To.Sub(bf.From))

	bf, err = ParseBackfillArgs("2025-01-01", "2025-01-08", "")
	require.NoError(t, err)
	assert.Empty(t, bf.Logins)

	_, err = ParseBackfillArgs("2025-01-01", "2025-01-08", "abc")
	assert.Error(t, err)

	_, err = ParseBackfillArgs("2025-01-08", "2025-01-01", "")
	assert.Error(t, err)
}
