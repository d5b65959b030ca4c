package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "rulebased", cfg.Provider.Vendor)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout())
	assert.Equal(t, 8, cfg.Negotiation.MaxTurns)
	assert.InDelta(t, 20.0, cfg.Negotiation.ConvergenceThreshold, 0.001)
	assert.Equal(t, "midpoint", cfg.Negotiation.ClosePolicy)
	assert.InDelta(t, 0.95, cfg.Negotiation.BuyerBudgetMultiplier, 0.001)
	assert.InDelta(t, 0.88, cfg.Negotiation.SellerMinimumMultiplier, 0.001)
	assert.Equal(t, 500*time.Millisecond, cfg.Scheduler.LaunchDelay())
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Empty(t, cfg.Catalog.SQLitePath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEALSCOUT_NEGOTIATION__MAX_TURNS", "5")
	t.Setenv("DEALSCOUT_SERVER__PORT", "9090")
	t.Setenv("DEALSCOUT_PROVIDER__VENDOR", "openai")
	t.Setenv("DEALSCOUT_LOG_LEVEL", "DEBUG")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Negotiation.MaxTurns)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Provider.Vendor)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.InDelta(t, 20.0, cfg.Negotiation.ConvergenceThreshold, 0.001)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealscout.yaml")
	content := []byte(`server:
  port: 7070
provider:
  vendor: anthropic
  model: claude-3-5-sonnet-20241022
  timeout_seconds: 10
negotiation:
  max_turns: 6
  close_policy: latest_offer
catalog:
  sqlite_path: /tmp/catalog.db
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Provider.Vendor)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Provider.Model)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout())
	assert.Equal(t, 6, cfg.Negotiation.MaxTurns)
	assert.Equal(t, "latest_offer", cfg.Negotiation.ClosePolicy)
	assert.Equal(t, "/tmp/catalog.db", cfg.Catalog.SQLitePath)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealscout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600))

	t.Setenv("DEALSCOUT_SERVER__PORT", "6060")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
