package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, -1, cfg.EngineCore)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverlayOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ome.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
limits:
  max_tickers: 2
  max_clients: 4
  max_order_ids: 64
  max_price_levels: 8
  max_client_updates: 1024
  max_market_updates: 1024
engine_core: 3
log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Limits.MaxTickers)
	assert.Equal(t, 4, cfg.Limits.MaxClients)
	assert.Equal(t, 64, cfg.Limits.MaxOrderIDs)
	assert.Equal(t, 8, cfg.Limits.MaxPriceLevels)
	assert.Equal(t, 1024, cfg.Limits.MaxClientUpdates)
	assert.Equal(t, 1024, cfg.Limits.MaxMarketUpdates)
	assert.Equal(t, 3, cfg.EngineCore)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate_RejectsNonPositiveLimits(t *testing.T) {
	cfg := Default()
	cfg.Limits.MaxTickers = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPowerOfTwoQueueCapacity(t *testing.T) {
	cfg := Default()
	cfg.Limits.MaxClientUpdates = 1000
	assert.Error(t, cfg.Validate())
}

func TestIsPowerOfTwo(t *testing.T) {
	assert.True(t, isPowerOfTwo(1))
	assert.True(t, isPowerOfTwo(1024))
	assert.False(t, isPowerOfTwo(0))
	assert.False(t, isPowerOfTwo(3))
	assert.False(t, isPowerOfTwo(-4))
}
