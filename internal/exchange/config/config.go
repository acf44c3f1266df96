// Package config loads the engine's tunable capacity limits. Production
// capacities are the fixed constants from spec (internal/exchange/types);
// this package only lets a caller overlay smaller values for local
// experimentation and tests (e.g. a 1024-order book instead of a
// 1,048,576-order one) without touching the hot path's arithmetic, which
// always reads limits from the Limits a book/engine was constructed with.
package config

import (
	"fmt"
	"strings"

	"github.com/abdoElHodaky/nitek-ome/internal/exchange/types"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Limits holds the engine's capacity constants, overridable for tests and
// local experimentation via Load.
type Limits struct {
	MaxTickers       int `mapstructure:"max_tickers"`
	MaxClients       int `mapstructure:"max_clients"`
	MaxOrderIDs      int `mapstructure:"max_order_ids"`
	MaxPriceLevels   int `mapstructure:"max_price_levels"`
	MaxClientUpdates int `mapstructure:"max_client_updates"`
	MaxMarketUpdates int `mapstructure:"max_market_updates"`
}

// Engine is the matching engine's configuration: its capacity limits, the
// OS core the matching-engine thread should attempt to pin to (EngineCore;
// -1 disables pinning), and the log level.
type Engine struct {
	Limits     Limits `mapstructure:"limits"`
	EngineCore int    `mapstructure:"engine_core"`
	LogLevel   string `mapstructure:"log_level"`
}

// DefaultLimits returns the engine's fixed production capacity constants.
func DefaultLimits() Limits {
	return Limits{
		MaxTickers:       types.MaxTickers,
		MaxClients:       types.MaxClients,
		MaxOrderIDs:      types.MaxOrderIDs,
		MaxPriceLevels:   types.MaxPriceLevels,
		MaxClientUpdates: types.MaxClientUpdates,
		MaxMarketUpdates: types.MaxMarketUpdates,
	}
}

// Default returns an Engine config with production-sized limits, pinning
// disabled, and info-level logging.
func Default() Engine {
	return Engine{
		Limits:     DefaultLimits(),
		EngineCore: -1,
		LogLevel:   "info",
	}
}

// Load reads an optional config file (YAML/JSON/TOML, by extension) at
// path, overlaying it onto Default(). An empty path returns Default()
// unchanged. Environment variables prefixed OME_ (e.g. OME_LIMITS_MAX_ORDER_IDS)
// also override, taking precedence over the file.
func Load(path string) (Engine, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("OME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, errors.Wrapf(err, "config: reading %s", path)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Engine) {
	v.SetDefault("limits.max_tickers", cfg.Limits.MaxTickers)
	v.SetDefault("limits.max_clients", cfg.Limits.MaxClients)
	v.SetDefault("limits.max_order_ids", cfg.Limits.MaxOrderIDs)
	v.SetDefault("limits.max_price_levels", cfg.Limits.MaxPriceLevels)
	v.SetDefault("limits.max_client_updates", cfg.Limits.MaxClientUpdates)
	v.SetDefault("limits.max_market_updates", cfg.Limits.MaxMarketUpdates)
	v.SetDefault("engine_core", cfg.EngineCore)
	v.SetDefault("log_level", cfg.LogLevel)
}

// Validate rejects configurations the engine cannot run with. It does not
// catch every possible misconfiguration (e.g. a price domain that collides
// under the MaxPriceLevels modulus); that remains a runtime fatal.
func (e Engine) Validate() error {
	l := e.Limits
	if l.MaxTickers <= 0 {
		return fmt.Errorf("config: max_tickers must be positive, got %d", l.MaxTickers)
	}
	if l.MaxClients <= 0 {
		return fmt.Errorf("config: max_clients must be positive, got %d", l.MaxClients)
	}
	if l.MaxOrderIDs <= 0 {
		return fmt.Errorf("config: max_order_ids must be positive, got %d", l.MaxOrderIDs)
	}
	if l.MaxPriceLevels <= 0 {
		return fmt.Errorf("config: max_price_levels must be positive, got %d", l.MaxPriceLevels)
	}
	if !isPowerOfTwo(l.MaxClientUpdates) {
		return fmt.Errorf("config: max_client_updates must be a power of two, got %d", l.MaxClientUpdates)
	}
	if !isPowerOfTwo(l.MaxMarketUpdates) {
		return fmt.Errorf("config: max_market_updates must be a power of two, got %d", l.MaxMarketUpdates)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
