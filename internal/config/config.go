// Package config loads the service configuration from YAML files and
// environment variables and supports hot-reload of the risk thresholds.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/openexec/krakencore/internal/orders"
)

// Config is the root configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
	Risk   RiskConfig   `mapstructure:"risk"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig controls the operational HTTP shell.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RiskConfig holds pre-trade limits and analytics alert thresholds.
// Numeric values are plain floats in the file and converted to decimals at
// the boundary; all downstream arithmetic stays decimal.
type RiskConfig struct {
	MaxOrderVolume  float64            `mapstructure:"max_order_volume"`
	MaxOrderValue   float64            `mapstructure:"max_order_value"`
	Thresholds      map[string]float64 `mapstructure:"thresholds"`
	AlertHistoryCap int                `mapstructure:"alert_history_cap"`
}

// OrderLimits converts the configured pre-trade limits for the order
// manager.
func (r RiskConfig) OrderLimits() orders.RiskLimits {
	return orders.RiskLimits{
		MaxOrderVolume: decimal.NewFromFloat(r.MaxOrderVolume),
		MaxOrderValue:  decimal.NewFromFloat(r.MaxOrderValue),
	}
}

// ThresholdDecimals converts the configured alert thresholds for the
// analytics engine.
func (r RiskConfig) ThresholdDecimals() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Thresholds))
	for name, v := range r.Thresholds {
		out[name] = decimal.NewFromFloat(v)
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("risk.max_order_volume", 100)
	v.SetDefault("risk.max_order_value", 1_000_000)
	v.SetDefault("risk.alert_history_cap", 1000)
	v.SetDefault("risk.thresholds", map[string]float64{
		"max_position_size": 100,
		"max_slippage":      50,
		"max_drawdown":      10_000,
	})
}

// New builds a viper instance wired for the KRAKENCORE_ env prefix and the
// optional config file path.
func New(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("KRAKENCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	return v
}

// Load reads the configuration. A missing config file is not an error; the
// defaults and environment take over.
func Load(path string) (*Config, *viper.Viper, error) {
	v := New(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, v, nil
}
