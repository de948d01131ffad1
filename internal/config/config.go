// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fasaldhan/fasaldhan-cli/internal/estimator"
	"github.com/fasaldhan/fasaldhan-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig      `yaml:"store" mapstructure:"store"`
	Server ServerConfig     `yaml:"server" mapstructure:"server"`
	Engine EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Market MarketConfig     `yaml:"market" mapstructure:"market"`
	Risk   estimator.Config `yaml:"risk" mapstructure:"risk"`
	Log    LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port      int `yaml:"port" mapstructure:"port"`
	RateLimit int `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

// EngineConfig toggles the estimation engine. When disabled, every
// estimate endpoint serves the fixed unavailable response.
type EngineConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// MarketConfig configures market trend queries.
type MarketConfig struct {
	TrendingLimit    int `yaml:"trending_limit" mapstructure:"trending_limit"`
	RecentWindowDays int `yaml:"recent_window_days" mapstructure:"recent_window_days"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FASALDHAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fasaldhan.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("engine.enabled", true)
	v.SetDefault("market.trending_limit", 10)
	v.SetDefault("market.recent_window_days", 7)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	riskDefaults := estimator.DefaultConfig()
	v.SetDefault("risk.farmer_reliability_weight", riskDefaults.FarmerReliabilityWeight)
	v.SetDefault("risk.buyer_reliability_weight", riskDefaults.BuyerReliabilityWeight)
	v.SetDefault("risk.crop_volatility_weight", riskDefaults.CropVolatilityWeight)
	v.SetDefault("risk.weather_weight", riskDefaults.WeatherWeight)
	v.SetDefault("risk.market_weight", riskDefaults.MarketWeight)
	v.SetDefault("risk.quantity_weight", riskDefaults.QuantityWeight)
	v.SetDefault("risk.weather_risk", riskDefaults.WeatherRisk)
	v.SetDefault("risk.market_risk", riskDefaults.MarketRisk)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks configuration consistency before a command runs.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unsupported store driver: %s", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: invalid server port: %d", c.Server.Port)
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
