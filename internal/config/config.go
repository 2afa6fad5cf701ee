// Package config loads the dashboard configuration with viper and builds the
// global zap logger.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Risk       RiskConfig       `yaml:"risk" mapstructure:"risk"`
	Simulation SimulationConfig `yaml:"simulation" mapstructure:"simulation"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// SessionIdleMins drops login sessions unused for this many minutes.
	SessionIdleMins int `yaml:"session_idle_minutes" mapstructure:"session_idle_minutes"`
}

// DataConfig says where the dashboard tables come from. An empty Source
// serves the built-in demo dataset; a value starting with http:// or https://
// is a base URL, anything else a directory.
type DataConfig struct {
	Source      string `yaml:"source" mapstructure:"source"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the HTTP source timeout.
func (d DataConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSecs) * time.Second
}

// StoreConfig configures snapshot persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RiskConfig points at an optional risk policy file.
type RiskConfig struct {
	PolicyFile string `yaml:"policy_file" mapstructure:"policy_file"`
}

// SimulationConfig bounds Monte Carlo runs.
type SimulationConfig struct {
	DefaultDraws int    `yaml:"default_draws" mapstructure:"default_draws"`
	MaxDraws     int    `yaml:"max_draws" mapstructure:"max_draws"`
	Seed         uint64 `yaml:"seed" mapstructure:"seed"`
}

// AuthConfig holds the login table. Keys are lowercased by viper.
type AuthConfig struct {
	Credentials map[string]string `yaml:"credentials" mapstructure:"credentials"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HTM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.session_idle_minutes", 720)
	v.SetDefault("data.source", "")
	v.SetDefault("data.timeout_secs", 30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "htm-dashboard.db")
	v.SetDefault("risk.policy_file", "")
	v.SetDefault("simulation.default_draws", 10000)
	v.SetDefault("simulation.max_draws", 1000000)
	v.SetDefault("simulation.seed", 42)
	v.SetDefault("auth.credentials", map[string]string{
		"admin":   "pwd123",
		"analyst": "analystpass",
	})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
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
