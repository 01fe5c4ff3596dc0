// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the application configuration. Values come from an optional
// YAML or JSON file, overridden by CVB_* environment variables.
type Config struct {
	Port int `mapstructure:"port" yaml:"port,omitempty"`

	// Storage
	DBDriver    string `mapstructure:"db_driver" yaml:"db_driver,omitempty"`       // postgres or sqlite
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url,omitempty"` // PostgreSQL connection URL
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path,omitempty"`

	// Template list cache; disabled when RedisURL is empty
	RedisURL         string        `mapstructure:"redis_url" yaml:"redis_url,omitempty"`
	TemplateCacheTTL time.Duration `mapstructure:"template_cache_ttl" yaml:"template_cache_ttl,omitempty"`

	// Wizard sessions
	AutosaveDelay      time.Duration `mapstructure:"autosave_delay" yaml:"autosave_delay,omitempty"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout" yaml:"session_idle_timeout,omitempty"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level,omitempty"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format,omitempty"` // json or console
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:               8080,
		DBDriver:           DriverPostgres,
		SQLitePath:         "cv_builder.db",
		TemplateCacheTTL:   5 * time.Minute,
		AutosaveDelay:      2 * time.Second,
		SessionIdleTimeout: 30 * time.Minute,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

func newViper() *viper.Viper {
	v := viper.New()

	d := Defaults()
	v.SetDefault("port", d.Port)
	v.SetDefault("db_driver", d.DBDriver)
	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_path", d.SQLitePath)
	v.SetDefault("redis_url", "")
	v.SetDefault("template_cache_ttl", d.TemplateCacheTTL)
	v.SetDefault("autosave_delay", d.AutosaveDelay)
	v.SetDefault("session_idle_timeout", d.SessionIdleTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetEnvPrefix("CVB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The unprefixed names are what docker-compose and the migrations tooling export.
	_ = v.BindEnv("database_url", "CVB_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "CVB_REDIS_URL", "REDIS_URL")
	return v
}

// LoadConfig loads configuration from the file at path (optional) and the environment.
// Returns an error if a named file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535, got %d", c.Port)
	}

	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config error: 'sqlite_path' is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config error: unknown 'db_driver' %q (valid: postgres, sqlite)", c.DBDriver)
	}

	if c.AutosaveDelay <= 0 {
		return fmt.Errorf("config error: 'autosave_delay' must be positive")
	}
	if c.SessionIdleTimeout < 0 {
		return fmt.Errorf("config error: 'session_idle_timeout' must be non-negative")
	}
	if c.TemplateCacheTTL < 0 {
		return fmt.Errorf("config error: 'template_cache_ttl' must be non-negative")
	}

	switch c.LogFormat {
	case "", "json", "console":
	default:
		return fmt.Errorf("config error: unknown 'log_format' %q (valid: json, console)", c.LogFormat)
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DBDriver == "" {
		result.DBDriver = defaults.DBDriver
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	// Durations: zero means unset
	if result.TemplateCacheTTL == 0 {
		result.TemplateCacheTTL = defaults.TemplateCacheTTL
	}
	if result.AutosaveDelay == 0 {
		result.AutosaveDelay = defaults.AutosaveDelay
	}
	if result.SessionIdleTimeout == 0 {
		result.SessionIdleTimeout = defaults.SessionIdleTimeout
	}

	return result
}
