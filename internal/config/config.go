package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/seolens/seolens/internal/core/collector"
	"github.com/seolens/seolens/internal/core/ratelimit"
	"github.com/seolens/seolens/internal/core/semrush"
	"github.com/seolens/seolens/internal/core/store"
)

// Config represents the complete application configuration, merged
// from defaults, an optional config file, and SEOLENS_* environment
// variables.
type Config struct {
	Semrush   semrush.Config   `mapstructure:"semrush"`
	Store     store.Config     `mapstructure:"store"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Collector collector.Config `mapstructure:"collector"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Server    ServerConfig     `mapstructure:"server"`
}

// RateLimitConfig contains the client-side API quota settings. The
// top-level values are the defaults for every endpoint group; the
// endpoints map overrides individual groups at limiter creation.
type RateLimitConfig struct {
	CallsPerSecond int           `mapstructure:"calls_per_second"`
	CallsPerMinute int           `mapstructure:"calls_per_minute"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`

	Endpoints map[string]ratelimit.Override `mapstructure:"endpoints"`
}

// RegistryConfig converts the settings into limiter defaults.
func (c RateLimitConfig) RegistryConfig() ratelimit.Config {
	return ratelimit.Config{
		ShortLimit: c.CallsPerSecond,
		LongLimit:  c.CallsPerMinute,
		MaxRetries: c.MaxRetries,
		RetryDelay: c.RetryDelay,
	}
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level.
	// Valid values: debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format selects the output encoding.
	// Valid values: console, json
	Format string `mapstructure:"format"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Validate checks settings that would otherwise fail deep inside a
// command, so misconfiguration surfaces at startup.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.RateLimit.CallsPerSecond < 0 || c.RateLimit.CallsPerMinute < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	for endpoint, override := range c.RateLimit.Endpoints {
		if override.ShortLimit < 0 || override.LongLimit < 0 {
			return fmt.Errorf("rate limits for endpoint %q must not be negative", endpoint)
		}
	}

	return nil
}
