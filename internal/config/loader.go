// Package config provides centralized configuration management. It
// merges three layers: built-in defaults, an optional YAML config
// file, and SEOLENS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/seolens/seolens/internal/core/semrush"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// SEOLENS_SEMRUSH_KEY maps to semrush.key.
const EnvPrefix = "SEOLENS"

const appName = "seolens"

// Load reads configuration from the given file path. An empty path
// falls back to the default search locations; a missing file there is
// not an error, defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir := defaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every known key so environment overrides bind
// even without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("semrush.key", "")
	v.SetDefault("semrush.base_url", semrush.DefaultBaseURL)
	v.SetDefault("semrush.database", "us")
	v.SetDefault("semrush.timeout", "30s")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("rate_limit.calls_per_second", 10)
	v.SetDefault("rate_limit.calls_per_minute", 600)
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("rate_limit.retry_delay", "1s")
	v.SetDefault("rate_limit.endpoints.analytics.calls_per_second", 1)
	v.SetDefault("rate_limit.endpoints.analytics.calls_per_minute", 45)
	v.SetDefault("rate_limit.endpoints.backlinks.calls_per_second", 1)
	v.SetDefault("rate_limit.endpoints.backlinks.calls_per_minute", 45)

	v.SetDefault("collector.retry_attempts", 3)
	v.SetDefault("collector.retry_backoff", "2s")
	v.SetDefault("collector.check_registration", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8600)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
}

func defaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, appName)
}

// DefaultConfigPath returns the path where `config init` writes the
// starter config file.
func DefaultConfigPath() string {
	dir := defaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultStorePath returns the default database file location.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./" + appName + ".db"
	}
	return filepath.Join(home, ".local", "share", appName, appName+".db")
}
