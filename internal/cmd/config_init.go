package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seolens/seolens/internal/config"
)

var (
	configInitPath  string
	configInitForce bool
)

// starterConfig is the config file skeleton written by `config init`.
// Keys mirror the mapstructure names the loader reads.
type starterConfig struct {
	Semrush struct {
		Key      string `yaml:"key"`
		Database string `yaml:"database"`
	} `yaml:"semrush"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	RateLimit struct {
		CallsPerSecond int                       `yaml:"calls_per_second"`
		CallsPerMinute int                       `yaml:"calls_per_minute"`
		Endpoints      map[string]map[string]int `yaml:"endpoints"`
	} `yaml:"rate_limit"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := strings.TrimSpace(configInitPath)
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if path == "" {
			return fmt.Errorf("could not determine config path, use --path")
		}

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		data, err := yaml.Marshal(starter())
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}

		header := "# seolens configuration. Environment variables with the SEOLENS_\n# prefix override any value here, e.g. SEOLENS_SEMRUSH_KEY.\n"
		if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func starter() starterConfig {
	var sc starterConfig
	sc.Semrush.Key = "your-api-key"
	sc.Semrush.Database = "us"
	sc.Store.Path = config.DefaultStorePath()
	sc.RateLimit.CallsPerSecond = 10
	sc.RateLimit.CallsPerMinute = 600
	sc.RateLimit.Endpoints = map[string]map[string]int{
		"analytics": {"calls_per_second": 1, "calls_per_minute": 45},
		"backlinks": {"calls_per_second": 1, "calls_per_minute": 45},
	}
	sc.Logging.Level = "info"
	sc.Logging.Format = "console"
	return sc
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "Destination path (default is the user config directory)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
