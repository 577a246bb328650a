// Package cmd wires the CLI commands.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/seolens/seolens/internal/config"
	"github.com/seolens/seolens/internal/observability"
)

var (
	cfgFile string
	verbose bool

	appCfg *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "seolens",
	Short: "Collect and track SEO metrics for domains",
	Long: `seolens collects SEO metrics (traffic, keywords, backlinks) for
domains from the SEMrush analytics API, stores daily snapshots in a
local database, and keeps every request inside the API rate limits.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/seolens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

// initConfig loads configuration and the CLI logger before any
// command runs.
func initConfig() {
	observability.InitCLILogger("seolens", verbose)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		observability.Fatalf("failed to load configuration", err)
	}
	appCfg = cfg
}

// requireConfig guards commands that cannot run without loaded
// configuration.
func requireConfig() (*config.Config, error) {
	if appCfg == nil {
		return nil, errors.New("configuration is not loaded")
	}
	return appCfg, nil
}
