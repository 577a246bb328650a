package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seolens/seolens/internal/output"
)

var rateLimitFormat string

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Show the configured API rate limits per endpoint group",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(rateLimitFormat)
		if err != nil {
			return err
		}

		cfg, err := requireConfig()
		if err != nil {
			return err
		}

		registry, err := buildRegistry()
		if err != nil {
			return err
		}

		// Instantiate each configured group so its effective limits
		// show up, then the catch-all defaults.
		for endpoint := range cfg.RateLimit.Endpoints {
			if _, err := registry.GetLimiter(endpoint); err != nil {
				return err
			}
		}
		if _, err := registry.GetLimiter("default"); err != nil {
			return err
		}

		rendered, err := output.FormatUsage(format, registry.EndpointUsage())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	rateLimitCmd.Flags().StringVar(&rateLimitFormat, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	rootCmd.AddCommand(rateLimitCmd)
}
