package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seolens/seolens/internal/core/collector"
	"github.com/seolens/seolens/internal/core/semrush"
	"github.com/seolens/seolens/internal/observability"
	"github.com/seolens/seolens/internal/output"
)

var (
	collectFormat         string
	collectNoRegistration bool
)

var collectCmd = &cobra.Command{
	Use:   "collect <domain>...",
	Short: "Collect current SEO metrics for one or more domains",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(collectFormat)
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

		client, err := semrush.NewClient(cfg.Semrush, registry)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		var registration collector.RegistrationLookup
		if cfg.Collector.CheckRegistration && !collectNoRegistration {
			registration = collector.NewRDAPLookup(10 * time.Second)
		}

		c, err := collector.New(client, db, registration, cfg.Collector, observability.CLILogger)
		if err != nil {
			return err
		}

		formatter := output.NewFormatter(format)
		var failed int
		for _, domain := range args {
			result, err := c.Collect(cmd.Context(), domain)
			if err != nil {
				observability.CLILogger.Error("collection failed",
					zap.String("domain", domain),
					zap.Error(err))
				failed++
				continue
			}

			rendered, err := formatter.FormatResult(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d collections failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectFormat, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	collectCmd.Flags().BoolVar(&collectNoRegistration, "no-registration", false, "Skip RDAP registration lookup")
	rootCmd.AddCommand(collectCmd)
}
