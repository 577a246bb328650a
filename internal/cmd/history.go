package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seolens/seolens/internal/core/transform"
	"github.com/seolens/seolens/internal/output"
)

var (
	historyFormat string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history <domain>",
	Short: "Show stored metric history for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(historyFormat)
		if err != nil {
			return err
		}

		domain := transform.CleanDomain(args[0])
		if !transform.ValidDomain(domain) {
			return fmt.Errorf("invalid domain: %q", args[0])
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		records, err := db.ListMetrics(cmd.Context(), domain, historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("no metrics stored for %s", domain)
		}

		rendered, err := output.NewFormatter(format).FormatHistory(domain, records)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyFormat, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 30, "Maximum number of rows to show")
	rootCmd.AddCommand(historyCmd)
}
