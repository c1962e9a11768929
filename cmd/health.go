package main

import (
	"github.com/spf13/cobra"

	"github.com/relief-analytics/vulnassess-cli/internal/align"
	"github.com/relief-analytics/vulnassess-cli/internal/boundary"
)

var healthCmd = &cobra.Command{
	Use:   "health <dataset-id>",
	Short: "Report alignment health metrics for a dataset",
	Long:  "Re-runs alignment and derives alignment rate, coverage, completeness, and uniqueness. Metrics that cannot be computed are reported as null, never zero.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		datasetID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		results, boundaries, err := runAlignment(ctx, st, datasetID)
		if err != nil {
			return err
		}

		metrics := align.Assess(results, boundary.NewIndex(boundaries))
		return printJSON(metrics)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
