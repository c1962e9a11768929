package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relief-analytics/vulnassess-cli/internal/align"
	"github.com/relief-analytics/vulnassess-cli/internal/boundary"
	"github.com/relief-analytics/vulnassess-cli/internal/cache"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
	"github.com/relief-analytics/vulnassess-cli/internal/store"
)

var (
	alignConfigID string
	alignWorkers  int
	alignApply    bool
	alignVerbose  bool
)

// alignReport is the preview output of one alignment run.
type alignReport struct {
	Dataset    string                  `json:"dataset"`
	Total      int                     `json:"total"`
	Matched    int                     `json:"matched"`
	Unmatched  int                     `json:"unmatched"`
	ByStrategy map[string]int          `json:"by_strategy"`
	Results    []model.MatchResult     `json:"results,omitempty"`
	Summary    *model.AlignmentSummary `json:"summary,omitempty"`
}

var alignCmd = &cobra.Command{
	Use:   "align <dataset-id>",
	Short: "Align a dataset's rows to canonical boundaries",
	Long:  "Runs the strategy chain (exact, fuzzy pcode, name, fuzzy name, parent code, prefix) over every raw row. Without --apply this is a pure preview.",
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

		report := alignReport{Dataset: datasetID, Total: len(results), ByStrategy: map[string]int{}}
		for i := range results {
			if results[i].Status == model.StatusMatched {
				report.Matched++
			} else {
				report.Unmatched++
			}
			report.ByStrategy[string(results[i].Strategy)]++
		}
		if alignVerbose {
			report.Results = results
		}

		if alignApply {
			summary, err := st.ApplyAlignment(ctx, datasetID, results, boundaries)
			if err != nil {
				return err
			}
			report.Summary = summary
			zap.L().Info("alignment applied",
				zap.String("dataset", datasetID),
				zap.Int("applied", summary.Applied),
				zap.Int("skipped_unmatched", summary.SkippedUnmatched),
				zap.Int("skipped_no_geometry", summary.SkippedNoGeometry),
				zap.Int("skipped_no_value", summary.SkippedNoValue),
			)
		}

		return printJSON(report)
	},
}

// runAlignment loads everything an alignment run needs and executes the
// matcher over the dataset's raw rows.
func runAlignment(ctx context.Context, st store.Store, datasetID string) ([]model.MatchResult, []model.BoundaryRecord, error) {
	ds, err := st.Dataset(ctx, datasetID)
	if err != nil {
		return nil, nil, err
	}
	if ds == nil {
		return nil, nil, eris.Errorf("dataset not found: %s", datasetID)
	}

	records, err := st.RawRecords(ctx, datasetID)
	if err != nil {
		return nil, nil, err
	}

	provider := boundary.NewCachedProvider(st,
		cache.NewBoundaryCache(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLMinutes)*time.Minute))
	boundaries, err := provider.Boundaries(ctx, ds.CountryISO3, ds.AdminLevel)
	if err != nil {
		return nil, nil, err
	}
	if len(boundaries) == 0 {
		zap.L().Warn("no boundary reference loaded",
			zap.String("country", ds.CountryISO3),
			zap.String("level", string(ds.AdminLevel)),
		)
	}

	var mcfg model.MatchingConfig
	if err := loadStoredConfig(ctx, st, store.ConfigMatching, alignConfigID, &mcfg, func() any {
		c := model.DefaultMatchingConfig()
		c.FuzzyThreshold = cfg.Align.FuzzyThreshold
		return c
	}); err != nil {
		return nil, nil, err
	}

	workers := alignWorkers
	if workers <= 0 {
		workers = cfg.Align.Workers
	}

	results, err := align.MatchBatch(ctx, records, mcfg, boundary.NewIndex(boundaries), workers)
	if err != nil {
		return nil, nil, err
	}
	return results, boundaries, nil
}

func init() {
	alignCmd.Flags().StringVar(&alignConfigID, "config", "default", "stored matching config id")
	alignCmd.Flags().IntVar(&alignWorkers, "workers", 0, "worker pool size (default from config)")
	alignCmd.Flags().BoolVar(&alignApply, "apply", false, "write matched rows to the store")
	alignCmd.Flags().BoolVar(&alignVerbose, "verbose", false, "include per-row results in the report")

	rootCmd.AddCommand(alignCmd)
}
