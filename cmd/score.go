package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
	"github.com/relief-analytics/vulnassess-cli/internal/scoring"
	"github.com/relief-analytics/vulnassess-cli/internal/store"
)

var (
	scoreConfigID string
	scoreApply    bool
	scoreInstance string
)

// scoreReport is the preview output of one scoring run.
type scoreReport struct {
	Dataset string              `json:"dataset"`
	Method  model.ScoreMethod   `json:"method"`
	Scores  map[string]*float64 `json:"scores"`
	Applied int                 `json:"applied,omitempty"`
}

var scoreCmd = &cobra.Command{
	Use:   "score <dataset-id>",
	Short: "Score a dataset's aligned values",
	Long:  "Normalizes aligned values onto the configured score range. Locations whose value cannot be scored stay null and are excluded downstream.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		datasetID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scores, scfg, err := scoreDataset(ctx, st, datasetID)
		if err != nil {
			return err
		}

		report := scoreReport{Dataset: datasetID, Method: scfg.Method, Scores: scores}

		if scoreApply {
			if scoreInstance == "" {
				return eris.New("--instance is required with --apply")
			}
			triples := make([]store.ScoreTriple, 0, len(scores))
			for pcode, s := range scores {
				if s == nil {
					continue
				}
				triples = append(triples, store.ScoreTriple{PCode: pcode, Key: datasetID, Score: *s})
			}
			n, err := st.ApplyScores(ctx, scoreInstance, triples)
			if err != nil {
				return err
			}
			report.Applied = n
			zap.L().Info("scores applied",
				zap.String("dataset", datasetID),
				zap.String("instance", scoreInstance),
				zap.Int("applied", n),
			)
		}

		return printJSON(report)
	},
}

// scoreDataset computes per-pcode scores for a dataset from its applied
// aligned values and stored scoring config.
func scoreDataset(ctx context.Context, st store.Store, datasetID string) (map[string]*float64, *model.DatasetScoreConfig, error) {
	ds, err := st.Dataset(ctx, datasetID)
	if err != nil {
		return nil, nil, err
	}
	if ds == nil {
		return nil, nil, eris.Errorf("dataset not found: %s", datasetID)
	}

	configID := scoreConfigID
	if configID == "" {
		configID = datasetID
	}
	var scfg model.DatasetScoreConfig
	if err := loadStoredConfig(ctx, st, store.ConfigScoring, configID, &scfg, nil); err != nil {
		return nil, nil, err
	}
	if err := scoring.ValidateConfig(scfg); err != nil {
		return nil, nil, err
	}

	values, err := st.AlignedValues(ctx, datasetID)
	if err != nil {
		return nil, nil, err
	}
	if len(values) == 0 {
		return nil, nil, eris.Errorf("no aligned values for %s (run align --apply first)", datasetID)
	}

	records := make([]model.RawRecord, len(values))
	for i, v := range values {
		records[i] = model.RawRecord{Value: v.Value, Category: v.Category}
	}
	stats := scoring.ComputeStats(records)

	scores := make(map[string]*float64, len(values))
	for _, v := range values {
		if ds.Type == model.DatasetCategorical || scfg.Method == model.MethodCategoryMapping {
			scores[v.PCode] = scoring.NormalizeCategory(v.Category, scfg)
		} else {
			scores[v.PCode] = scoring.Normalize(v.Value, stats, scfg)
		}
	}
	return scores, &scfg, nil
}

func init() {
	scoreCmd.Flags().StringVar(&scoreConfigID, "config", "", "stored scoring config id (default: dataset id)")
	scoreCmd.Flags().BoolVar(&scoreApply, "apply", false, "write scores to the store")
	scoreCmd.Flags().StringVar(&scoreInstance, "instance", "", "assessment instance id for applied scores")

	rootCmd.AddCommand(scoreCmd)
}
