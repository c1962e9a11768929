package main

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
	"github.com/relief-analytics/vulnassess-cli/internal/rollup"
	"github.com/relief-analytics/vulnassess-cli/internal/store"
	"github.com/relief-analytics/vulnassess-cli/internal/taxonomy"
)

var (
	rollupFramework string
	rollupHazardKey string
	rollupVulnKey   string
	rollupApply     bool
)

// locationRollup is the full rollup result for one location.
type locationRollup struct {
	Pillars       map[string]*float64 `json:"pillars"`
	Framework     *float64            `json:"framework"`
	Hazard        *float64            `json:"hazard,omitempty"`
	Vulnerability *float64            `json:"vulnerability,omitempty"`
	Overall       *float64            `json:"overall"`
}

var rollupCmd = &cobra.Command{
	Use:   "rollup <instance-id>",
	Short: "Roll dataset scores up the framework hierarchy",
	Long:  "Stage one aggregates dataset scores into pillar and framework scores; stage two combines framework, hazard, and vulnerability into the overall score. Null scores are excluded at every stage.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		instanceID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		arena, err := taxonomy.LoadFrameworkFile(rollupFramework)
		if err != nil {
			return err
		}

		triples, err := st.InstanceScores(ctx, instanceID)
		if err != nil {
			return err
		}
		if len(triples) == 0 {
			return eris.Errorf("no scores for instance %s (run score --apply first)", instanceID)
		}

		// pcode -> key -> score
		byLocation := map[string]map[string]float64{}
		for _, tr := range triples {
			if byLocation[tr.PCode] == nil {
				byLocation[tr.PCode] = map[string]float64{}
			}
			byLocation[tr.PCode][tr.Key] = tr.Score
		}

		var frameworkCfg, overallCfg model.RollupConfig
		if err := loadStoredConfig(ctx, st, store.ConfigRollup, "framework", &frameworkCfg, func() any {
			return model.RollupConfig{Method: model.AggAverage}
		}); err != nil {
			return err
		}
		if err := rollup.ValidateRollupConfig("framework", frameworkCfg); err != nil {
			return err
		}
		if err := loadStoredConfig(ctx, st, store.ConfigRollup, "overall", &overallCfg, func() any {
			return model.RollupConfig{Method: model.AggAverage}
		}); err != nil {
			return err
		}
		if err := rollup.ValidateRollupConfig("overall", overallCfg); err != nil {
			return err
		}

		pillars := arena.Pillars()
		pillarCfgs := make(map[string]model.CategoryConfig, len(pillars))
		for _, p := range pillars {
			var ccfg model.CategoryConfig
			pid := p.ID
			if err := loadStoredConfig(ctx, st, store.ConfigCategory, pid, &ccfg, func() any {
				return model.CategoryConfig{Key: pid, Include: true, Method: model.AggAverage}
			}); err != nil {
				return err
			}
			if err := rollup.ValidateCategoryConfig(ccfg); err != nil {
				return err
			}
			pillarCfgs[pid] = ccfg
		}

		report := map[string]locationRollup{}
		var applied []store.ScoreTriple

		pcodes := make([]string, 0, len(byLocation))
		for pcode := range byLocation {
			pcodes = append(pcodes, pcode)
		}
		sort.Strings(pcodes)

		for _, pcode := range pcodes {
			keyScores := byLocation[pcode]
			loc := locationRollup{Pillars: map[string]*float64{}}

			var pillarScores []rollup.ComponentScore
			for _, p := range pillars {
				ccfg := pillarCfgs[p.ID]
				if !ccfg.Include {
					continue
				}

				var components []rollup.ComponentScore
				for _, dsID := range arena.DatasetIDsUnder(p.ID) {
					var score *float64
					if s, ok := keyScores[dsID]; ok {
						v := s
						score = &v
					}
					components = append(components, rollup.ComponentScore{Key: dsID, Score: score})
				}

				pillarScore := rollup.AggregateCategory(components, ccfg)
				loc.Pillars[p.ID] = pillarScore
				pillarScores = append(pillarScores, rollup.ComponentScore{Key: p.ID, Score: pillarScore})
			}

			loc.Framework = rollup.FrameworkScore(pillarScores, frameworkCfg)
			if rollupHazardKey != "" {
				if s, ok := keyScores[rollupHazardKey]; ok {
					v := s
					loc.Hazard = &v
				}
			}
			if rollupVulnKey != "" {
				if s, ok := keyScores[rollupVulnKey]; ok {
					v := s
					loc.Vulnerability = &v
				}
			}
			loc.Overall = rollup.OverallScore(loc.Framework, loc.Hazard, loc.Vulnerability, overallCfg)
			report[pcode] = loc

			if rollupApply {
				for pid, s := range loc.Pillars {
					if s != nil {
						applied = append(applied, store.ScoreTriple{PCode: pcode, Key: "pillar:" + pid, Score: *s})
					}
				}
				if loc.Framework != nil {
					applied = append(applied, store.ScoreTriple{PCode: pcode, Key: "framework", Score: *loc.Framework})
				}
				if loc.Overall != nil {
					applied = append(applied, store.ScoreTriple{PCode: pcode, Key: "overall", Score: *loc.Overall})
				}
			}
		}

		if rollupApply {
			n, err := st.ApplyScores(ctx, instanceID, applied)
			if err != nil {
				return err
			}
			zap.L().Info("rollup applied",
				zap.String("instance", instanceID),
				zap.Int("scores", n),
			)
		}

		return printJSON(report)
	},
}

func init() {
	rollupCmd.Flags().StringVar(&rollupFramework, "framework", "", "framework definition YAML")
	rollupCmd.Flags().StringVar(&rollupHazardKey, "hazard-key", "", "instance score key holding the hazard score")
	rollupCmd.Flags().StringVar(&rollupVulnKey, "vulnerability-key", "", "instance score key holding the vulnerability score")
	rollupCmd.Flags().BoolVar(&rollupApply, "apply", false, "write pillar, framework, and overall scores back")
	rollupCmd.MarkFlagRequired("framework") //nolint:errcheck

	rootCmd.AddCommand(rollupCmd)
}
