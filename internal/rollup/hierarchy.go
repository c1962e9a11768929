package rollup

import (
	"github.com/rotisserie/eris"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// Overall rollup component names. The overall stage always combines exactly
// these three inputs.
const (
	ComponentFramework     = "framework"
	ComponentHazard        = "hazard"
	ComponentVulnerability = "vulnerability"
)

// ValidateRollupConfig checks a RollupConfig before either rollup stage.
func ValidateRollupConfig(stage string, cfg model.RollupConfig) error {
	if cfg.Method == model.AggCustomWeighted {
		if len(cfg.Weights) == 0 {
			return eris.Errorf("rollup: %s stage uses custom_weighted but has no weights", stage)
		}
		return ValidateWeights(stage+" rollup", cfg.Weights)
	}
	switch cfg.Method {
	case model.AggAverage, model.AggMedian, model.AggWorstCase:
		return nil
	}
	return eris.Errorf("rollup: %s stage has unknown method %q", stage, cfg.Method)
}

// FrameworkScore combines pillar category scores into one framework score
// using the same method semantics as category aggregation. Nil pillar scores
// are excluded; all-nil input yields nil.
func FrameworkScore(pillarScores []ComponentScore, cfg model.RollupConfig) *float64 {
	return aggregate(pillarScores, cfg.Method, cfg.Weights)
}

// OverallScore combines the framework, hazard, and vulnerability scores into
// the overall score. Nil components are excluded per the standard
// null-exclusion rule.
func OverallScore(framework, hazard, vulnerability *float64, cfg model.RollupConfig) *float64 {
	components := []ComponentScore{
		{Key: ComponentFramework, Score: framework},
		{Key: ComponentHazard, Score: hazard},
		{Key: ComponentVulnerability, Score: vulnerability},
	}
	return aggregate(components, cfg.Method, cfg.Weights)
}
