package rollup

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// ComponentScore is one named input to an aggregation: a dataset score
// feeding a category, or a category/pillar score feeding a rollup stage. A
// nil Score means the component produced no value for this location and is
// excluded from the aggregation, never defaulted to 0.
type ComponentScore struct {
	Key   string
	Score *float64
}

// ValidateCategoryConfig checks a CategoryConfig before aggregation.
func ValidateCategoryConfig(cfg model.CategoryConfig) error {
	if cfg.Method == model.AggCustomWeighted {
		if len(cfg.Weights) == 0 {
			return eris.Errorf("rollup: category %q uses custom_weighted but has no weights", cfg.Key)
		}
		return ValidateWeights("category "+cfg.Key, cfg.Weights)
	}
	switch cfg.Method {
	case model.AggAverage, model.AggMedian, model.AggWorstCase:
		return nil
	}
	return eris.Errorf("rollup: category %q has unknown method %q", cfg.Key, cfg.Method)
}

// AggregateCategory combines the dataset scores for one location/category
// pair into a category score. Only non-null scores participate; if none do,
// the category score is nil.
func AggregateCategory(scores []ComponentScore, cfg model.CategoryConfig) *float64 {
	return aggregate(scores, cfg.Method, cfg.Weights)
}

// aggregate implements the shared method semantics for categories and both
// rollup stages.
func aggregate(scores []ComponentScore, method model.AggregationMethod, weights map[string]float64) *float64 {
	participating := make([]ComponentScore, 0, len(scores))
	for _, s := range scores {
		if s.Score != nil {
			participating = append(participating, s)
		}
	}
	if len(participating) == 0 {
		return nil
	}

	switch method {
	case model.AggAverage:
		return mean(participating)

	case model.AggMedian:
		vals := make([]float64, len(participating))
		for i, s := range participating {
			vals[i] = *s.Score
		}
		sort.Float64s(vals)
		mid := len(vals) / 2
		var m float64
		if len(vals)%2 == 1 {
			m = vals[mid]
		} else {
			// Even count: mean of the two middle values.
			m = (vals[mid-1] + vals[mid]) / 2
		}
		return &m

	case model.AggWorstCase:
		// Higher score = higher vulnerability, so worst is the maximum.
		worst := *participating[0].Score
		for _, s := range participating[1:] {
			if *s.Score > worst {
				worst = *s.Score
			}
		}
		return &worst

	case model.AggCustomWeighted:
		// Restrict weights to components that produced a score; the
		// restricted weights are renormalized by dividing through their own
		// sum. A zero restricted sum falls back to a plain average.
		var weightSum, weighted float64
		for _, s := range participating {
			w := weights[s.Key]
			weightSum += w
			weighted += w * *s.Score
		}
		if weightSum == 0 {
			return mean(participating)
		}
		v := weighted / weightSum
		return &v
	}

	return nil
}

func mean(scores []ComponentScore) *float64 {
	var sum float64
	for _, s := range scores {
		sum += *s.Score
	}
	v := sum / float64(len(scores))
	return &v
}
