package model

// ScoreMethod selects how a raw dataset value becomes a vulnerability score.
type ScoreMethod string

const (
	MethodNormalization   ScoreMethod = "normalization"
	MethodPercentile      ScoreMethod = "percentile"
	MethodEqualInterval   ScoreMethod = "equal_interval"
	MethodNaturalBreaks   ScoreMethod = "natural_breaks"
	MethodCustom          ScoreMethod = "custom"
	MethodCategoryMapping ScoreMethod = "category_mapping"
)

// AggregationMethod selects how child scores combine into a parent score.
type AggregationMethod string

const (
	AggAverage        AggregationMethod = "average"
	AggMedian         AggregationMethod = "median"
	AggWorstCase      AggregationMethod = "worst_case"
	AggCustomWeighted AggregationMethod = "custom_weighted"
)

// ScoreRange bounds the discrete/continuous score scale, typically {1,5}.
type ScoreRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Span returns the number of discrete score classes in the range.
func (r ScoreRange) Span() int {
	return r.Max - r.Min + 1
}

// DatasetScoreConfig is the user-authored scoring configuration for one
// dataset, persisted as an opaque blob keyed by dataset id.
type DatasetScoreConfig struct {
	Method         ScoreMethod        `json:"method"`
	Inverse        bool               `json:"inverse"`
	Thresholds     []float64          `json:"thresholds,omitempty"`
	ScoreRange     ScoreRange         `json:"score_range"`
	CategoryScores map[string]float64 `json:"category_scores,omitempty"`
}

// CategoryConfig controls aggregation of dataset scores into one category
// score. Weights are used only by the custom_weighted method and must sum to
// 1 within 0.01 tolerance.
type CategoryConfig struct {
	Key     string             `json:"key"`
	Include bool               `json:"include"`
	Method  AggregationMethod  `json:"method"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

// RollupConfig controls the pillar-to-framework and overall rollup stages.
// Weights are keyed by component name under custom_weighted.
type RollupConfig struct {
	Method  AggregationMethod  `json:"method"`
	Weights map[string]float64 `json:"weights,omitempty"`
}
