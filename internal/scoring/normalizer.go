package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// ValidateConfig checks a DatasetScoreConfig before any computation. A
// failed validation is a configuration error the caller must fix before
// retrying; no scoring happens on an invalid config.
func ValidateConfig(cfg model.DatasetScoreConfig) error {
	var errs []string

	if cfg.ScoreRange.Max <= cfg.ScoreRange.Min {
		errs = append(errs, fmt.Sprintf("score_range max (%d) must exceed min (%d)", cfg.ScoreRange.Max, cfg.ScoreRange.Min))
	}

	for i := 1; i < len(cfg.Thresholds); i++ {
		if cfg.Thresholds[i] <= cfg.Thresholds[i-1] {
			errs = append(errs, fmt.Sprintf("thresholds must be strictly ascending (index %d)", i))
			break
		}
	}

	switch cfg.Method {
	case model.MethodNormalization, model.MethodPercentile, model.MethodEqualInterval, model.MethodNaturalBreaks:
	case model.MethodCustom:
		want := cfg.ScoreRange.Max - cfg.ScoreRange.Min
		if len(cfg.Thresholds) != want {
			errs = append(errs, fmt.Sprintf("custom method requires %d thresholds, got %d", want, len(cfg.Thresholds)))
		}
	case model.MethodCategoryMapping:
		if len(cfg.CategoryScores) == 0 {
			errs = append(errs, "category_mapping method requires category_scores")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown method %q", cfg.Method))
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Normalize converts one raw numeric value into a vulnerability score. A nil
// or non-finite value yields nil, never a defaulted score. Numeric outputs
// are always clamped to the configured score range.
func Normalize(value *float64, stats Stats, cfg model.DatasetScoreConfig) *float64 {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return nil
	}
	v := *value

	lo := float64(cfg.ScoreRange.Min)
	hi := float64(cfg.ScoreRange.Max)

	var score float64
	switch cfg.Method {
	case model.MethodNormalization:
		if stats.Degenerate() {
			score = (lo + hi) / 2
		} else {
			score = lo + (v-stats.Min)/(stats.Max-stats.Min)*(hi-lo)
		}

	case model.MethodPercentile:
		score = lo + float64(percentileBin(v, stats, cfg.ScoreRange.Span()))

	case model.MethodEqualInterval:
		score = lo + float64(equalIntervalBin(v, stats, cfg.ScoreRange.Span()))

	case model.MethodNaturalBreaks:
		score = lo + float64(naturalBreaksBin(v, stats, cfg.ScoreRange.Span()))

	case model.MethodCustom:
		crossed := 0
		for _, t := range cfg.Thresholds {
			if v >= t {
				crossed++
			}
		}
		score = lo + float64(crossed)

	case model.MethodCategoryMapping:
		// Categorical-only method; numeric input is invalid.
		return nil

	default:
		return nil
	}

	// Inverse reverses score direction: low raw values become high
	// vulnerability. A reflection within the range covers every method,
	// including the custom threshold direction flip.
	if cfg.Inverse {
		score = hi - (score - lo)
	}

	return clamp(score, lo, hi)
}

// NormalizeCategory converts a categorical value via the configured mapping.
// An unmapped category defaults to the rounded midpoint of the score range;
// a nil/empty category yields nil.
func NormalizeCategory(category *string, cfg model.DatasetScoreConfig) *float64 {
	if category == nil || *category == "" {
		return nil
	}

	lo := float64(cfg.ScoreRange.Min)
	hi := float64(cfg.ScoreRange.Max)

	score, ok := cfg.CategoryScores[*category]
	if !ok {
		score = math.Round((lo + hi) / 2)
	}
	return clamp(score, lo, hi)
}

// percentileBin ranks a value into one of n equal-count bins.
func percentileBin(v float64, stats Stats, n int) int {
	count := stats.Count()
	if count == 0 || n <= 1 {
		return 0
	}
	// Number of values strictly below v.
	rank := sort.SearchFloat64s(stats.Values, v)
	bin := rank * n / count
	if bin > n-1 {
		bin = n - 1
	}
	return bin
}

// equalIntervalBin places a value into one of n equal-width bins over the
// dataset range.
func equalIntervalBin(v float64, stats Stats, n int) int {
	if stats.Degenerate() || n <= 1 {
		return 0
	}
	width := (stats.Max - stats.Min) / float64(n)
	bin := int((v - stats.Min) / width)
	if bin < 0 {
		bin = 0
	}
	if bin > n-1 {
		bin = n - 1
	}
	return bin
}

// naturalBreaksBin classifies a value by Jenks natural breaks over the
// dataset values.
func naturalBreaksBin(v float64, stats Stats, n int) int {
	if stats.Degenerate() || n <= 1 {
		return 0
	}
	breaks := jenksBreaks(stats.Values, n)
	bin := classOf(v, breaks)
	if bin > n-1 {
		bin = n - 1
	}
	return bin
}

func clamp(v, lo, hi float64) *float64 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return &v
}
