package align

import (
	"github.com/relief-analytics/vulnassess-cli/internal/boundary"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// Assess computes alignment quality metrics for a batch of match results.
// With zero rows every metric is nil rather than a 0/0 division; coverage is
// also nil when the boundary index is empty. All computed metrics fall
// within [0,1]. Metrics are derived on demand and never persisted as
// authoritative state.
func Assess(results []model.MatchResult, idx *boundary.Index) model.HealthMetrics {
	metrics := model.HealthMetrics{TotalRows: len(results)}
	if len(results) == 0 {
		return metrics
	}

	matchedCodes := make(map[string]bool)
	rawKeys := make(map[string]bool)
	var withValue int

	for i := range results {
		r := &results[i]
		if r.Status == model.StatusMatched {
			metrics.MatchedRows++
			matchedCodes[r.MatchedCode] = true
		} else {
			metrics.UnmatchedRows++
		}

		if r.Record != nil {
			if r.Record.HasValue() {
				withValue++
			}
			rawKeys[rawKey(r.Record)] = true
		}
	}

	total := float64(len(results))
	metrics.AlignmentRate = ratio(float64(metrics.MatchedRows), total)
	metrics.Completeness = ratio(float64(withValue), total)
	metrics.Uniqueness = ratio(float64(len(rawKeys)), total)

	if idx != nil && idx.Len() > 0 {
		metrics.Coverage = ratio(float64(len(matchedCodes)), float64(idx.Len()))
	}

	return metrics
}

// rawKey identifies a raw record for uniqueness counting: the normalized
// pcode when present, otherwise the normalized name.
func rawKey(rec *model.RawRecord) string {
	if rec.PCode != nil && *rec.PCode != "" {
		return "c:" + boundary.NormalizeCode(*rec.PCode)
	}
	if rec.Name != nil && *rec.Name != "" {
		return "n:" + boundary.NormalizeName(*rec.Name)
	}
	return ""
}

func ratio(num, den float64) *float64 {
	v := num / den
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}
