package store

import (
	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// alignedRow is one raw row resolved to a canonical pcode, ready to persist.
type alignedRow struct {
	PCode      string
	Value      *float64
	Category   *string
	Strategy   model.MatchStrategy
	Confidence float64
}

// planAlignment filters match results down to persistable rows and tallies
// the skip counters. Unmatched rows, rows without a value, and rows whose
// boundary carries no geometry are skipped and counted, never written; the
// batch carries on past every skip.
func planAlignment(results []model.MatchResult, boundaries []model.BoundaryRecord) ([]alignedRow, model.AlignmentSummary) {
	hasGeom := make(map[string]bool, len(boundaries))
	for i := range boundaries {
		hasGeom[boundaries[i].PCode] = boundaries[i].HasGeometry()
	}

	var rows []alignedRow
	var summary model.AlignmentSummary

	for i := range results {
		r := &results[i]

		if r.Status != model.StatusMatched {
			summary.SkippedUnmatched++
			continue
		}
		if r.Record == nil || !r.Record.HasValue() {
			summary.SkippedNoValue++
			continue
		}
		if !hasGeom[r.MatchedCode] {
			summary.SkippedNoGeometry++
			continue
		}

		rows = append(rows, alignedRow{
			PCode:      r.MatchedCode,
			Value:      r.Record.Value,
			Category:   r.Record.Category,
			Strategy:   r.Strategy,
			Confidence: r.Confidence,
		})
		summary.Applied++
	}

	if len(boundaries) == 0 {
		summary.ReferenceMissing = true
	}
	return rows, summary
}
