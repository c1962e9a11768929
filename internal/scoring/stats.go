// Package scoring converts raw dataset values into discrete or continuous
// vulnerability scores under a configurable method.
package scoring

import (
	"math"
	"sort"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// Stats holds dataset-wide statistics over the non-null raw values,
// computed once per dataset and shared by every per-row normalization.
type Stats struct {
	Min    float64
	Max    float64
	Values []float64 // sorted ascending
}

// ComputeStats extracts the non-null, finite values from a dataset's rows.
func ComputeStats(records []model.RawRecord) Stats {
	var values []float64
	for i := range records {
		v := records[i].Value
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		values = append(values, *v)
	}
	sort.Float64s(values)

	s := Stats{Values: values}
	if len(values) > 0 {
		s.Min = values[0]
		s.Max = values[len(values)-1]
	}
	return s
}

// Count returns the number of usable values.
func (s Stats) Count() int {
	return len(s.Values)
}

// Degenerate reports whether all values collapse to a single point.
func (s Stats) Degenerate() bool {
	return s.Count() == 0 || s.Min == s.Max
}
