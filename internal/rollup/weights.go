// Package rollup combines per-dataset scores into category scores and rolls
// them up through the framework taxonomy to an overall vulnerability score.
package rollup

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// weightTolerance is how far a weight map's sum may drift from 1 before
// validation rejects it.
const weightTolerance = 0.01

// NormalizeWeights rescales a weight map to sum to 1, rounding each entry to
// three decimals. An all-zero map is returned unchanged: rescaling it would
// divide by zero, and the explicit no-op keeps the caller's intent visible.
func NormalizeWeights(w map[string]float64) map[string]float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum == 0 {
		return w
	}

	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k] = math.Round(v/sum*1000) / 1000
	}
	return out
}

// ValidateWeights checks that a weight map is non-negative and sums to 1
// within tolerance. The group name identifies which configuration failed.
func ValidateWeights(group string, w map[string]float64) error {
	var errs []string

	var sum float64
	for k, v := range w {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("weight %q must be >= 0", k))
		}
		sum += v
	}

	if math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Sprintf("weights must sum to 1 (±%.2f), got %.3f", weightTolerance, sum))
	}

	if len(errs) > 0 {
		return eris.Errorf("rollup: weight validation failed for %s: %s", group, strings.Join(errs, "; "))
	}
	return nil
}
