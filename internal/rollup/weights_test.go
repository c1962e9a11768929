package rollup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWeights(t *testing.T) {
	got := NormalizeWeights(map[string]float64{"a": 2, "b": 2})
	assert.Equal(t, map[string]float64{"a": 0.5, "b": 0.5}, got)
}

func TestNormalizeWeights_RoundsToThreeDecimals(t *testing.T) {
	got := NormalizeWeights(map[string]float64{"a": 1, "b": 1, "c": 1})
	for k, v := range got {
		assert.InDelta(t, 0.333, v, 0.0001, "weight %q", k)
	}
}

func TestNormalizeWeights_ZeroSumUnchanged(t *testing.T) {
	in := map[string]float64{"a": 0, "b": 0}
	got := NormalizeWeights(in)
	assert.Equal(t, in, got)
}

func TestValidateWeights(t *testing.T) {
	require.NoError(t, ValidateWeights("test", map[string]float64{"a": 0.4, "b": 0.6}))

	// Within the ±0.01 tolerance.
	require.NoError(t, ValidateWeights("test", map[string]float64{"a": 0.505, "b": 0.5}))
}

func TestValidateWeights_SumOutOfTolerance(t *testing.T) {
	err := ValidateWeights("category poverty", map[string]float64{"a": 0.5, "b": 0.6})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")
	assert.Contains(t, err.Error(), "category poverty")
}

func TestValidateWeights_NegativeWeight(t *testing.T) {
	err := ValidateWeights("test", map[string]float64{"a": -0.5, "b": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be >= 0")
}
