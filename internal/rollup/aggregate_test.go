package rollup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

func f64Ptr(v float64) *float64 { return &v }

func components(vals ...*float64) []ComponentScore {
	scores := make([]ComponentScore, len(vals))
	for i, v := range vals {
		scores[i] = ComponentScore{Key: string(rune('a' + i)), Score: v}
	}
	return scores
}

func TestAggregateCategory_AverageExcludesNull(t *testing.T) {
	// [2, 4, null] averages to 3.0 over the two non-null scores.
	got := AggregateCategory(
		components(f64Ptr(2), f64Ptr(4), nil),
		model.CategoryConfig{Key: "poverty", Method: model.AggAverage},
	)
	require.NotNil(t, got)
	assert.InDelta(t, 3.0, *got, 0.0001)
}

func TestAggregateCategory_WorstCaseIsMax(t *testing.T) {
	got := AggregateCategory(
		components(f64Ptr(2), f64Ptr(4), nil),
		model.CategoryConfig{Key: "poverty", Method: model.AggWorstCase},
	)
	require.NotNil(t, got)
	assert.Equal(t, 4.0, *got)
}

func TestAggregateCategory_MedianOdd(t *testing.T) {
	got := AggregateCategory(
		components(f64Ptr(5), f64Ptr(1), f64Ptr(3)),
		model.CategoryConfig{Key: "health", Method: model.AggMedian},
	)
	require.NotNil(t, got)
	assert.Equal(t, 3.0, *got)
}

func TestAggregateCategory_MedianEvenIsMeanOfMiddles(t *testing.T) {
	got := AggregateCategory(
		components(f64Ptr(1), f64Ptr(2), f64Ptr(4), f64Ptr(5)),
		model.CategoryConfig{Key: "health", Method: model.AggMedian},
	)
	require.NotNil(t, got)
	assert.InDelta(t, 3.0, *got, 0.0001)
}

func TestAggregateCategory_AllNullYieldsNil(t *testing.T) {
	got := AggregateCategory(
		components(nil, nil),
		model.CategoryConfig{Key: "poverty", Method: model.AggAverage},
	)
	assert.Nil(t, got)
}

func TestAggregateCategory_EmptyYieldsNil(t *testing.T) {
	got := AggregateCategory(nil, model.CategoryConfig{Key: "poverty", Method: model.AggAverage})
	assert.Nil(t, got)
}

func TestAggregateCategory_CustomWeighted(t *testing.T) {
	scores := []ComponentScore{
		{Key: "ds1", Score: f64Ptr(2)},
		{Key: "ds2", Score: f64Ptr(4)},
	}
	cfg := model.CategoryConfig{
		Key:     "poverty",
		Method:  model.AggCustomWeighted,
		Weights: map[string]float64{"ds1": 0.25, "ds2": 0.75},
	}

	got := AggregateCategory(scores, cfg)
	require.NotNil(t, got)
	assert.InDelta(t, 3.5, *got, 0.0001)
}

func TestAggregateCategory_CustomWeightedRenormalizes(t *testing.T) {
	// ds3 has weight but no score; the surviving weights are renormalized by
	// their own sum, so ds1:0.25/ds2:0.25 act as 0.5/0.5.
	scores := []ComponentScore{
		{Key: "ds1", Score: f64Ptr(2)},
		{Key: "ds2", Score: f64Ptr(4)},
		{Key: "ds3", Score: nil},
	}
	cfg := model.CategoryConfig{
		Key:     "poverty",
		Method:  model.AggCustomWeighted,
		Weights: map[string]float64{"ds1": 0.25, "ds2": 0.25, "ds3": 0.5},
	}

	got := AggregateCategory(scores, cfg)
	require.NotNil(t, got)
	assert.InDelta(t, 3.0, *got, 0.0001)
}

func TestAggregateCategory_CustomWeightedZeroSumFallsBackToAverage(t *testing.T) {
	// Every participating component carries zero weight; plain average.
	scores := []ComponentScore{
		{Key: "ds1", Score: f64Ptr(1)},
		{Key: "ds2", Score: f64Ptr(5)},
	}
	cfg := model.CategoryConfig{
		Key:     "poverty",
		Method:  model.AggCustomWeighted,
		Weights: map[string]float64{"ds3": 1.0},
	}

	got := AggregateCategory(scores, cfg)
	require.NotNil(t, got)
	assert.InDelta(t, 3.0, *got, 0.0001)
}

func TestValidateCategoryConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     model.CategoryConfig
		wantErr bool
	}{
		{
			name: "average",
			cfg:  model.CategoryConfig{Key: "poverty", Method: model.AggAverage},
		},
		{
			name: "median",
			cfg:  model.CategoryConfig{Key: "poverty", Method: model.AggMedian},
		},
		{
			name: "worst_case",
			cfg:  model.CategoryConfig{Key: "poverty", Method: model.AggWorstCase},
		},
		{
			name: "custom_weighted with valid weights",
			cfg: model.CategoryConfig{
				Key:     "poverty",
				Method:  model.AggCustomWeighted,
				Weights: map[string]float64{"ds1": 0.5, "ds2": 0.5},
			},
		},
		{
			name:    "custom_weighted without weights",
			cfg:     model.CategoryConfig{Key: "poverty", Method: model.AggCustomWeighted},
			wantErr: true,
		},
		{
			name: "custom_weighted weights not summing to 1",
			cfg: model.CategoryConfig{
				Key:     "poverty",
				Method:  model.AggCustomWeighted,
				Weights: map[string]float64{"ds1": 0.5, "ds2": 0.3},
			},
			wantErr: true,
		},
		{
			name:    "unknown method",
			cfg:     model.CategoryConfig{Key: "poverty", Method: "geometric"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCategoryConfig(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
