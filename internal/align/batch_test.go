package align

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relief-analytics/vulnassess-cli/internal/boundary"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

func largeFixture(n int) ([]model.BoundaryRecord, []model.RawRecord) {
	boundaries := make([]model.BoundaryRecord, n)
	records := make([]model.RawRecord, n)
	for i := 0; i < n; i++ {
		code := fmt.Sprintf("XX%06d", i)
		boundaries[i] = model.BoundaryRecord{PCode: code, Name: fmt.Sprintf("Area %d", i), Level: model.ADM3}
		records[i] = model.RawRecord{PCode: &code}
	}
	return boundaries, records
}

func TestMatchBatch_InputOrder(t *testing.T) {
	boundaries, records := largeFixture(3000)
	idx := boundary.NewIndex(boundaries)

	results, err := MatchBatch(context.Background(), records, model.DefaultMatchingConfig(), idx, 8)
	require.NoError(t, err)
	require.Len(t, results, len(records))

	for i := range results {
		assert.Equal(t, *records[i].PCode, results[i].MatchedCode)
		assert.Equal(t, model.StrategyExact, results[i].Strategy)
	}
}

func TestMatchBatch_SmallBatchSequential(t *testing.T) {
	idx := testIndex()
	records := []model.RawRecord{
		{PCode: strPtr("PH0101")},
		{Name: strPtr("Bacarra")},
		{Value: f64Ptr(1)},
	}

	results, err := MatchBatch(context.Background(), records, model.DefaultMatchingConfig(), idx, 4)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, model.StrategyExact, results[0].Strategy)
	assert.Equal(t, model.StrategyName, results[1].Strategy)
	assert.Equal(t, model.StatusUnmatched, results[2].Status)
}

func TestMatchBatch_Deterministic(t *testing.T) {
	boundaries, records := largeFixture(2500)
	idx := boundary.NewIndex(boundaries)
	cfg := model.DefaultMatchingConfig()

	first, err := MatchBatch(context.Background(), records, cfg, idx, 4)
	require.NoError(t, err)
	second, err := MatchBatch(context.Background(), records, cfg, idx, 16)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMatchBatch_CancellationDiscardsPartials(t *testing.T) {
	boundaries, records := largeFixture(5000)
	idx := boundary.NewIndex(boundaries)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := MatchBatch(ctx, records, model.DefaultMatchingConfig(), idx, 4)
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestMatchBatch_EmptyInput(t *testing.T) {
	results, err := MatchBatch(context.Background(), nil, model.DefaultMatchingConfig(), testIndex(), 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}
