package align

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relief-analytics/vulnassess-cli/internal/boundary"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// smallBatchThreshold is the row count below which fan-out overhead
// outweighs the parallelism.
const smallBatchThreshold = 2048

// MatchBatch aligns a batch of raw records against one boundary index,
// fanning rows out across a bounded worker pool. On cancellation partial
// results are discarded and the context error is returned. Results are in
// input order; running the same batch twice yields identical output.
func MatchBatch(ctx context.Context, records []model.RawRecord, cfg model.MatchingConfig, idx *boundary.Index, workers int) ([]model.MatchResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	matcher := NewMatcher(cfg, idx)
	if !matcher.ReferenceAvailable() {
		zap.L().Warn("align: boundary reference unavailable, marking all records unmatched",
			zap.Int("rows", len(records)),
		)
	}

	results := make([]model.MatchResult, len(records))

	if len(records) < smallBatchThreshold || workers == 1 {
		for i := range records {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "align: batch cancelled")
			}
			results[i] = matcher.Match(&records[i])
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (len(records) + workers - 1) / workers
	for start := 0; start < len(records); start += chunk {
		end := min(start+chunk, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = matcher.Match(&records[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "align: batch cancelled")
	}
	return results, nil
}
