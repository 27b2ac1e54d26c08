package loop

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/magloop/internal/models"
)

// RunBatch runs independent requests with at most concurrency in flight.
// Results keep the order of texts. A non-positive concurrency runs one at a time.
func (l *CorrectionLoop) RunBatch(ctx context.Context, texts []string, maxIterations, concurrency int) []models.RunResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]models.RunResult, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, text := range texts {
		g.Go(func() error {
			results[i] = l.Run(gctx, text, maxIterations)
			return nil
		})
	}
	_ = g.Wait() // Run reports failures in its result, never as an error
	return results
}
