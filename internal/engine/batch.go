package engine

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/aristath/confluence/internal/domain"
)

// BatchResult holds the per-asset decisions of one run plus the reduce-step
// summary. Decisions are ordered like the input assets regardless of worker
// completion order.
type BatchResult struct {
	Decisions []domain.ActionDecision
	Summary   domain.RunSummary
}

// AggregateBatch decides every asset of a run concurrently and reduces the
// results into a summary. The regime snapshot is shared read-only across
// workers; every other input is per-asset. On cancellation the batch returns
// the context error and no partial summary, so a truncated run can never
// produce a misleading market bias.
func (e *Engine) AggregateBatch(
	ctx context.Context,
	runID string,
	assets []*domain.AssetAnalysis,
	regime domain.RegimeSnapshot,
) (*BatchResult, error) {
	started := time.Now().UTC()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decisions := make([]domain.ActionDecision, len(assets))

	workers := runtime.NumCPU()
	if workers > len(assets) {
		workers = len(assets)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				decisions[i] = *e.Decide(assets[i], regime)
			}
		}()
	}

	cancelled := false
feed:
	for i := range assets {
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case jobs <- i:
		}
	}
	close(jobs)

	// Barrier: the summary must never be computed over a partial set.
	wg.Wait()

	if cancelled || ctx.Err() != nil {
		return nil, ctx.Err()
	}

	summary := BuildSummary(runID, regime, decisions, started, time.Now().UTC())

	e.log.Info().
		Str("run_id", runID).
		Int("assets", len(assets)).
		Str("bias", string(summary.MarketBias)).
		Msg("Aggregation batch completed")

	return &BatchResult{Decisions: decisions, Summary: summary}, nil
}
