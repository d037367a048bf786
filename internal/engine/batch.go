package engine

import (
	"context"
	"sync"

	"github.com/ducminhle1904/options-risk-engine/internal/sizing"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// batchWorkers bounds concurrent quote lookups during batch sizing
const batchWorkers = 8

// BatchSizingResult pairs one signal with its sizing outcome
type BatchSizingResult struct {
	Signal types.Signal
	Result sizing.SizingResult
	Err    error
}

// SizeBatch sizes many signals against one portfolio with bounded
// concurrency. Results come back in signal order; a failed quote
// lookup fails only its own signal.
func (e *Engine) SizeBatch(ctx context.Context, signals []types.Signal, portfolioID string) []BatchSizingResult {
	results := make([]BatchSizingResult, len(signals))

	jobs := make(chan int, len(signals))
	var wg sync.WaitGroup
	workers := batchWorkers
	if len(signals) < workers {
		workers = len(signals)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result, err := e.SizePosition(ctx, signals[i], portfolioID)
				results[i] = BatchSizingResult{Signal: signals[i], Result: result, Err: err}
			}
		}()
	}

	for i := range signals {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
