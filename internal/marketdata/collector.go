package marketdata

import (
	"context"
	"runtime"
	"sync"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// HistoryJob asks for one symbol's price history
type HistoryJob struct {
	Symbol string
	Window int
}

// HistoryResult carries one symbol's history or the fetch error
type HistoryResult struct {
	Symbol string
	Bars   []types.PriceBar
	Err    error
}

// Collector fetches history for many symbols with bounded concurrency.
// Unbounded fan-out against a rate-limited data feed is disallowed, so
// jobs flow through a fixed-size worker pool.
type Collector struct {
	provider    Provider
	workerCount int
}

// NewCollector creates a collector; workerCount <= 0 uses NumCPU
func NewCollector(provider Provider, workerCount int) *Collector {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &Collector{provider: provider, workerCount: workerCount}
}

// Collect fetches history for every requested symbol and returns the
// results keyed by symbol. Per-symbol failures are reported in the
// result, not as an overall error: risk computation degrades rather
// than halts when one feed is stale.
func (c *Collector) Collect(ctx context.Context, jobs []HistoryJob) map[string]HistoryResult {
	jobCh := make(chan HistoryJob, len(jobs))
	resultCh := make(chan HistoryResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < c.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				select {
				case <-ctx.Done():
					resultCh <- HistoryResult{Symbol: job.Symbol, Err: ctx.Err()}
					continue
				default:
				}
				bars, err := c.provider.GetHistoricalPrices(ctx, job.Symbol, job.Window)
				resultCh <- HistoryResult{Symbol: job.Symbol, Bars: bars, Err: err}
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()
	close(resultCh)

	results := make(map[string]HistoryResult, len(jobs))
	for r := range resultCh {
		results[r.Symbol] = r
	}
	return results
}

// CollectBars is a convenience wrapper returning only the successful
// series, suitable for handing straight to the risk calculator.
func (c *Collector) CollectBars(ctx context.Context, symbols []string, window int) map[string][]types.PriceBar {
	jobs := make([]HistoryJob, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if seen[s] {
			continue
		}
		seen[s] = true
		jobs = append(jobs, HistoryJob{Symbol: s, Window: window})
	}

	out := make(map[string][]types.PriceBar)
	for symbol, r := range c.Collect(ctx, jobs) {
		if r.Err == nil && len(r.Bars) > 0 {
			out[symbol] = r.Bars
		}
	}
	return out
}
