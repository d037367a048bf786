package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/ducminhle1904/options-risk-engine/internal/errors"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// ExecuteSpread submits a multi-leg strategy all-or-nothing: every leg
// goes out concurrently, and if any leg fails to submit, every other
// leg that has not reached a terminal state is cancelled. Callers get
// the orders that were created (for audit) plus an error describing
// which legs failed.
func (e *Executor) ExecuteSpread(ctx context.Context, legs []types.OrderRequest) ([]*types.Order, error) {
	if len(legs) == 0 {
		return nil, errors.NewValidationError(component, "ExecuteSpread", "spread requires at least one leg")
	}

	type legResult struct {
		index int
		order *types.Order
		err   error
	}

	results := make([]legResult, len(legs))
	var wg sync.WaitGroup
	for i, leg := range legs {
		wg.Add(1)
		go func(i int, leg types.OrderRequest) {
			defer wg.Done()
			order, err := e.Submit(ctx, leg)
			results[i] = legResult{index: i, order: order, err: err}
		}(i, leg)
	}
	wg.Wait()

	var failed []string
	orders := make([]*types.Order, 0, len(legs))
	for _, r := range results {
		if r.order != nil {
			orders = append(orders, r.order)
		}
		if r.err != nil {
			failed = append(failed, fmt.Sprintf("leg %d (%s): %v", r.index, legs[r.index].Symbol, r.err))
		}
	}
	if len(failed) == 0 {
		return orders, nil
	}

	// Unwind: cancel every leg that made it out and is still live.
	for _, order := range orders {
		if order.Status.IsTerminal() {
			continue
		}
		if err := e.Cancel(ctx, order.ID); err != nil {
			e.log.Warning("Spread unwind: cancel %s failed: %v", order.ID, err)
		}
	}

	return orders, errors.NewExecutionError(component, "ExecuteSpread",
		fmt.Errorf("%d of %d legs failed, spread unwound: %v", len(failed), len(legs), failed))
}
