package execution

import (
	"context"
	"sync"
	"time"

	"github.com/ducminhle1904/options-risk-engine/internal/errors"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// TriggerDirection says which side of the threshold fires the order
type TriggerDirection string

const (
	TriggerAbove TriggerDirection = "above"
	TriggerBelow TriggerDirection = "below"
)

// Condition is a quote threshold that arms a conditional order
type Condition struct {
	Symbol    string
	Threshold float64
	Direction TriggerDirection
}

// Watcher is a cancellable conditional order. Result() blocks until
// the condition fires and the order submits, the watcher is cancelled,
// or the parent context expires.
type Watcher struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	order *types.Order
	err   error
}

// Cancel stops the watcher without submitting
func (w *Watcher) Cancel() {
	w.cancel()
}

// Done is closed when the watcher finishes for any reason
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Result returns the submitted order, or the reason the watcher ended
func (w *Watcher) Result() (*types.Order, error) {
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.order, w.err
}

// Watch arms a conditional order: the request submits when the quote
// mid crosses the condition threshold. The watcher polls at the
// executor's configured interval and stops cleanly on Cancel or when
// ctx ends.
func (e *Executor) Watch(ctx context.Context, req types.OrderRequest, cond Condition) (*Watcher, error) {
	if cond.Symbol == "" || cond.Threshold <= 0 {
		return nil, errors.NewValidationError(component, "Watch", "condition requires a symbol and positive threshold")
	}
	switch cond.Direction {
	case TriggerAbove, TriggerBelow:
	default:
		return nil, errors.NewValidationError(component, "Watch", "condition direction must be above or below")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{cancel: cancel, done: make(chan struct{})}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		cancel()
		return nil, errors.NewValidationError(component, "Watch", "executor is shut down")
	}
	e.watchers[w] = struct{}{}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer close(w.done)
		defer func() {
			e.mu.Lock()
			delete(e.watchers, w)
			e.mu.Unlock()
		}()
		e.runWatcher(watchCtx, w, req, cond)
	}()

	e.log.Order("Armed conditional %s %d %s when %s %s %.2f",
		req.Side, req.Quantity, req.Symbol, cond.Symbol, cond.Direction, cond.Threshold)
	return w, nil
}

func (e *Executor) runWatcher(ctx context.Context, w *Watcher, req types.OrderRequest, cond Condition) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.err = ctx.Err()
			w.mu.Unlock()
			return

		case <-ticker.C:
			quote, err := e.market.GetQuote(ctx, cond.Symbol)
			if err != nil {
				e.log.Warning("Conditional quote poll failed for %s: %v", cond.Symbol, err)
				continue
			}
			if !cond.fires(quote.Mid()) {
				continue
			}

			e.log.Order("Condition met: %s mid %.2f %s %.2f, submitting %s",
				cond.Symbol, quote.Mid(), cond.Direction, cond.Threshold, req.Symbol)
			order, err := e.Submit(ctx, req)
			w.mu.Lock()
			w.order = order
			w.err = err
			w.mu.Unlock()
			return
		}
	}
}

func (c Condition) fires(mid float64) bool {
	if mid <= 0 {
		return false
	}
	if c.Direction == TriggerAbove {
		return mid >= c.Threshold
	}
	return mid <= c.Threshold
}
