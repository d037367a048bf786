package broker

import (
	"context"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// ResilientGateway decorates a Gateway with a circuit breaker and retry
// policy. Submissions are not retried here — the executor owns the
// single-fallback policy — but reads and cancellations are.
type ResilientGateway struct {
	inner   Gateway
	breaker *CircuitBreaker
	retry   RetryConfig
}

// WithResilience wraps a gateway in breaker + retry decorators
func WithResilience(inner Gateway, breaker *CircuitBreaker, retry RetryConfig) *ResilientGateway {
	return &ResilientGateway{inner: inner, breaker: breaker, retry: retry}
}

// Name returns the wrapped gateway's name
func (g *ResilientGateway) Name() string { return g.inner.Name() }

// Breaker exposes the underlying circuit breaker for health reporting
func (g *ResilientGateway) Breaker() *CircuitBreaker { return g.breaker }

// GetQuote fetches a quote with retry and breaker protection
func (g *ResilientGateway) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	var quote types.Quote
	err := Retry(ctx, g.retry, g.inner.Name(), "GetQuote", func() error {
		return g.breaker.Call(func() error {
			var err error
			quote, err = g.inner.GetQuote(ctx, symbol)
			return err
		})
	})
	return quote, err
}

// SubmitOrder submits through the breaker without retry: a failed
// submission falls through to the executor's fallback gateway instead.
func (g *ResilientGateway) SubmitOrder(ctx context.Context, req types.OrderRequest) (OrderHandle, error) {
	var handle OrderHandle
	err := g.breaker.Call(func() error {
		var err error
		handle, err = g.inner.SubmitOrder(ctx, req)
		return err
	})
	return handle, err
}

// CancelOrder cancels with retry and breaker protection
func (g *ResilientGateway) CancelOrder(ctx context.Context, ref string) error {
	return Retry(ctx, g.retry, g.inner.Name(), "CancelOrder", func() error {
		return g.breaker.Call(func() error {
			return g.inner.CancelOrder(ctx, ref)
		})
	})
}

// GetOrderStatus polls status with retry and breaker protection.
// The underlying call is idempotent, so retrying is safe.
func (g *ResilientGateway) GetOrderStatus(ctx context.Context, ref string) (OrderState, error) {
	var state OrderState
	err := Retry(ctx, g.retry, g.inner.Name(), "GetOrderStatus", func() error {
		return g.breaker.Call(func() error {
			var err error
			state, err = g.inner.GetOrderStatus(ctx, ref)
			return err
		})
	})
	return state, err
}
