package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/options-risk-engine/pkg/id"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// QuoteFunc supplies quotes to the paper gateway
type QuoteFunc func(ctx context.Context, symbol string) (types.Quote, error)

// PaperGateway is an in-process gateway that simulates broker
// behavior: orders fill against supplied quotes. Used by the demo
// wiring and as the test double for the executor.
type PaperGateway struct {
	name   string
	quotes QuoteFunc

	mu     sync.Mutex
	orders map[string]*paperOrder

	// FillDelayPolls delays fills by N status polls so monitor logic is
	// observable; 0 fills on submission.
	FillDelayPolls int
	// PartialFirst reports one partial fill before the full fill.
	PartialFirst bool
	// FailSubmissions makes SubmitOrder fail, for fallback tests.
	FailSubmissions bool
	// FailCancels makes CancelOrder fail, for timeout-path tests.
	FailCancels bool
}

type paperOrder struct {
	req      types.OrderRequest
	fillPx   float64
	polls    int
	partial  bool
	terminal types.OrderStatus
}

// NewPaperGateway creates a paper gateway backed by the quote source
func NewPaperGateway(name string, quotes QuoteFunc) *PaperGateway {
	return &PaperGateway{
		name:   name,
		quotes: quotes,
		orders: make(map[string]*paperOrder),
	}
}

// Name returns the gateway name
func (g *PaperGateway) Name() string { return g.name }

// GetQuote returns the current quote from the configured source
func (g *PaperGateway) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	return g.quotes(ctx, symbol)
}

// SubmitOrder accepts the order and determines its simulated fill price
func (g *PaperGateway) SubmitOrder(ctx context.Context, req types.OrderRequest) (OrderHandle, error) {
	if g.FailSubmissions {
		return OrderHandle{}, fmt.Errorf("%s: submission rejected", g.name)
	}

	quote, err := g.quotes(ctx, req.Symbol)
	if err != nil {
		return OrderHandle{}, fmt.Errorf("%s: no quote for %s: %w", g.name, req.Symbol, err)
	}

	fillPx := quote.Mid()
	if req.Kind == types.OrderLimit {
		fillPx = req.LimitPrice
		// A limit order priced through the market fills at the quote.
		if req.Side == types.OrderBuy && req.LimitPrice > quote.Mid() {
			fillPx = quote.Mid()
		}
		if req.Side == types.OrderSell && req.LimitPrice < quote.Mid() {
			fillPx = quote.Mid()
		}
	}

	ref := id.New()
	g.mu.Lock()
	g.orders[ref] = &paperOrder{
		req:     req,
		fillPx:  fillPx,
		partial: g.PartialFirst,
	}
	g.mu.Unlock()

	return OrderHandle{Ref: ref, Broker: g.name}, nil
}

// CancelOrder cancels a simulated order if it has not filled yet
func (g *PaperGateway) CancelOrder(ctx context.Context, ref string) error {
	if g.FailCancels {
		return fmt.Errorf("%s: cancel rejected", g.name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[ref]
	if !ok {
		return fmt.Errorf("%s: unknown order %s", g.name, ref)
	}
	if o.terminal != "" && o.terminal != types.OrderPartiallyFilled {
		return fmt.Errorf("%s: order %s already %s", g.name, ref, o.terminal)
	}
	o.terminal = types.OrderCancelled
	return nil
}

// GetOrderStatus advances the simulated fill one poll at a time
func (g *PaperGateway) GetOrderStatus(ctx context.Context, ref string) (OrderState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[ref]
	if !ok {
		return OrderState{}, fmt.Errorf("%s: unknown order %s", g.name, ref)
	}

	now := time.Now()
	if o.terminal == types.OrderCancelled {
		return OrderState{Ref: ref, Status: types.OrderCancelled, UpdatedAt: now}, nil
	}

	o.polls++
	if o.polls <= g.FillDelayPolls {
		return OrderState{Ref: ref, Status: types.OrderPending, UpdatedAt: now}, nil
	}

	if o.partial {
		o.partial = false
		o.terminal = types.OrderPartiallyFilled
		return OrderState{
			Ref:         ref,
			Status:      types.OrderPartiallyFilled,
			FilledQty:   o.req.Quantity / 2,
			FilledPrice: o.fillPx,
			UpdatedAt:   now,
		}, nil
	}

	o.terminal = types.OrderFilled
	return OrderState{
		Ref:         ref,
		Status:      types.OrderFilled,
		FilledQty:   o.req.Quantity,
		FilledPrice: o.fillPx,
		UpdatedAt:   now,
	}, nil
}
