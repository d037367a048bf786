package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/options-risk-engine/internal/broker"
	"github.com/ducminhle1904/options-risk-engine/internal/errors"
	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/internal/marketdata"
	"github.com/ducminhle1904/options-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/options-risk-engine/internal/storage"
	"github.com/ducminhle1904/options-risk-engine/internal/validation"
	"github.com/ducminhle1904/options-risk-engine/pkg/id"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

const component = "executor"

// Config tunes the order executor
type Config struct {
	PollInterval      time.Duration // Order monitor poll cadence
	MonitorTimeout    time.Duration // Cancel unfilled orders after this long
	SlippageTolerance float64       // Market->limit conversion tolerance on options
	MarketHoursOnly   bool          // Switch TIF to GTC when the market is closed
}

// DefaultConfig returns the standard executor tuning
func DefaultConfig() Config {
	return Config{
		PollInterval:      2 * time.Second,
		MonitorTimeout:    5 * time.Minute,
		SlippageTolerance: 0.01,
		MarketHoursOnly:   true,
	}
}

// Executor owns the order lifecycle. All status transitions flow
// through its single-writer path per order, so callers never observe
// transitions out of order or out of a terminal state.
type Executor struct {
	config     Config
	registry   *broker.Registry
	validator  *validation.Validator
	market     marketdata.Provider
	orders     storage.OrderStore
	portfolios storage.PortfolioStore
	log        *logger.Logger

	// OnFill is invoked after a fill mutates a portfolio, letting the
	// engine invalidate risk caches. May be nil.
	OnFill func(portfolioID string)

	mu       sync.Mutex // Guards order transitions, the inflight map, and watchers
	inflight map[string]*inflightOrder
	watchers map[*Watcher]struct{}
	wg       sync.WaitGroup
	closed   bool

	portfolioLocks sync.Map // portfolioID -> *sync.Mutex, serializes fills
}

type inflightOrder struct {
	gateway broker.Gateway
	ref     string
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewExecutor creates an order executor
func NewExecutor(config Config, registry *broker.Registry, validator *validation.Validator, market marketdata.Provider, orders storage.OrderStore, portfolios storage.PortfolioStore, log *logger.Logger) *Executor {
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.MonitorTimeout <= 0 {
		config.MonitorTimeout = 5 * time.Minute
	}
	return &Executor{
		config:     config,
		registry:   registry,
		validator:  validator,
		market:     market,
		orders:     orders,
		portfolios: portfolios,
		log:        log,
		inflight:   make(map[string]*inflightOrder),
		watchers:   make(map[*Watcher]struct{}),
	}
}

// Submit validates, optimizes, routes, and submits an order, then
// registers it for asynchronous monitoring. Invalid requests never
// reach a broker. A request that fails on both the primary and the
// fallback gateway comes back as a rejected Order plus an error —
// never an ambiguous "maybe it worked".
func (e *Executor) Submit(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	portfolio, err := e.portfolios.GetPortfolio(ctx, req.PortfolioID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorCategoryValidation, component, "Submit")
	}

	result := e.validator.Validate(ctx, req, portfolio)
	if !result.Valid {
		return nil, errors.NewValidationError(component, "Submit",
			fmt.Sprintf("order rejected by validation: %v", result.Errors))
	}

	kind, err := validation.InstrumentKindOf(req.Symbol)
	if err != nil {
		return nil, errors.NewValidationError(component, "Submit", err.Error())
	}

	route, err := e.registry.RouteFor(kind)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorCategoryConfiguration, component, "Submit")
	}

	optimized, optWarnings := e.optimize(ctx, req, kind)

	order := &types.Order{
		ID:          id.New(),
		Symbol:      optimized.Symbol,
		Side:        optimized.Side,
		Quantity:    optimized.Quantity,
		Kind:        optimized.Kind,
		LimitPrice:  optimized.LimitPrice,
		StopPrice:   optimized.StopPrice,
		TimeInForce: optimized.TimeInForce,
		PortfolioID: optimized.PortfolioID,
		SignalID:    optimized.SignalID,
		Status:      types.OrderPending,
		SubmittedAt: time.Now(),
		Warnings:    append(result.Warnings, optWarnings...),
	}
	if err := e.orders.SaveOrder(ctx, order); err != nil {
		return nil, errors.Wrap(err, errors.ErrorCategoryFatal, component, "Submit")
	}

	handle, gateway, submitErr := e.submitWithFallback(ctx, route, optimized)
	if submitErr != nil {
		e.transition(ctx, order, types.OrderRejected)
		monitoring.RecordOrderRejected(order.Symbol)
		return order, errors.NewExecutionError(component, "Submit", submitErr)
	}

	order.Broker = gateway.Name()
	order.BrokerRef = handle.Ref
	if err := e.orders.SaveOrder(ctx, order); err != nil {
		e.log.LogError("persist submitted order", err)
	}
	monitoring.RecordOrderSubmitted(order.Symbol, string(order.Side))
	e.log.Order("Submitted %s %d %s via %s (order %s, ref %s)",
		order.Side, order.Quantity, order.Symbol, order.Broker, order.ID, handle.Ref)

	e.startMonitor(order, gateway, handle.Ref)
	return order, nil
}

// submitWithFallback tries the primary gateway, then exactly one
// fallback if registered. It never retries beyond that.
func (e *Executor) submitWithFallback(ctx context.Context, route broker.Route, req types.OrderRequest) (broker.OrderHandle, broker.Gateway, error) {
	handle, err := route.Primary.SubmitOrder(ctx, req)
	if err == nil {
		return handle, route.Primary, nil
	}
	e.log.Warning("Primary gateway %s failed for %s: %v", route.Primary.Name(), req.Symbol, err)
	monitoring.RecordGatewayFailure(route.Primary.Name())

	if route.Fallback == nil {
		return broker.OrderHandle{}, nil, fmt.Errorf("primary gateway %s failed: %w", route.Primary.Name(), err)
	}

	handle, fbErr := route.Fallback.SubmitOrder(ctx, req)
	if fbErr == nil {
		e.log.Order("Fallback gateway %s accepted %s", route.Fallback.Name(), req.Symbol)
		return handle, route.Fallback, nil
	}
	monitoring.RecordGatewayFailure(route.Fallback.Name())
	return broker.OrderHandle{}, nil, fmt.Errorf(
		"primary gateway %s failed (%v); fallback %s failed: %w",
		route.Primary.Name(), err, route.Fallback.Name(), fbErr)
}

// optimize applies execution optimizations before submission: a market
// order on a low-liquidity option converts to a limit priced at the
// quote plus/minus the slippage tolerance, and orders placed while the
// market is closed switch to good-till-cancelled.
func (e *Executor) optimize(ctx context.Context, req types.OrderRequest, kind types.InstrumentKind) (types.OrderRequest, []string) {
	var warnings []string

	if kind == types.InstrumentOption && req.Kind == types.OrderMarket {
		if quote, err := e.market.GetQuote(ctx, req.Symbol); err == nil {
			mid := quote.Mid()
			if mid > 0 {
				req.Kind = types.OrderLimit
				if req.Side == types.OrderBuy {
					req.LimitPrice = mid * (1 + e.config.SlippageTolerance)
				} else {
					req.LimitPrice = mid * (1 - e.config.SlippageTolerance)
				}
				warnings = append(warnings, fmt.Sprintf(
					"market order converted to limit at %.2f to avoid adverse fills", req.LimitPrice))
			}
		}
	}

	if e.config.MarketHoursOnly {
		if hours, err := e.market.GetMarketHours(ctx); err == nil && !hours.IsOpen {
			if req.TimeInForce != types.TIFGoodTillCancelled {
				req.TimeInForce = types.TIFGoodTillCancelled
				warnings = append(warnings, "market closed: time-in-force switched to good-till-cancelled")
			}
		}
	}

	return req, warnings
}

// Cancel cancels a pending order. Cancelling a terminal order is a
// no-op error, not a crash.
func (e *Executor) Cancel(ctx context.Context, orderID string) error {
	order, err := e.orders.GetOrder(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, errors.ErrorCategoryValidation, component, "Cancel")
	}
	if order.Status.IsTerminal() {
		return errors.NewValidationError(component, "Cancel",
			fmt.Sprintf("order %s is already %s", orderID, order.Status))
	}

	gateway, ok := e.registry.ByName(order.Broker)
	if !ok {
		return errors.NewConfigurationError(component, "Cancel",
			fmt.Sprintf("gateway %q not registered", order.Broker))
	}
	if err := gateway.CancelOrder(ctx, order.BrokerRef); err != nil {
		return errors.NewExecutionError(component, "Cancel", err)
	}

	e.transition(ctx, order, types.OrderCancelled)
	e.stopMonitor(orderID)
	return nil
}

// startMonitor launches the cancellable background task that polls the
// gateway until the order reaches a terminal state or times out.
func (e *Executor) startMonitor(order *types.Order, gateway broker.Gateway, ref string) {
	monitorCtx, cancel := context.WithCancel(context.Background())
	inf := &inflightOrder{
		gateway: gateway,
		ref:     ref,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		cancel()
		close(inf.done)
		return
	}
	e.inflight[order.ID] = inf
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(inf.done)
		defer e.stopMonitor(order.ID)
		e.monitor(monitorCtx, order, gateway, ref)
	}()
}

// monitor polls the gateway on a fixed interval. On timeout it issues
// a cancellation and marks the order cancelled once confirmed, or
// rejected if cancellation itself fails.
func (e *Executor) monitor(ctx context.Context, order *types.Order, gateway broker.Gateway, ref string) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(e.config.MonitorTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-deadline.C:
			e.log.Warning("Order %s timed out after %s, cancelling", order.ID, e.config.MonitorTimeout)
			cancelCtx, cancel := context.WithTimeout(context.Background(), e.config.PollInterval*2)
			err := gateway.CancelOrder(cancelCtx, ref)
			cancel()
			if err != nil {
				e.log.LogError("cancel timed-out order", err)
				e.transition(ctx, order, types.OrderRejected)
			} else {
				e.transition(ctx, order, types.OrderCancelled)
			}
			return

		case <-ticker.C:
			state, err := gateway.GetOrderStatus(ctx, ref)
			if err != nil {
				e.log.Warning("Status poll failed for order %s: %v", order.ID, err)
				continue
			}
			if e.applyBrokerState(ctx, order, state) {
				return
			}
		}
	}
}

// applyBrokerState folds a confirmed broker response into the order.
// Returns true once the order is terminal.
func (e *Executor) applyBrokerState(ctx context.Context, order *types.Order, state broker.OrderState) bool {
	e.mu.Lock()
	current := order.Status
	if current == state.Status || !types.CanTransition(current, state.Status) {
		e.mu.Unlock()
		return current.IsTerminal()
	}

	order.Status = state.Status
	if state.FilledQty > 0 {
		order.FilledQty = state.FilledQty
		order.FilledPrice = state.FilledPrice
	}
	if state.Status == types.OrderFilled {
		now := time.Now()
		order.FilledAt = &now
	}
	e.mu.Unlock()

	e.log.LogOrderTransition(order.ID, string(current), string(order.Status))
	if err := e.orders.SaveOrder(ctx, order); err != nil {
		e.log.LogError("persist order transition", err)
	}

	if order.Status == types.OrderFilled {
		monitoring.RecordOrderFilled(order.Symbol, float64(order.FilledQty)*order.FilledPrice)
		e.applyFill(ctx, order)
	}
	return order.Status.IsTerminal()
}

// transition moves an order to a new status through the state machine
func (e *Executor) transition(ctx context.Context, order *types.Order, to types.OrderStatus) {
	e.mu.Lock()
	from := order.Status
	if !types.CanTransition(from, to) {
		e.mu.Unlock()
		return
	}
	order.Status = to
	e.mu.Unlock()

	e.log.LogOrderTransition(order.ID, string(from), string(to))
	if err := e.orders.SaveOrder(ctx, order); err != nil {
		e.log.LogError("persist order transition", err)
	}
}

// applyFill mutates portfolio cash and positions for a filled order.
// Fills serialize per portfolio id so concurrent orders for the same
// portfolio cannot double-spend cash; different portfolios proceed
// independently.
func (e *Executor) applyFill(ctx context.Context, order *types.Order) {
	lockAny, _ := e.portfolioLocks.LoadOrStore(order.PortfolioID, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	portfolio, err := e.portfolios.GetPortfolio(ctx, order.PortfolioID)
	if err != nil {
		e.log.LogError("load portfolio for fill", err)
		return
	}

	fillValue := float64(order.FilledQty) * order.FilledPrice
	kind, _ := validation.InstrumentKindOf(order.Symbol)

	if order.Side == types.OrderBuy {
		portfolio.CashBalance -= fillValue
		portfolio.Positions = append(portfolio.Positions, &types.Position{
			ID:           id.New(),
			Symbol:       order.Symbol,
			Kind:         kind,
			Side:         types.PositionLong,
			Quantity:     order.FilledQty,
			EntryPrice:   order.FilledPrice,
			CurrentPrice: order.FilledPrice,
			OpenDate:     time.Now(),
			StrategyID:   order.SignalID,
		})
	} else {
		portfolio.CashBalance += fillValue
		e.reducePosition(portfolio, order)
	}

	if err := portfolio.Reconcile(); err != nil {
		e.log.Warning("%v", err)
	}
	if err := e.portfolios.SavePortfolio(ctx, portfolio); err != nil {
		e.log.LogError("persist portfolio after fill", err)
		return
	}
	if e.OnFill != nil {
		e.OnFill(order.PortfolioID)
	}
}

// reducePosition closes out long quantity on a sell fill, oldest first
func (e *Executor) reducePosition(portfolio *types.Portfolio, order *types.Order) {
	remaining := order.FilledQty
	for _, p := range portfolio.Positions {
		if remaining <= 0 {
			break
		}
		if !p.IsOpen() || p.Symbol != order.Symbol || p.Side != types.PositionLong {
			continue
		}
		if p.Quantity <= remaining {
			remaining -= p.Quantity
			p.Close(order.FilledPrice, time.Now())
		} else {
			p.Quantity -= remaining
			p.MarkToMarket(order.FilledPrice)
			remaining = 0
		}
	}
}

func (e *Executor) stopMonitor(orderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inf, ok := e.inflight[orderID]; ok {
		inf.cancel()
		delete(e.inflight, orderID)
	}
}

// InflightCount reports how many monitor tasks are running
func (e *Executor) InflightCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inflight)
}

// Close cancels every monitor task and armed watcher, then waits for
// them to exit. A broker call that outlives shutdown has its result
// discarded.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	for _, inf := range e.inflight {
		inf.cancel()
	}
	for w := range e.watchers {
		w.cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}
