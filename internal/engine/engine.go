package engine

import (
	"context"
	"time"

	"github.com/ducminhle1904/options-risk-engine/internal/errors"
	"github.com/ducminhle1904/options-risk-engine/internal/execution"
	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/internal/marketdata"
	"github.com/ducminhle1904/options-risk-engine/internal/monitor"
	"github.com/ducminhle1904/options-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/options-risk-engine/internal/risk"
	"github.com/ducminhle1904/options-risk-engine/internal/sizing"
	"github.com/ducminhle1904/options-risk-engine/internal/storage"
	"github.com/ducminhle1904/options-risk-engine/internal/validation"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// historyWindow is how many daily bars feed the risk calculation
const historyWindow = 252

// Engine is the facade over sizing, validation, execution, risk, and
// monitoring. It owns no business rules of its own: each call loads
// state, delegates to the owning component, and persists the result.
type Engine struct {
	sizer      *sizing.Sizer
	validator  *validation.Validator
	executor   *execution.Executor
	calculator *risk.Calculator
	monitor    *monitor.Monitor
	alerts     *monitor.AlertManager
	collector  *marketdata.Collector
	market     marketdata.Provider
	store      storage.Store
	limits     types.RiskLimits
	benchmark  string
	health     *monitoring.HealthChecker
	log        *logger.Logger
}

// Deps carries the wired components into the engine
type Deps struct {
	Sizer      *sizing.Sizer
	Validator  *validation.Validator
	Executor   *execution.Executor
	Calculator *risk.Calculator
	Monitor    *monitor.Monitor
	Alerts     *monitor.AlertManager
	Collector  *marketdata.Collector
	Market     marketdata.Provider
	Store      storage.Store
	Limits     types.RiskLimits
	Benchmark  string
	Health     *monitoring.HealthChecker
	Log        *logger.Logger
}

// New assembles the engine. Fills invalidate the risk cache so the
// next risk call reflects the new position set.
func New(deps Deps) *Engine {
	e := &Engine{
		sizer:      deps.Sizer,
		validator:  deps.Validator,
		executor:   deps.Executor,
		calculator: deps.Calculator,
		monitor:    deps.Monitor,
		alerts:     deps.Alerts,
		collector:  deps.Collector,
		market:     deps.Market,
		store:      deps.Store,
		limits:     deps.Limits,
		benchmark:  deps.Benchmark,
		health:     deps.Health,
		log:        deps.Log,
	}
	e.executor.OnFill = func(portfolioID string) {
		e.calculator.Invalidate(portfolioID)
	}
	return e
}

// SizePosition recommends an order quantity for a signal against the
// current portfolio. A zero quantity with a rationale is a valid
// answer, not an error.
func (e *Engine) SizePosition(ctx context.Context, signal types.Signal, portfolioID string) (sizing.SizingResult, error) {
	portfolio, err := e.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return sizing.SizingResult{}, errors.Wrap(err, errors.ErrorCategoryValidation, "engine", "SizePosition")
	}

	quote, err := e.market.GetQuote(ctx, signal.Symbol)
	if err != nil {
		return sizing.SizingResult{}, errors.NewDataUnavailableError("engine", "SizePosition",
			"no quote for "+signal.Symbol+": "+err.Error())
	}

	result := e.sizer.Size(signal, portfolio, e.limits, quote.Mid(), quote.ImpliedVolatility)
	e.log.Info("Sized %s signal for %s: %d (%s)", signal.Strategy, signal.Symbol, result.Quantity, result.Rationale)
	return result, nil
}

// ValidateOrder runs the full validation stack without submitting
func (e *Engine) ValidateOrder(ctx context.Context, req types.OrderRequest) (validation.Result, error) {
	portfolio, err := e.store.GetPortfolio(ctx, req.PortfolioID)
	if err != nil {
		return validation.Result{}, errors.Wrap(err, errors.ErrorCategoryValidation, "engine", "ValidateOrder")
	}
	return e.validator.Validate(ctx, req, portfolio), nil
}

// SubmitOrder validates and submits an order for execution
func (e *Engine) SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	order, err := e.executor.Submit(ctx, req)
	if order != nil {
		e.health.RecordOrder()
	}
	return order, err
}

// CancelOrder cancels a pending order by id
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	return e.executor.Cancel(ctx, orderID)
}

// GetOrder returns the current state of an order
func (e *Engine) GetOrder(ctx context.Context, orderID string) (*types.Order, error) {
	return e.store.GetOrder(ctx, orderID)
}

// ListOrders returns all orders for a portfolio
func (e *Engine) ListOrders(ctx context.Context, portfolioID string) ([]*types.Order, error) {
	return e.store.ListOrders(ctx, portfolioID)
}

// GetPortfolio returns the current portfolio state
func (e *Engine) GetPortfolio(ctx context.Context, portfolioID string) (*types.Portfolio, error) {
	return e.store.GetPortfolio(ctx, portfolioID)
}

// GetPortfolioRisk marks the portfolio to market, gathers the history
// window for every open symbol plus the benchmark, and computes the
// full risk snapshot. The snapshot is persisted and exported as
// metrics before returning.
func (e *Engine) GetPortfolioRisk(ctx context.Context, portfolioID string) (types.RiskMetrics, error) {
	portfolio, err := e.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return types.RiskMetrics{}, errors.Wrap(err, errors.ErrorCategoryValidation, "engine", "GetPortfolioRisk")
	}

	e.markToMarket(ctx, portfolio)

	symbols := make([]string, 0, len(portfolio.Positions)+1)
	for _, p := range portfolio.OpenPositions() {
		symbols = append(symbols, p.Symbol)
	}
	symbols = append(symbols, e.benchmark)
	history := e.collector.CollectBars(ctx, symbols, historyWindow)

	metrics, err := e.calculator.Compute(ctx, portfolio, history)
	if err != nil {
		return types.RiskMetrics{}, err
	}

	if err := e.store.SaveMetrics(ctx, metrics); err != nil {
		e.log.LogError("persist risk metrics", err)
	}
	if err := e.store.SavePortfolio(ctx, portfolio); err != nil {
		e.log.LogError("persist marked portfolio", err)
	}
	monitoring.RecordPortfolioRisk(portfolioID, metrics.VaR95, portfolio.TotalValue)
	e.health.RecordRiskCheck()
	return metrics, nil
}

// GetActiveAlerts returns unacknowledged alerts, newest first
func (e *Engine) GetActiveAlerts(ctx context.Context, portfolioID string) ([]*types.Alert, error) {
	return e.alerts.Active(ctx, portfolioID)
}

// AcknowledgeAlert marks an alert handled
func (e *Engine) AcknowledgeAlert(ctx context.Context, alertID string) error {
	return e.alerts.Acknowledge(ctx, alertID)
}

// RunMonitorCycle computes risk for one portfolio, evaluates it
// against the limits, raises any alerts, and evicts expired ones.
// This is the body of the periodic monitor loop.
func (e *Engine) RunMonitorCycle(ctx context.Context, portfolioID string) error {
	metrics, err := e.GetPortfolioRisk(ctx, portfolioID)
	if err != nil {
		return err
	}

	portfolio, err := e.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return errors.Wrap(err, errors.ErrorCategoryValidation, "engine", "RunMonitorCycle")
	}

	alerts := e.monitor.Evaluate(portfolio, metrics, e.limits)
	if len(alerts) > 0 {
		if err := e.alerts.Raise(ctx, alerts); err != nil {
			return err
		}
	}
	return e.alerts.Evict(ctx)
}

// MonitorLoop runs monitor cycles on a fixed interval until ctx ends
func (e *Engine) MonitorLoop(ctx context.Context, portfolioID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.Info("Risk monitor loop started for portfolio %s (every %s)", portfolioID, interval)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("Risk monitor loop stopped for portfolio %s", portfolioID)
			return
		case <-ticker.C:
			if err := e.RunMonitorCycle(ctx, portfolioID); err != nil {
				e.log.LogError("monitor cycle", err)
				e.health.RecordHealthError(err.Error())
			}
		}
	}
}

// markToMarket refreshes current prices on open positions. A symbol
// with no quote keeps its last price rather than failing the whole
// risk computation.
func (e *Engine) markToMarket(ctx context.Context, portfolio *types.Portfolio) {
	for _, p := range portfolio.OpenPositions() {
		quote, err := e.market.GetQuote(ctx, p.Symbol)
		if err != nil || quote.Mid() <= 0 {
			continue
		}
		p.MarkToMarket(quote.Mid())
	}
	if err := portfolio.Reconcile(); err != nil {
		e.log.Warning("%v", err)
	}
}

// Close shuts down the execution layer
func (e *Engine) Close() {
	e.executor.Close()
}
