package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/options-risk-engine/internal/broker"
	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/internal/marketdata"
	"github.com/ducminhle1904/options-risk-engine/internal/storage"
	"github.com/ducminhle1904/options-risk-engine/internal/validation"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

type executorHarness struct {
	executor *Executor
	primary  *broker.PaperGateway
	fallback *broker.PaperGateway
	market   *marketdata.StaticProvider
	store    *storage.MemoryStore
}

func newHarness(t *testing.T) *executorHarness {
	t.Helper()

	market := marketdata.NewStaticProvider()
	market.SetQuote(types.Quote{Symbol: "AAPL", Bid: 149.5, Ask: 150.5, Last: 150.0, Volume: 5_000_000})
	market.SetQuote(types.Quote{Symbol: "MSFT", Bid: 299.0, Ask: 301.0, Last: 300.0, Volume: 3_000_000})
	market.SetQuote(types.Quote{Symbol: "AAPL261218C00200000", Bid: 4.9, Ask: 5.1, Last: 5.0, Volume: 2_000})

	primary := broker.NewPaperGateway("primary", market.GetQuote)
	fallback := broker.NewPaperGateway("fallback", market.GetQuote)

	registry := broker.NewRegistry()
	require.NoError(t, registry.Register(types.InstrumentEquity, primary, fallback))
	require.NoError(t, registry.Register(types.InstrumentOption, primary, fallback))

	store := storage.NewMemoryStore()
	require.NoError(t, store.SavePortfolio(context.Background(), &types.Portfolio{
		ID:          "exec-test",
		CashBalance: 1_000_000,
		TotalValue:  1_000_000,
	}))

	validator := validation.NewValidator(validation.DefaultConfig(), market)
	executor := NewExecutor(Config{
		PollInterval:      2 * time.Millisecond,
		MonitorTimeout:    time.Second,
		SlippageTolerance: 0.01,
		MarketHoursOnly:   true,
	}, registry, validator, market, store, store, logger.NewDiscard())
	t.Cleanup(executor.Close)

	return &executorHarness{
		executor: executor,
		primary:  primary,
		fallback: fallback,
		market:   market,
		store:    store,
	}
}

func (h *executorHarness) waitForStatus(t *testing.T, orderID string, status types.OrderStatus) *types.Order {
	t.Helper()
	var last *types.Order
	require.Eventually(t, func() bool {
		order, err := h.store.GetOrder(context.Background(), orderID)
		if err != nil {
			return false
		}
		last = order
		return order.Status == status
	}, 2*time.Second, 2*time.Millisecond, "order never reached %s (last: %+v)", status, last)
	return last
}

func buyRequest(symbol string, qty int64) types.OrderRequest {
	return types.OrderRequest{
		Symbol:      symbol,
		Side:        types.OrderBuy,
		Quantity:    qty,
		Kind:        types.OrderMarket,
		TimeInForce: types.TIFDay,
		PortfolioID: "exec-test",
	}
}

// TestSubmit_FillsAndMutatesPortfolio tests the full submit -> monitor
// -> fill -> portfolio mutation path
func TestSubmit_FillsAndMutatesPortfolio(t *testing.T) {
	h := newHarness(t)

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 100))
	require.NoError(t, err)
	assert.Equal(t, types.OrderPending, order.Status)
	assert.Equal(t, "primary", order.Broker)

	filled := h.waitForStatus(t, order.ID, types.OrderFilled)
	assert.Equal(t, int64(100), filled.FilledQty)
	assert.Equal(t, 150.0, filled.FilledPrice)
	assert.NotNil(t, filled.FilledAt)

	require.Eventually(t, func() bool {
		pf, err := h.store.GetPortfolio(context.Background(), "exec-test")
		return err == nil && len(pf.OpenPositions()) == 1
	}, 2*time.Second, 2*time.Millisecond)

	pf, err := h.store.GetPortfolio(context.Background(), "exec-test")
	require.NoError(t, err)
	assert.Equal(t, 1_000_000.0-100*150.0, pf.CashBalance)
	assert.Equal(t, "AAPL", pf.OpenPositions()[0].Symbol)
}

// TestSubmit_InvalidNeverReachesBroker tests that validation failures
// stop before submission
func TestSubmit_InvalidNeverReachesBroker(t *testing.T) {
	h := newHarness(t)

	_, err := h.executor.Submit(context.Background(), buyRequest("AAPL", -10))
	assert.Error(t, err)
	assert.Equal(t, 0, h.executor.InflightCount())
}

// TestSubmit_FallbackGateway tests that exactly one fallback is tried
// when the primary fails
func TestSubmit_FallbackGateway(t *testing.T) {
	h := newHarness(t)
	h.primary.FailSubmissions = true

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 10))
	require.NoError(t, err)
	assert.Equal(t, "fallback", order.Broker)

	h.waitForStatus(t, order.ID, types.OrderFilled)
}

// TestSubmit_BothGatewaysFail tests the rejected-plus-error contract
func TestSubmit_BothGatewaysFail(t *testing.T) {
	h := newHarness(t)
	h.primary.FailSubmissions = true
	h.fallback.FailSubmissions = true

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 10))
	assert.Error(t, err)
	require.NotNil(t, order, "rejected order must still come back for audit")
	assert.Equal(t, types.OrderRejected, order.Status)

	stored, err := h.store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderRejected, stored.Status)
}

// TestSubmit_PartialFillPath tests partially_filled -> filled ordering
func TestSubmit_PartialFillPath(t *testing.T) {
	h := newHarness(t)
	h.primary.PartialFirst = true

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 100))
	require.NoError(t, err)

	filled := h.waitForStatus(t, order.ID, types.OrderFilled)
	assert.Equal(t, int64(100), filled.FilledQty)
}

// TestSubmit_OptionMarketOrderConverts tests the market->limit
// execution optimization on options
func TestSubmit_OptionMarketOrderConverts(t *testing.T) {
	h := newHarness(t)

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL261218C00200000", 10))
	require.NoError(t, err)

	assert.Equal(t, types.OrderLimit, order.Kind)
	assert.InDelta(t, 5.0*1.01, order.LimitPrice, 1e-9)
	assert.NotEmpty(t, order.Warnings)
}

// TestSubmit_ClosedMarketSwitchesTIF tests the good-till-cancelled
// switch when the session is closed
func TestSubmit_ClosedMarketSwitchesTIF(t *testing.T) {
	h := newHarness(t)
	h.market.SetMarketHours(types.MarketHours{IsOpen: false, NextOpen: time.Now().Add(12 * time.Hour)})

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 10))
	require.NoError(t, err)
	assert.Equal(t, types.TIFGoodTillCancelled, order.TimeInForce)
}

// TestCancel_PendingOrder tests cancellation of an unfilled order
func TestCancel_PendingOrder(t *testing.T) {
	h := newHarness(t)
	h.primary.FillDelayPolls = 1_000_000 // Never fills during the test

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 10))
	require.NoError(t, err)

	require.NoError(t, h.executor.Cancel(context.Background(), order.ID))
	stored, err := h.store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderCancelled, stored.Status)
}

// TestCancel_TerminalOrderIsError tests that cancelling a terminal
// order is a no-op error
func TestCancel_TerminalOrderIsError(t *testing.T) {
	h := newHarness(t)

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 10))
	require.NoError(t, err)
	h.waitForStatus(t, order.ID, types.OrderFilled)

	err = h.executor.Cancel(context.Background(), order.ID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already filled")
}

// TestMonitor_TimeoutCancels tests that an order stuck past the
// monitor timeout is cancelled at the broker
func TestMonitor_TimeoutCancels(t *testing.T) {
	h := newHarness(t)
	h.primary.FillDelayPolls = 1_000_000
	h.executor.config.MonitorTimeout = 20 * time.Millisecond

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 10))
	require.NoError(t, err)

	h.waitForStatus(t, order.ID, types.OrderCancelled)
}

// TestMonitor_TimeoutCancelFailureRejects tests the rejected terminal
// state when the timeout cancellation itself fails
func TestMonitor_TimeoutCancelFailureRejects(t *testing.T) {
	h := newHarness(t)
	h.primary.FillDelayPolls = 1_000_000
	h.primary.FailCancels = true
	h.executor.config.MonitorTimeout = 20 * time.Millisecond

	order, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 10))
	require.NoError(t, err)

	h.waitForStatus(t, order.ID, types.OrderRejected)
}

// TestExecuteSpread_AllLegsFill tests the happy multi-leg path
func TestExecuteSpread_AllLegsFill(t *testing.T) {
	h := newHarness(t)

	orders, err := h.executor.ExecuteSpread(context.Background(), []types.OrderRequest{
		buyRequest("AAPL", 10),
		buyRequest("MSFT", 10),
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	for _, order := range orders {
		h.waitForStatus(t, order.ID, types.OrderFilled)
	}
}

// TestExecuteSpread_UnwindsOnLegFailure tests the all-or-nothing
// contract: a failed leg cancels its siblings
func TestExecuteSpread_UnwindsOnLegFailure(t *testing.T) {
	h := newHarness(t)
	h.primary.FillDelayPolls = 1_000_000 // Keep surviving legs pending
	h.fallback.FailSubmissions = true

	orders, err := h.executor.ExecuteSpread(context.Background(), []types.OrderRequest{
		buyRequest("AAPL", 10),
		buyRequest("UNKNOWN", 10), // No quote: fails validation inside Submit
	})
	assert.Error(t, err)

	for _, order := range orders {
		stored, gerr := h.store.GetOrder(context.Background(), order.ID)
		require.NoError(t, gerr)
		assert.True(t, stored.Status.IsTerminal(), "leg %s left in %s", order.ID, stored.Status)
	}
}

// TestWatch_ConditionFires tests the conditional order watcher
// submitting once the threshold crosses
func TestWatch_ConditionFires(t *testing.T) {
	h := newHarness(t)

	watcher, err := h.executor.Watch(context.Background(), buyRequest("AAPL", 10), Condition{
		Symbol:    "MSFT",
		Threshold: 310.0,
		Direction: TriggerAbove,
	})
	require.NoError(t, err)

	// Move the quote through the threshold.
	h.market.SetQuote(types.Quote{Symbol: "MSFT", Bid: 314.0, Ask: 316.0, Last: 315.0, Volume: 1_000_000})

	order, werr := watcher.Result()
	require.NoError(t, werr)
	require.NotNil(t, order)
	assert.Equal(t, "AAPL", order.Symbol)
}

// TestWatch_Cancellable tests that a cancelled watcher never submits
func TestWatch_Cancellable(t *testing.T) {
	h := newHarness(t)

	watcher, err := h.executor.Watch(context.Background(), buyRequest("AAPL", 10), Condition{
		Symbol:    "MSFT",
		Threshold: 1_000.0,
		Direction: TriggerAbove,
	})
	require.NoError(t, err)

	watcher.Cancel()
	order, werr := watcher.Result()
	assert.Nil(t, order)
	assert.ErrorIs(t, werr, context.Canceled)
}

// TestClose_StopsArmedWatchers tests that shutdown cancels watchers
// whose conditions never fire instead of waiting on them forever
func TestClose_StopsArmedWatchers(t *testing.T) {
	h := newHarness(t)

	watcher, err := h.executor.Watch(context.Background(), buyRequest("AAPL", 10), Condition{
		Symbol:    "MSFT",
		Threshold: 1_000.0,
		Direction: TriggerAbove,
	})
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		h.executor.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return while a watcher was armed")
	}

	order, werr := watcher.Result()
	assert.Nil(t, order)
	assert.ErrorIs(t, werr, context.Canceled)

	_, err = h.executor.Watch(context.Background(), buyRequest("AAPL", 10), Condition{
		Symbol:    "MSFT",
		Threshold: 1_000.0,
		Direction: TriggerAbove,
	})
	require.Error(t, err)
}

// TestSellFill_ClosesPosition tests that a sell fill returns cash and
// closes out the long
func TestSellFill_ClosesPosition(t *testing.T) {
	h := newHarness(t)

	buy, err := h.executor.Submit(context.Background(), buyRequest("AAPL", 100))
	require.NoError(t, err)
	h.waitForStatus(t, buy.ID, types.OrderFilled)
	require.Eventually(t, func() bool {
		pf, _ := h.store.GetPortfolio(context.Background(), "exec-test")
		return pf != nil && len(pf.OpenPositions()) == 1
	}, 2*time.Second, 2*time.Millisecond)

	sellReq := buyRequest("AAPL", 100)
	sellReq.Side = types.OrderSell
	sell, err := h.executor.Submit(context.Background(), sellReq)
	require.NoError(t, err)
	h.waitForStatus(t, sell.ID, types.OrderFilled)

	require.Eventually(t, func() bool {
		pf, _ := h.store.GetPortfolio(context.Background(), "exec-test")
		return pf != nil && len(pf.OpenPositions()) == 0
	}, 2*time.Second, 2*time.Millisecond)

	pf, err := h.store.GetPortfolio(context.Background(), "exec-test")
	require.NoError(t, err)
	assert.Equal(t, 1_000_000.0, pf.CashBalance, "round trip at a flat price restores cash")
}
