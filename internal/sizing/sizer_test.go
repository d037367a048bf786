package sizing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

func testSizer() *Sizer {
	return NewSizer(DefaultSizerConfig(), logger.NewDiscard())
}

func sizerPortfolio(cash float64) *types.Portfolio {
	return &types.Portfolio{
		ID:          "sizing-test",
		CashBalance: cash,
		TotalValue:  cash,
	}
}

func sizerLimits() types.RiskLimits {
	return types.RiskLimits{
		MaxPositionSize: 0.20,
		MaxPortfolioVaR: 100_000,
		MaxDrawdown:     0.15,
		MaxBeta:         1.5,
		MaxLeverage:     2.0,
	}
}

// TestSize_LeapsScenario tests the canonical leaps sizing: $1M cash,
// $10 instrument, confidence 8.0 -> 8000 bound by fixed-fractional
func TestSize_LeapsScenario(t *testing.T) {
	signal := types.Signal{
		Symbol:     "AAPL",
		Strategy:   types.StrategyLongCallLEAPS,
		Confidence: 8.0,
	}

	result := testSizer().Size(signal, sizerPortfolio(1_000_000), sizerLimits(), 10.0, 0)

	assert.Equal(t, int64(8000), result.Quantity)
	assert.Equal(t, int64(8000), result.Candidates["fixed_fractional"])
	assert.Equal(t, int64(8533), result.Candidates["confidence_weighted"])
	assert.Equal(t, int64(20000), result.Candidates["risk_limited"])
	assert.Contains(t, result.Rationale, "fixed_fractional")
}

// TestSize_ConservativeEnsemble tests that the final quantity never
// exceeds any individual model's candidate
func TestSize_ConservativeEnsemble(t *testing.T) {
	signals := []types.Signal{
		{Symbol: "AAPL", Strategy: types.StrategyLongCallLEAPS, Confidence: 10.0},
		{Symbol: "MSFT", Strategy: types.StrategyCoveredCall, Confidence: 2.0},
		{Symbol: "SPY", Strategy: types.StrategyIronCondor, Confidence: 7.5},
		{Symbol: "TSLA", Strategy: types.StrategyProtectivePut, Confidence: 5.0},
	}

	sizer := testSizer()
	for _, signal := range signals {
		result := sizer.Size(signal, sizerPortfolio(500_000), sizerLimits(), 25.0, 0.60)
		for model, candidate := range result.Candidates {
			assert.LessOrEqual(t, result.Quantity, candidate,
				"%s: final must not exceed the %s candidate", signal.Strategy, model)
		}
	}
}

// TestSize_ConfidenceClamping tests the 0.5x-2.0x confidence bounds
func TestSize_ConfidenceClamping(t *testing.T) {
	sizer := testSizer()
	pf := sizerPortfolio(1_000_000)
	limits := sizerLimits()

	// Confidence 0 clamps to half the fixed-fractional size.
	low := sizer.Size(types.Signal{Symbol: "A", Strategy: types.StrategyLongCallLEAPS, Confidence: 0}, pf, limits, 10.0, 0)
	assert.Equal(t, int64(4000), low.Candidates["confidence_weighted"])

	// Confidence 10 caps below 2x (10/7.5 = 1.33x).
	high := sizer.Size(types.Signal{Symbol: "A", Strategy: types.StrategyLongCallLEAPS, Confidence: 10}, pf, limits, 10.0, 0)
	assert.Equal(t, int64(10666), high.Candidates["confidence_weighted"])
}

// TestSize_CashLimitsQuantity tests that available cash binds before
// the concentration limit in a cash-poor portfolio
func TestSize_CashLimitsQuantity(t *testing.T) {
	pf := &types.Portfolio{
		ID:          "cash-poor",
		CashBalance: 5_000,
		TotalValue:  1_000_000,
		Positions: []*types.Position{{
			ID: "p1", Symbol: "MSFT", Kind: types.InstrumentEquity, Side: types.PositionLong,
			Quantity: 9950, EntryPrice: 100, CurrentPrice: 100, OpenDate: time.Now(),
		}},
	}
	signal := types.Signal{Symbol: "AAPL", Strategy: types.StrategyLongCallLEAPS, Confidence: 7.5}

	result := testSizer().Size(signal, pf, sizerLimits(), 10.0, 0)
	assert.Equal(t, int64(500), result.Quantity, "cash cap: 5000 / 10")
}

// TestSize_SymbolHeadroom tests that existing exposure in the signal's
// symbol shrinks the remaining allowance
func TestSize_SymbolHeadroom(t *testing.T) {
	pf := &types.Portfolio{
		ID:          "concentrated",
		CashBalance: 850_000,
		TotalValue:  1_000_000,
		Positions: []*types.Position{{
			ID: "p1", Symbol: "AAPL", Kind: types.InstrumentEquity, Side: types.PositionLong,
			Quantity: 1500, EntryPrice: 100, CurrentPrice: 100, OpenDate: time.Now(),
		}},
	}
	signal := types.Signal{Symbol: "AAPL", Strategy: types.StrategyLongCallLEAPS, Confidence: 7.5}

	// Headroom: 20% of 1M = 200k, minus 150k held = 50k -> 5000 @ $10.
	result := testSizer().Size(signal, pf, sizerLimits(), 10.0, 0)
	assert.Equal(t, int64(5000), result.Quantity)
	assert.Contains(t, result.Rationale, "symbol_headroom")
}

// TestSize_VolatilityDiscount tests that hot implied volatility shrinks size
func TestSize_VolatilityDiscount(t *testing.T) {
	signal := types.Signal{Symbol: "AAPL", Strategy: types.StrategyLongCallLEAPS, Confidence: 7.5}
	pf := sizerPortfolio(1_000_000)

	calm := testSizer().Size(signal, pf, sizerLimits(), 10.0, 0.20)
	hot := testSizer().Size(signal, pf, sizerLimits(), 10.0, 0.80)

	assert.Less(t, hot.Quantity, calm.Quantity)
	assert.Equal(t, int64(4000), hot.Candidates["vol_adjusted"], "0.40/0.80 discount halves the size")
}

// TestSize_InvalidPrice tests that a non-positive price sizes to zero
// with a rationale instead of erroring
func TestSize_InvalidPrice(t *testing.T) {
	signal := types.Signal{Symbol: "AAPL", Strategy: types.StrategyLongCallLEAPS, Confidence: 7.5}
	result := testSizer().Size(signal, sizerPortfolio(1_000_000), sizerLimits(), 0, 0)

	assert.Equal(t, int64(0), result.Quantity)
	assert.Contains(t, result.Rationale, "invalid instrument price")
}

// TestSize_UnknownStrategyUsesDefaults tests the fallback parameter row
func TestSize_UnknownStrategyUsesDefaults(t *testing.T) {
	signal := types.Signal{Symbol: "AAPL", Strategy: types.StrategyKind("exotic"), Confidence: 7.5}
	result := testSizer().Size(signal, sizerPortfolio(1_000_000), sizerLimits(), 10.0, 0)

	assert.Greater(t, result.Quantity, int64(0))
}
