package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

func testPortfolio() *types.Portfolio {
	return &types.Portfolio{
		ID:          "pf-1",
		CashBalance: 400_000,
		TotalValue:  1_000_000,
		Positions: []*types.Position{
			{ID: "pos-1", Symbol: "AAPL", Side: types.PositionLong, Quantity: 2000, EntryPrice: 150, CurrentPrice: 150},
			{ID: "pos-2", Symbol: "MSFT", Side: types.PositionLong, Quantity: 1000, EntryPrice: 300, CurrentPrice: 300},
		},
	}
}

func testLimits() types.RiskLimits {
	return types.RiskLimits{
		MaxPositionSize:     0.40,
		MaxSectorExposure:   0.30,
		MaxStrategyExposure: 0.25,
		MaxPortfolioVaR:     100_000,
		MaxDrawdown:         0.15,
		MaxBeta:             1.5,
		MaxLeverage:         2.0,
		MaxLiquidityRisk:    0.50,
		MaxGreeksScore:      8.0,
	}
}

func findAlert(alerts []types.Alert, metric string) *types.Alert {
	for i := range alerts {
		if alerts[i].Metric == metric {
			return &alerts[i]
		}
	}
	return nil
}

// TestEvaluate_NoBreaches tests that a healthy portfolio produces no alerts
func TestEvaluate_NoBreaches(t *testing.T) {
	m := New(logger.NewDiscard())

	alerts := m.Evaluate(testPortfolio(), types.RiskMetrics{
		PortfolioID: "pf-1",
		VaR95:       50_000,
		Beta:        1.1,
		MaxDrawdown: 0.05,
	}, testLimits())

	assert.Empty(t, alerts)
}

// TestEvaluate_VaRBreachIsHigh tests a single high-severity alert for a
// VaR breach under 1.5x the limit
func TestEvaluate_VaRBreachIsHigh(t *testing.T) {
	m := New(logger.NewDiscard())

	alerts := m.Evaluate(testPortfolio(), types.RiskMetrics{
		PortfolioID: "pf-1",
		VaR95:       120_000, // 1.2x the 100k limit
		Beta:        1.0,
	}, testLimits())

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, "var95", alert.Metric)
	assert.Equal(t, types.SeverityHigh, alert.Severity)
	assert.Equal(t, 120_000.0, alert.CurrentValue)
	assert.Equal(t, 100_000.0, alert.Threshold)
	assert.NotEmpty(t, alert.Recommendations)
}

// TestEvaluate_FarBreachIsCritical tests escalation at 1.5x the limit
func TestEvaluate_FarBreachIsCritical(t *testing.T) {
	m := New(logger.NewDiscard())

	alerts := m.Evaluate(testPortfolio(), types.RiskMetrics{
		PortfolioID: "pf-1",
		VaR95:       150_000, // Exactly 1.5x
		Beta:        1.0,
	}, testLimits())

	require.Len(t, alerts, 1)
	assert.Equal(t, types.SeverityCritical, alerts[0].Severity)
}

// TestEvaluate_DrawdownAlwaysCritical tests that any drawdown breach is
// critical regardless of distance past the limit
func TestEvaluate_DrawdownAlwaysCritical(t *testing.T) {
	m := New(logger.NewDiscard())

	alerts := m.Evaluate(testPortfolio(), types.RiskMetrics{
		PortfolioID: "pf-1",
		MaxDrawdown: 0.16, // Barely past 0.15
		Beta:        1.0,
	}, testLimits())

	require.Len(t, alerts, 1)
	assert.Equal(t, "max_drawdown", alerts[0].Metric)
	assert.Equal(t, types.SeverityCritical, alerts[0].Severity)
}

// TestEvaluate_PositionConcentration tests per-symbol position alerts
func TestEvaluate_PositionConcentration(t *testing.T) {
	m := New(logger.NewDiscard())

	// AAPL is 600k of a 1M portfolio with a 40% cap.
	pf := testPortfolio()
	pf.Positions[0].Quantity = 4000

	alerts := m.Evaluate(pf, types.RiskMetrics{PortfolioID: "pf-1", Beta: 1.0}, testLimits())

	alert := findAlert(alerts, "position_size:AAPL")
	require.NotNil(t, alert)
	assert.Equal(t, types.AlertPosition, alert.Type)
	assert.InDelta(t, 0.60, alert.CurrentValue, 1e-9)
	assert.Nil(t, findAlert(alerts, "position_size:MSFT"), "MSFT at 30% is within the cap")
}

// TestEvaluate_LeverageBreach tests the gross-exposure-over-cash check
func TestEvaluate_LeverageBreach(t *testing.T) {
	m := New(logger.NewDiscard())

	// Gross 600k over 200k cash is 3x against a 2x limit.
	pf := testPortfolio()
	pf.CashBalance = 200_000

	alerts := m.Evaluate(pf, types.RiskMetrics{PortfolioID: "pf-1", Beta: 1.0}, testLimits())

	alert := findAlert(alerts, "leverage")
	require.NotNil(t, alert)
	assert.InDelta(t, 3.0, alert.CurrentValue, 1e-9)
	assert.Equal(t, types.SeverityCritical, alert.Severity)
}

// TestEvaluate_OnePerBreachedMetric tests that several simultaneous
// breaches each produce exactly one alert
func TestEvaluate_OnePerBreachedMetric(t *testing.T) {
	m := New(logger.NewDiscard())

	alerts := m.Evaluate(testPortfolio(), types.RiskMetrics{
		PortfolioID: "pf-1",
		VaR95:       130_000,
		MaxDrawdown: 0.20,
		Beta:        1.8,
	}, testLimits())

	require.Len(t, alerts, 3)
	assert.NotNil(t, findAlert(alerts, "var95"))
	assert.NotNil(t, findAlert(alerts, "max_drawdown"))
	assert.NotNil(t, findAlert(alerts, "beta"))
}

// TestEvaluate_ZeroLimitsDisableChecks tests that unset limits never fire
func TestEvaluate_ZeroLimitsDisableChecks(t *testing.T) {
	m := New(logger.NewDiscard())

	alerts := m.Evaluate(testPortfolio(), types.RiskMetrics{
		PortfolioID: "pf-1",
		VaR95:       1_000_000,
		MaxDrawdown: 0.90,
		Beta:        5.0,
	}, types.RiskLimits{})

	assert.Empty(t, alerts)
}

// TestEvaluate_ConcentrationBreach tests the computed concentration
// score against the sector exposure cap
func TestEvaluate_ConcentrationBreach(t *testing.T) {
	m := New(logger.NewDiscard())

	alerts := m.Evaluate(testPortfolio(), types.RiskMetrics{
		PortfolioID:       "pf-1",
		Beta:              1.0,
		ConcentrationRisk: 0.36, // 1.2x the 0.30 cap
	}, testLimits())

	alert := findAlert(alerts, "concentration")
	require.NotNil(t, alert)
	assert.Equal(t, types.SeverityHigh, alert.Severity)
	assert.Equal(t, 0.36, alert.CurrentValue)
	assert.Equal(t, 0.30, alert.Threshold)
}

// TestEvaluate_LiquidityBreach tests the illiquid-exposure check
func TestEvaluate_LiquidityBreach(t *testing.T) {
	m := New(logger.NewDiscard())

	alerts := m.Evaluate(testPortfolio(), types.RiskMetrics{
		PortfolioID:   "pf-1",
		Beta:          1.0,
		LiquidityRisk: 0.80, // 1.6x the 0.50 cap
	}, testLimits())

	alert := findAlert(alerts, "liquidity")
	require.NotNil(t, alert)
	assert.Equal(t, types.SeverityCritical, alert.Severity)
}

// TestEvaluate_GreeksScoreBreach tests the aggregate Greeks band check
func TestEvaluate_GreeksScoreBreach(t *testing.T) {
	m := New(logger.NewDiscard())

	alerts := m.Evaluate(testPortfolio(), types.RiskMetrics{
		PortfolioID:     "pf-1",
		Beta:            1.0,
		GreeksRiskScore: 9.0,
	}, testLimits())

	alert := findAlert(alerts, "greeks_score")
	require.NotNil(t, alert)
	assert.Equal(t, types.SeverityHigh, alert.Severity)
	assert.Equal(t, 8.0, alert.Threshold)
}

// TestEvaluate_StrategyExposureBreach tests per-strategy exposure
// grouping against the strategy cap
func TestEvaluate_StrategyExposureBreach(t *testing.T) {
	m := New(logger.NewDiscard())

	// Both names sit at 30% of the portfolio against a 25% strategy cap,
	// but only AAPL is attributed to a strategy.
	pf := testPortfolio()
	pf.Positions[0].StrategyID = "covered-call"

	alerts := m.Evaluate(pf, types.RiskMetrics{PortfolioID: "pf-1", Beta: 1.0}, testLimits())

	alert := findAlert(alerts, "strategy_exposure:covered-call")
	require.NotNil(t, alert)
	assert.Equal(t, types.AlertPortfolio, alert.Type)
	assert.InDelta(t, 0.30, alert.CurrentValue, 1e-9)
	assert.Len(t, alerts, 1, "unattributed positions never count toward a strategy")
}

// TestEvaluate_IgnoresClosedPositions tests that closed positions do
// not count toward concentration
func TestEvaluate_IgnoresClosedPositions(t *testing.T) {
	m := New(logger.NewDiscard())

	pf := testPortfolio()
	pf.Positions[0].Quantity = 4000
	closed := time.Now()
	pf.Positions[0].CloseDate = &closed

	alerts := m.Evaluate(pf, types.RiskMetrics{PortfolioID: "pf-1", Beta: 1.0}, testLimits())
	assert.Nil(t, findAlert(alerts, "position_size:AAPL"))
}
