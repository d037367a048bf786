package monitor

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/options-risk-engine/pkg/id"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// criticalFactor marks the point where a breach stops being a warning
// and becomes a fire.
const criticalFactor = 1.5

// Monitor compares portfolio risk metrics against configured limits
// and produces tiered alerts. Evaluation is a pure comparison: a limit
// breach is an expected, monitored condition, never an error.
type Monitor struct {
	log *logger.Logger
}

// New creates a portfolio risk monitor
func New(log *logger.Logger) *Monitor {
	return &Monitor{log: log}
}

// Evaluate checks every limit and emits exactly one alert per breached
// metric. Severity escalates with how far past the limit the metric
// is: past the limit is high, past 1.5x the limit (or any drawdown
// breach) is critical.
func (m *Monitor) Evaluate(portfolio *types.Portfolio, metrics types.RiskMetrics, limits types.RiskLimits) []types.Alert {
	var alerts []types.Alert
	now := time.Now()
	totalValue := portfolio.TotalValue

	if limits.MaxPortfolioVaR > 0 && metrics.VaR95 > limits.MaxPortfolioVaR {
		alerts = append(alerts, m.newAlert(portfolio.ID, types.AlertPortfolio, now,
			"var95", metrics.VaR95, limits.MaxPortfolioVaR,
			fmt.Sprintf("portfolio VaR95 $%.0f exceeds limit $%.0f", metrics.VaR95, limits.MaxPortfolioVaR),
			"Reduce position sizes or hedge directional exposure",
		))
	}

	if limits.MaxDrawdown > 0 && metrics.MaxDrawdown > limits.MaxDrawdown {
		alert := m.newAlert(portfolio.ID, types.AlertPortfolio, now,
			"max_drawdown", metrics.MaxDrawdown, limits.MaxDrawdown,
			fmt.Sprintf("drawdown %.1f%% exceeds limit %.1f%%", metrics.MaxDrawdown*100, limits.MaxDrawdown*100),
			"Halt new entries and review open positions",
		)
		// A drawdown breach is always critical: capital is already gone.
		alert.Severity = types.SeverityCritical
		alerts = append(alerts, alert)
	}

	if limits.MaxBeta > 0 && metrics.Beta > limits.MaxBeta {
		alerts = append(alerts, m.newAlert(portfolio.ID, types.AlertPortfolio, now,
			"beta", metrics.Beta, limits.MaxBeta,
			fmt.Sprintf("portfolio beta %.2f exceeds limit %.2f", metrics.Beta, limits.MaxBeta),
			"Add market-neutral or inverse exposure",
		))
	}

	if limits.MaxSectorExposure > 0 && metrics.ConcentrationRisk > limits.MaxSectorExposure {
		alerts = append(alerts, m.newAlert(portfolio.ID, types.AlertPortfolio, now,
			"concentration", metrics.ConcentrationRisk, limits.MaxSectorExposure,
			fmt.Sprintf("largest exposure is %.1f%% of portfolio, limit %.1f%%",
				metrics.ConcentrationRisk*100, limits.MaxSectorExposure*100),
			"Diversify away from the dominant name",
		))
	}

	if limits.MaxLiquidityRisk > 0 && metrics.LiquidityRisk > limits.MaxLiquidityRisk {
		alerts = append(alerts, m.newAlert(portfolio.ID, types.AlertPortfolio, now,
			"liquidity", metrics.LiquidityRisk, limits.MaxLiquidityRisk,
			fmt.Sprintf("illiquid exposure is %.1f%% of portfolio, limit %.1f%%",
				metrics.LiquidityRisk*100, limits.MaxLiquidityRisk*100),
			"Rotate option exposure into more liquid strikes",
		))
	}

	if limits.MaxGreeksScore > 0 && metrics.GreeksRiskScore > limits.MaxGreeksScore {
		alerts = append(alerts, m.newAlert(portfolio.ID, types.AlertPortfolio, now,
			"greeks_score", metrics.GreeksRiskScore, limits.MaxGreeksScore,
			fmt.Sprintf("Greeks risk score %.1f exceeds limit %.1f", metrics.GreeksRiskScore, limits.MaxGreeksScore),
			"Hedge delta or roll short-dated options to cut sensitivity",
		))
	}

	if limits.MaxStrategyExposure > 0 && totalValue > 0 {
		byStrategy := make(map[string]float64)
		for _, p := range portfolio.OpenPositions() {
			if p.StrategyID == "" {
				continue
			}
			byStrategy[p.StrategyID] += p.MarketValue()
		}
		for strategy, exposure := range byStrategy {
			share := exposure / totalValue
			if share <= limits.MaxStrategyExposure {
				continue
			}
			alerts = append(alerts, m.newAlert(portfolio.ID, types.AlertPortfolio, now,
				"strategy_exposure:"+strategy, share, limits.MaxStrategyExposure,
				fmt.Sprintf("strategy %s holds %.1f%% of portfolio, limit %.1f%%",
					strategy, share*100, limits.MaxStrategyExposure*100),
				fmt.Sprintf("Reduce allocations driven by strategy %s", strategy),
			))
		}
	}

	if limits.MaxPositionSize > 0 && totalValue > 0 {
		for _, p := range portfolio.OpenPositions() {
			share := p.MarketValue() / totalValue
			if share <= limits.MaxPositionSize {
				continue
			}
			alerts = append(alerts, m.newAlert(portfolio.ID, types.AlertPosition, now,
				"position_size:"+p.Symbol, share, limits.MaxPositionSize,
				fmt.Sprintf("%s is %.1f%% of portfolio, limit %.1f%%", p.Symbol, share*100, limits.MaxPositionSize*100),
				fmt.Sprintf("Trim %s to restore concentration limits", p.Symbol),
			))
		}
	}

	if limits.MaxLeverage > 0 && portfolio.CashBalance > 0 {
		gross := 0.0
		for _, p := range portfolio.OpenPositions() {
			gross += p.MarketValue()
		}
		leverage := gross / portfolio.CashBalance
		if leverage > limits.MaxLeverage {
			alerts = append(alerts, m.newAlert(portfolio.ID, types.AlertPortfolio, now,
				"leverage", leverage, limits.MaxLeverage,
				fmt.Sprintf("leverage %.2fx exceeds limit %.2fx", leverage, limits.MaxLeverage),
				"Close positions or add cash to deleverage",
			))
		}
	}

	for _, alert := range alerts {
		m.log.Alert("[%s] %s (%s: %.4f vs %.4f)",
			alert.Severity, alert.Message, alert.Metric, alert.CurrentValue, alert.Threshold)
		monitoring.RecordAlert(string(alert.Severity))
	}
	return alerts
}

func (m *Monitor) newAlert(portfolioID string, kind types.AlertType, now time.Time, metric string, current, threshold float64, message, recommendation string) types.Alert {
	return types.Alert{
		ID:              id.New(),
		PortfolioID:     portfolioID,
		Type:            kind,
		Severity:        severityFor(current, threshold),
		Message:         message,
		Metric:          metric,
		CurrentValue:    current,
		Threshold:       threshold,
		Recommendations: []string{recommendation},
		CreatedAt:       now,
	}
}

// severityFor grades a breach by how far past the limit it is
func severityFor(current, threshold float64) types.AlertSeverity {
	if threshold <= 0 {
		return types.SeverityMedium
	}
	ratio := current / threshold
	switch {
	case ratio >= criticalFactor:
		return types.SeverityCritical
	case ratio > 1:
		return types.SeverityHigh
	default:
		return types.SeverityMedium
	}
}
