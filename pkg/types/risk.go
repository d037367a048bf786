package types

import "time"

// GreeksAggregate holds portfolio-level sums of option sensitivities
type GreeksAggregate struct {
	TotalDelta float64 `json:"total_delta"`
	TotalGamma float64 `json:"total_gamma"`
	TotalTheta float64 `json:"total_theta"`
	TotalVega  float64 `json:"total_vega"`
}

// StressResults holds P&L under synthetic market shocks
type StressResults struct {
	MarketDown10 float64 `json:"market_down_10"`
	MarketDown20 float64 `json:"market_down_20"`
	MarketUp10   float64 `json:"market_up_10"`
	MarketUp20   float64 `json:"market_up_20"`
	VolShock     float64 `json:"vol_shock"`
}

// RiskMetrics is an immutable risk snapshot for one portfolio. A new
// snapshot is produced each computation cycle; the latest-by-timestamp
// snapshot is authoritative.
type RiskMetrics struct {
	PortfolioID       string          `json:"portfolio_id"`
	VaR95             float64         `json:"var_95"`
	VaR99             float64         `json:"var_99"`
	ExpectedShortfall float64         `json:"expected_shortfall"`
	Beta              float64         `json:"beta"`
	CorrelationRisk   float64         `json:"correlation_risk"`
	ConcentrationRisk float64         `json:"concentration_risk"`
	LiquidityRisk     float64         `json:"liquidity_risk"`
	Greeks            GreeksAggregate `json:"greeks"`
	GreeksRiskScore   float64         `json:"greeks_risk_score"` // 0-10 band
	Stress            StressResults   `json:"stress"`
	Volatility        float64         `json:"volatility"`
	SharpeRatio       float64         `json:"sharpe_ratio"`
	SortinoRatio      float64         `json:"sortino_ratio"`
	CalmarRatio       float64         `json:"calmar_ratio"`
	MaxDrawdown       float64         `json:"max_drawdown"`
	Synthetic         bool            `json:"synthetic"` // Some return series were synthesized
	Degraded          bool            `json:"degraded"`  // Benchmark data was missing
	Timestamp         time.Time       `json:"timestamp"`
}

// RiskLimits is read-only configuration owned by an external
// configuration collaborator.
type RiskLimits struct {
	MaxPositionSize     float64 `yaml:"max_position_size" json:"max_position_size"`         // Fraction of portfolio value per symbol
	MaxSectorExposure   float64 `yaml:"max_sector_exposure" json:"max_sector_exposure"`     // Fraction of portfolio value per sector
	MaxStrategyExposure float64 `yaml:"max_strategy_exposure" json:"max_strategy_exposure"` // Fraction of portfolio value per strategy
	MaxPortfolioVaR     float64 `yaml:"max_portfolio_var" json:"max_portfolio_var"`         // Absolute dollar VaR95 ceiling
	MaxDrawdown         float64 `yaml:"max_drawdown" json:"max_drawdown"`                   // Fractional drawdown hard stop
	MaxBeta             float64 `yaml:"max_beta" json:"max_beta"`
	MaxLeverage         float64 `yaml:"max_leverage" json:"max_leverage"`
	MaxLiquidityRisk    float64 `yaml:"max_liquidity_risk" json:"max_liquidity_risk"` // Fraction of value in hard-to-exit instruments
	MaxGreeksScore      float64 `yaml:"max_greeks_score" json:"max_greeks_score"`     // 0-10 aggregate Greeks band
}

// AlertType categorizes what an alert is about
type AlertType string

const (
	AlertPosition  AlertType = "position"
	AlertPortfolio AlertType = "portfolio"
	AlertSystem    AlertType = "system"
)

// AlertSeverity grades how urgent an alert is
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Alert records a risk-limit breach. Limit breaches are expected,
// monitored conditions, not errors.
type Alert struct {
	ID              string        `json:"id"`
	PortfolioID     string        `json:"portfolio_id"`
	Type            AlertType     `json:"type"`
	Severity        AlertSeverity `json:"severity"`
	Message         string        `json:"message"`
	Metric          string        `json:"metric"`
	CurrentValue    float64       `json:"current_value"`
	Threshold       float64       `json:"threshold"`
	Recommendations []string      `json:"recommendations,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	Acknowledged    bool          `json:"acknowledged"`
}
