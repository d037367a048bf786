package sizing

import (
	"time"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// StrategyParams holds the per-strategy sizing constants. Adding a
// strategy is an edit to this table, not a new type.
type StrategyParams struct {
	RiskPerTrade   float64       // Fraction of portfolio value risked per trade
	IdealMoneyness float64       // Target underlying/strike ratio
	Validity       time.Duration // How long a signal for this strategy stays actionable
	MaxAllocation  float64       // Strategy-specific cap as fraction of portfolio value
}

var strategyTable = map[types.StrategyKind]StrategyParams{
	types.StrategyLongCallLEAPS: {
		RiskPerTrade:   0.08,
		IdealMoneyness: 1.10,
		Validity:       14 * 24 * time.Hour,
		MaxAllocation:  0.20,
	},
	types.StrategyCoveredCall: {
		RiskPerTrade:   0.05,
		IdealMoneyness: 0.95,
		Validity:       7 * 24 * time.Hour,
		MaxAllocation:  0.25,
	},
	types.StrategyProtectivePut: {
		RiskPerTrade:   0.03,
		IdealMoneyness: 1.05,
		Validity:       7 * 24 * time.Hour,
		MaxAllocation:  0.15,
	},
	types.StrategyIronCondor: {
		RiskPerTrade:   0.04,
		IdealMoneyness: 1.00,
		Validity:       5 * 24 * time.Hour,
		MaxAllocation:  0.15,
	},
}

// defaultParams applies to unknown strategy kinds: size cautiously
// rather than refusing to size at all.
var defaultParams = StrategyParams{
	RiskPerTrade:   0.02,
	IdealMoneyness: 1.00,
	Validity:       3 * 24 * time.Hour,
	MaxAllocation:  0.10,
}

// ParamsFor returns the sizing parameters for a strategy kind
func ParamsFor(kind types.StrategyKind) StrategyParams {
	if params, ok := strategyTable[kind]; ok {
		return params
	}
	return defaultParams
}
