package sizing

import (
	"fmt"
	"math"
	"strings"

	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// SizingResult carries the final quantity and the audit trace behind
// it. The rationale is a first-class output: operators must be able to
// see which model bound the size. Zero quantity is a valid result.
type SizingResult struct {
	Quantity  int64
	Rationale string
	// Candidates records each model's output for the conservative-
	// ensemble invariant: the final quantity never exceeds any of them.
	Candidates map[string]int64
}

// SizerConfig tunes the position sizer
type SizerConfig struct {
	// ReferenceIV is the implied volatility above which the
	// volatility-adjusted model starts discounting size.
	ReferenceIV float64
}

// DefaultSizerConfig returns the standard sizer tuning
func DefaultSizerConfig() SizerConfig {
	return SizerConfig{ReferenceIV: 0.40}
}

// Sizer combines several independent sizing models and takes the most
// conservative result. Any single model vetoing large size wins.
type Sizer struct {
	config SizerConfig
	log    *logger.Logger
}

// NewSizer creates a position sizer
func NewSizer(config SizerConfig, log *logger.Logger) *Sizer {
	return &Sizer{config: config, log: log}
}

// Size produces a bounded order quantity for a signal. instrumentPrice
// is the per-unit price of what would actually be bought; impliedVol
// may be zero when unknown (disables the volatility adjustment).
func (s *Sizer) Size(signal types.Signal, portfolio *types.Portfolio, limits types.RiskLimits, instrumentPrice, impliedVol float64) SizingResult {
	if instrumentPrice <= 0 {
		return SizingResult{
			Quantity:   0,
			Rationale:  fmt.Sprintf("no size: invalid instrument price %.4f", instrumentPrice),
			Candidates: map[string]int64{},
		}
	}

	params := ParamsFor(signal.Strategy)
	value := portfolio.TotalValue

	candidates := make(map[string]int64, 4)
	var trace []string

	// Model 1: fixed-fractional on the per-strategy risk constant.
	fixed := int64(math.Floor(value * params.RiskPerTrade / instrumentPrice))
	candidates["fixed_fractional"] = fixed
	trace = append(trace, fmt.Sprintf("fixed-fractional(risk=%.2f%%): %d", params.RiskPerTrade*100, fixed))

	// Model 2: confidence-weighted. Confidence 7.5 on the 0-10 scale is
	// neutral; weaker signals halve, stronger ones at most double.
	weight := clamp(signal.Confidence/7.5, 0.5, 2.0)
	confWeighted := int64(math.Floor(value * params.RiskPerTrade * weight / instrumentPrice))
	candidates["confidence_weighted"] = confWeighted
	trace = append(trace, fmt.Sprintf("confidence-weighted(conf=%.1f, scale=%.4f): %d", signal.Confidence, weight, confWeighted))

	// Model 3: risk-limit-constrained, the minimum of four sub-limits.
	riskLimited, binding := s.riskLimitedQuantity(signal, portfolio, limits, params, instrumentPrice)
	candidates["risk_limited"] = riskLimited
	trace = append(trace, fmt.Sprintf("risk-limited(%s): %d", binding, riskLimited))

	// Model 4: volatility-adjusted, only binding when IV runs hot.
	if impliedVol > 0 && s.config.ReferenceIV > 0 {
		discount := 1.0
		if impliedVol > s.config.ReferenceIV {
			discount = s.config.ReferenceIV / impliedVol
		}
		volAdjusted := int64(math.Floor(value * params.RiskPerTrade * discount / instrumentPrice))
		candidates["vol_adjusted"] = volAdjusted
		trace = append(trace, fmt.Sprintf("vol-adjusted(iv=%.2f, ref=%.2f): %d", impliedVol, s.config.ReferenceIV, volAdjusted))
	}

	final := int64(math.MaxInt64)
	bindingModel := ""
	for model, qty := range candidates {
		if qty < final {
			final = qty
			bindingModel = model
		}
	}
	if final < 0 {
		final = 0
	}

	rationale := fmt.Sprintf("%s | final=%d (bound by %s)", strings.Join(trace, "; "), final, bindingModel)
	if s.log != nil {
		s.log.Info("Sized %s %s: %s", signal.Strategy, signal.Symbol, rationale)
	}

	return SizingResult{Quantity: final, Rationale: rationale, Candidates: candidates}
}

// riskLimitedQuantity takes the minimum of the value cap, the cash cap,
// the remaining symbol-concentration headroom, and the strategy cap.
func (s *Sizer) riskLimitedQuantity(signal types.Signal, portfolio *types.Portfolio, limits types.RiskLimits, params StrategyParams, price float64) (int64, string) {
	value := portfolio.TotalValue

	caps := []struct {
		name  string
		value float64
	}{
		{"max_position_value", value * limits.MaxPositionSize},
		{"available_cash", portfolio.CashBalance},
		{"symbol_headroom", value*limits.MaxPositionSize - portfolio.PositionValue(signal.Symbol)},
		{"strategy_cap", value * params.MaxAllocation},
	}

	minQty := int64(math.MaxInt64)
	binding := ""
	for _, c := range caps {
		dollars := math.Max(0, c.value)
		qty := int64(math.Floor(dollars / price))
		if qty < minQty {
			minQty = qty
			binding = c.name
		}
	}
	return minQty, binding
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
