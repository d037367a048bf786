package risk

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// CalculatorConfig tunes the risk calculator
type CalculatorConfig struct {
	CacheTTL        time.Duration
	BenchmarkSymbol string
	SyntheticMean   float64 // Daily mean for synthesized return series
	SyntheticVol    float64 // Daily volatility for synthesized return series
	SyntheticLen    int     // Length of synthesized series
}

// DefaultCalculatorConfig returns the standard calculator tuning
func DefaultCalculatorConfig() CalculatorConfig {
	return CalculatorConfig{
		CacheTTL:        15 * time.Second,
		BenchmarkSymbol: "SPY",
		SyntheticMean:   0.0003,
		SyntheticVol:    0.02,
		SyntheticLen:    252,
	}
}

// Calculator computes portfolio risk metrics by historical simulation.
// Pure aside from a short-lived result cache that absorbs bursty
// callers; two calls inside the TTL return the identical snapshot.
type Calculator struct {
	config CalculatorConfig
	log    *logger.Logger
	cache  *snapshotCache
	rng    *rand.Rand
}

// NewCalculator creates a risk calculator
func NewCalculator(config CalculatorConfig, log *logger.Logger) *Calculator {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 15 * time.Second
	}
	if config.SyntheticLen <= 0 {
		config.SyntheticLen = 252
	}
	return &Calculator{
		config: config,
		log:    log,
		cache:  newSnapshotCache(config.CacheTTL),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Compute derives a RiskMetrics snapshot from the portfolio and the
// supplied per-symbol price history. An empty position set yields zero
// risk across all metrics. Missing data degrades to synthetic/default
// values and is flagged, never returned as a fatal error.
func (c *Calculator) Compute(ctx context.Context, portfolio *types.Portfolio, history map[string][]types.PriceBar) (types.RiskMetrics, error) {
	if cached, ok := c.cache.get(portfolio.ID); ok {
		return cached, nil
	}

	metrics := types.RiskMetrics{
		PortfolioID: portfolio.ID,
		Timestamp:   time.Now(),
	}

	open := portfolio.OpenPositions()
	if len(open) == 0 {
		c.cache.put(portfolio.ID, metrics)
		return metrics, nil
	}

	portfolioReturns, synthetic := c.portfolioReturns(open, history)
	metrics.Synthetic = synthetic

	value := portfolio.TotalValue
	if value <= 0 {
		value = portfolio.CashBalance
		for _, p := range open {
			value += p.MarketValue()
		}
	}

	// Historical-simulation VaR: empirical loss quantile scaled by
	// portfolio value. The tail beyond the cutoff averages into ES.
	sorted := sortedCopy(portfolioReturns)
	var95Return := empiricalQuantile(sorted, 0.05)
	var99Return := empiricalQuantile(sorted, 0.01)
	metrics.VaR95 = math.Max(0, -var95Return*value)
	metrics.VaR99 = math.Max(0, -var99Return*value)

	tailSum, tailN := 0.0, 0
	for _, r := range sorted {
		if r <= var95Return {
			tailSum += r
			tailN++
		}
	}
	if tailN > 0 {
		metrics.ExpectedShortfall = math.Max(0, -tailSum/float64(tailN)*value)
	}

	metrics.Volatility = stdDev(portfolioReturns) * math.Sqrt(tradingDaysPerYear)
	metrics.MaxDrawdown = maxDrawdown(portfolioReturns)
	metrics.SharpeRatio = sharpeRatio(portfolioReturns)
	metrics.SortinoRatio = sortinoRatio(portfolioReturns)
	metrics.CalmarRatio = calmarRatio(portfolioReturns, metrics.MaxDrawdown)

	c.applyBenchmark(&metrics, portfolioReturns, history)
	metrics.ConcentrationRisk = concentrationRisk(open, value)
	metrics.LiquidityRisk = liquidityRisk(open, value)
	c.applyGreeks(&metrics, open, value)
	metrics.Stress = stressTest(open, portfolio.CashBalance)

	c.cache.put(portfolio.ID, metrics)
	return metrics, nil
}

// Invalidate drops the cached snapshot for a portfolio; called after a
// fill so the next computation sees the mutated positions.
func (c *Calculator) Invalidate(portfolioID string) {
	c.cache.invalidate(portfolioID)
}

// portfolioReturns builds the market-value-weighted return series for
// the open positions. Options are weighted by an approximated leverage
// factor of |delta| x 2. Positions with no usable history get a
// synthesized series so one stale feed cannot halt risk monitoring.
func (c *Calculator) portfolioReturns(open []*types.Position, history map[string][]types.PriceBar) ([]float64, bool) {
	type weighted struct {
		returns []float64
		weight  float64
	}

	totalWeight := 0.0
	series := make([]weighted, 0, len(open))
	synthetic := false

	for _, p := range open {
		returns := returnsFromBars(history[p.Symbol])
		if len(returns) == 0 {
			returns = syntheticReturns(c.config.SyntheticLen, c.config.SyntheticMean, c.config.SyntheticVol, c.rng)
			synthetic = true
			if c.log != nil {
				c.log.Risk("No history for %s, using synthetic return series", p.Symbol)
			}
		}

		weight := math.Abs(p.MarketValue())
		if p.Kind == types.InstrumentOption {
			leverage := 2.0
			if p.Greeks != nil {
				leverage = math.Abs(p.Greeks.Delta) * 2
			}
			weight *= leverage
		}
		if weight <= 0 {
			continue
		}
		series = append(series, weighted{returns: returns, weight: weight})
		totalWeight += weight
	}

	if totalWeight <= 0 || len(series) == 0 {
		return nil, synthetic
	}

	// Align on the shortest series, most recent end.
	minLen := len(series[0].returns)
	for _, s := range series[1:] {
		if len(s.returns) < minLen {
			minLen = len(s.returns)
		}
	}

	combined := make([]float64, minLen)
	for _, s := range series {
		tail := s.returns[len(s.returns)-minLen:]
		w := s.weight / totalWeight
		for i, r := range tail {
			combined[i] += w * r
		}
	}
	return combined, synthetic
}

// applyBenchmark computes beta and correlation against the benchmark
// series. Missing benchmark data degrades to beta 1.0 / correlation
// 0.5 rather than failing the computation.
func (c *Calculator) applyBenchmark(metrics *types.RiskMetrics, portfolioReturns []float64, history map[string][]types.PriceBar) {
	benchReturns := returnsFromBars(history[c.config.BenchmarkSymbol])
	if len(benchReturns) < 2 || len(portfolioReturns) < 2 {
		metrics.Beta = 1.0
		metrics.CorrelationRisk = 0.5
		metrics.Degraded = true
		if c.log != nil {
			c.log.Risk("Benchmark %s unavailable, using default beta/correlation", c.config.BenchmarkSymbol)
		}
		return
	}

	pr, br := alignTail(portfolioReturns, benchReturns)
	benchVar := covariance(br, br)
	if benchVar < 1e-12 {
		metrics.Beta = 1.0
		metrics.CorrelationRisk = 0.5
		metrics.Degraded = true
		return
	}

	cov := covariance(pr, br)
	metrics.Beta = cov / benchVar

	prSD, brSD := stdDev(pr), stdDev(br)
	if prSD > 1e-12 && brSD > 1e-12 {
		metrics.CorrelationRisk = math.Abs(cov / (prSD * brSD))
	}
}

// applyGreeks aggregates option sensitivities and normalizes them into
// a 0-10 risk band against portfolio value.
func (c *Calculator) applyGreeks(metrics *types.RiskMetrics, open []*types.Position, value float64) {
	for _, p := range open {
		if p.Greeks == nil {
			continue
		}
		qty := float64(p.Quantity)
		metrics.Greeks.TotalDelta += p.Greeks.Delta * qty
		metrics.Greeks.TotalGamma += p.Greeks.Gamma * qty
		metrics.Greeks.TotalTheta += p.Greeks.Theta * qty
		metrics.Greeks.TotalVega += p.Greeks.Vega * qty
	}

	if value <= 0 {
		return
	}
	// Each normalized sensitivity contributes up to 2.5 points.
	score := 0.0
	score += math.Min(2.5, math.Abs(metrics.Greeks.TotalDelta)/value*100*2.5)
	score += math.Min(2.5, math.Abs(metrics.Greeks.TotalGamma)/value*1000*2.5)
	score += math.Min(2.5, math.Abs(metrics.Greeks.TotalTheta)/value*1000*2.5)
	score += math.Min(2.5, math.Abs(metrics.Greeks.TotalVega)/value*100*2.5)
	metrics.GreeksRiskScore = math.Min(10, score)
}

// concentrationRisk is the largest single-symbol share of portfolio value
func concentrationRisk(open []*types.Position, value float64) float64 {
	if value <= 0 {
		return 0
	}
	bySymbol := make(map[string]float64)
	for _, p := range open {
		bySymbol[p.Symbol] += math.Abs(p.MarketValue())
	}
	maxShare := 0.0
	for _, v := range bySymbol {
		if share := v / value; share > maxShare {
			maxShare = share
		}
	}
	return maxShare
}

// liquidityRisk weights option exposure, which unwinds slower than
// equities, as a share of portfolio value.
func liquidityRisk(open []*types.Position, value float64) float64 {
	if value <= 0 {
		return 0
	}
	illiquid := 0.0
	for _, p := range open {
		if p.Kind == types.InstrumentOption {
			illiquid += math.Abs(p.MarketValue())
		}
	}
	return math.Min(1, illiquid/value)
}

// stressHorizonDays is the time decay applied alongside each shock.
// Shocks play out over a day, so theta costs one day of premium.
const stressHorizonDays = 1.0

// stressTest revalues the portfolio under synthetic shocks using each
// position's Greeks as a second-order Taylor approximation plus one day
// of theta decay. Instrument values are floored at zero: a long option
// cannot lose more than its premium.
func stressTest(open []*types.Position, cash float64) types.StressResults {
	return types.StressResults{
		MarketDown10: shockPnL(open, -0.10, 0),
		MarketDown20: shockPnL(open, -0.20, 0),
		MarketUp10:   shockPnL(open, 0.10, 0),
		MarketUp20:   shockPnL(open, 0.20, 0),
		VolShock:     shockPnL(open, 0, 0.10),
	}
}

func shockPnL(open []*types.Position, underlyingMove, volMove float64) float64 {
	total := 0.0
	for _, p := range open {
		mv := p.MarketValue()
		var pnl float64
		if p.Kind == types.InstrumentOption && p.Greeks != nil {
			spotMove := p.CurrentPrice * underlyingMove
			qty := float64(p.Quantity)
			pnl = p.Greeks.Delta*spotMove*qty +
				0.5*p.Greeks.Gamma*spotMove*spotMove*qty +
				p.Greeks.Vega*volMove*100*qty +
				p.Greeks.Theta*stressHorizonDays*qty
		} else {
			pnl = mv * underlyingMove
		}
		// Floor: instrument value cannot go negative.
		if mv > 0 && pnl < -mv {
			pnl = -mv
		}
		total += pnl
	}
	return total
}
