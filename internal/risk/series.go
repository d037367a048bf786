package risk

import (
	"math"
	"math/rand"
	"sort"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

const tradingDaysPerYear = 252

// returnsFromBars converts a close-price series into simple returns
func returnsFromBars(bars []types.PriceBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		returns = append(returns, (bars[i].Close-prev)/prev)
	}
	return returns
}

// syntheticReturns draws a normal return series for positions with no
// usable history. The distribution parameters are configuration, not a
// contract; callers must flag results built on synthetic data.
func syntheticReturns(n int, mean, vol float64, rng *rand.Rand) []float64 {
	returns := make([]float64, n)
	for i := range returns {
		returns[i] = mean + vol*rng.NormFloat64()
	}
	return returns
}

// alignTail truncates both series to the shorter one, keeping the most
// recent observations.
func alignTail(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}

// empiricalQuantile returns the q-th quantile of the series (q in [0,1])
func empiricalQuantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	variance := 0.0
	for _, x := range xs {
		variance += (x - m) * (x - m)
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}

// covariance of two equal-length series
func covariance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	ma, mb := mean(a), mean(b)
	sum := 0.0
	for i := range a {
		sum += (a[i] - ma) * (b[i] - mb)
	}
	return sum / float64(len(a))
}

// maxDrawdown walks the cumulative-return curve tracking the running
// peak and the largest peak-to-trough relative decline.
func maxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	equity := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio returns the annualized mean excess return over annualized
// volatility, assuming a zero risk-free rate.
func sharpeRatio(returns []float64) float64 {
	sd := stdDev(returns)
	if sd < 1e-10 {
		return 0
	}
	annMean := mean(returns) * tradingDaysPerYear
	annVol := sd * math.Sqrt(tradingDaysPerYear)
	return annMean / annVol
}

// sortinoRatio uses downside deviation only
func sortinoRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))
	if downside < 1e-10 {
		return 0
	}
	annMean := mean(returns) * tradingDaysPerYear
	annDownside := downside * math.Sqrt(tradingDaysPerYear)
	return annMean / annDownside
}

// calmarRatio is annualized return over max drawdown
func calmarRatio(returns []float64, maxDD float64) float64 {
	if maxDD < 1e-10 {
		return 0
	}
	return mean(returns) * tradingDaysPerYear / maxDD
}

// sortedCopy returns an ascending copy of the series
func sortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}
