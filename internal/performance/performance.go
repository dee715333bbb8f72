// Package performance computes risk-adjusted return statistics over a
// per-period return series and an equity curve.
package performance

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualises daily statistics.
const TradingDaysPerYear = 252

// Sharpe returns the annualised Sharpe ratio of returns against an annual
// risk-free rate: sqrt(252) * mean(r - rf/252) / stdev(r), using the sample
// standard deviation. Undefined (NaN) periods are skipped. The second result
// is false, and the ratio 0, when fewer than two periods are defined or the
// returns have zero variance.
func Sharpe(returns []float64, riskFreeRate float64) (float64, bool) {
	r := defined(returns)
	if len(r) < 2 || floats.Max(r) == floats.Min(r) {
		return 0, false
	}
	sd := stat.StdDev(r, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0, false
	}
	excess := stat.Mean(r, nil) - riskFreeRate/TradingDaysPerYear
	return math.Sqrt(TradingDaysPerYear) * excess / sd, true
}

// MaxDrawdown returns the most negative relative decline from a running peak
// of equity, as a fraction in [-1, 0]. An empty curve has no drawdown.
func MaxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, e := range equity {
		if math.IsNaN(e) {
			continue
		}
		if e > peak {
			peak = e
		}
		if peak <= 0 {
			continue
		}
		if dd := (e - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return math.Max(worst, -1)
}

// TotalReturn is the last defined equity value minus one.
func TotalReturn(equity []float64) float64 {
	for i := len(equity) - 1; i >= 0; i-- {
		if !math.IsNaN(equity[i]) {
			return equity[i] - 1
		}
	}
	return 0
}

func defined(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
