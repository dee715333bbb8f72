package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"quantdir/internal/frame"
)

// All helpers below are causal: out[t] depends on x[0..t] only. Every helper
// returns a fresh slice of len(x).

func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = frame.NA()
	}
	return out
}

// pctChange returns x[t]/x[t-lag] - 1.
func pctChange(x []float64, lag int) []float64 {
	out := undefined(len(x))
	for t := lag; t < len(x); t++ {
		prev := x[t-lag]
		if frame.IsNA(prev) || frame.IsNA(x[t]) || prev == 0 {
			continue
		}
		out[t] = x[t]/prev - 1
	}
	return out
}

// rolling applies fn to every full window of w values ending at t. Windows
// holding an undefined value stay undefined.
func rolling(x []float64, w int, fn func(window []float64) float64) []float64 {
	out := undefined(len(x))
	if w <= 0 {
		return out
	}
	for t := w - 1; t < len(x); t++ {
		window := x[t-w+1 : t+1]
		if hasNA(window) {
			continue
		}
		out[t] = fn(window)
	}
	return out
}

func hasNA(x []float64) bool {
	for _, v := range x {
		if frame.IsNA(v) {
			return true
		}
	}
	return false
}

func rollingMean(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 { return stat.Mean(win, nil) })
}

// rollingStd is the sample (n-1) standard deviation.
func rollingStd(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 { return stat.StdDev(win, nil) })
}

// rollingPopStd is the population (n) standard deviation.
func rollingPopStd(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 { return stat.PopStdDev(win, nil) })
}

// ema is an exponential moving average seeded with the simple mean of the
// first n defined values, placed on the n-th of them, then recursed with
// alpha = 2/(n+1). Leading undefined values are skipped.
func ema(x []float64, n int) []float64 {
	out := undefined(len(x))
	start := firstDefined(x)
	if start < 0 || n <= 0 || start+n > len(x) {
		return out
	}
	seed := x[start : start+n]
	if hasNA(seed) {
		return out
	}
	alpha := 2 / float64(n+1)
	prev := floats.Sum(seed) / float64(n)
	out[start+n-1] = prev
	for t := start + n; t < len(x); t++ {
		if frame.IsNA(x[t]) {
			// A gap after the seed ends the series; later values are undefined.
			break
		}
		prev = alpha*x[t] + (1-alpha)*prev
		out[t] = prev
	}
	return out
}

func firstDefined(x []float64) int {
	for i, v := range x {
		if !frame.IsNA(v) {
			return i
		}
	}
	return -1
}

// adjustedEWM is the bias-adjusted exponential mean with smoothing alpha over
// the defined values of x, reported once minPeriods values have been seen.
func adjustedEWM(x []float64, alpha float64, minPeriods int) []float64 {
	out := undefined(len(x))
	var num, den float64
	seen := 0
	decay := 1 - alpha
	for t, v := range x {
		if frame.IsNA(v) {
			continue
		}
		num = v + decay*num
		den = 1 + decay*den
		seen++
		if seen >= minPeriods {
			out[t] = num / den
		}
	}
	return out
}

// rsi returns the relative strength index of closes over length periods.
func rsi(closes []float64, length int) []float64 {
	n := len(closes)
	gains := undefined(n)
	losses := undefined(n)
	for t := 1; t < n; t++ {
		d := closes[t] - closes[t-1]
		if frame.IsNA(d) {
			continue
		}
		gains[t] = math.Max(d, 0)
		losses[t] = math.Max(-d, 0)
	}

	alpha := 1 / float64(length)
	avgGain := adjustedEWM(gains, alpha, length)
	avgLoss := adjustedEWM(losses, alpha, length)

	out := undefined(n)
	for t := range out {
		g, l := avgGain[t], avgLoss[t]
		if frame.IsNA(g) || frame.IsNA(l) || g+l == 0 {
			continue
		}
		out[t] = 100 * g / (g + l)
	}
	return out
}

// macd returns the MACD line and its signal line.
func macd(closes []float64, fast, slow, signal int) (line, sig []float64) {
	f := ema(closes, fast)
	s := ema(closes, slow)
	line = undefined(len(closes))
	for t := range line {
		if frame.IsNA(f[t]) || frame.IsNA(s[t]) {
			continue
		}
		line[t] = f[t] - s[t]
	}
	return line, ema(line, signal)
}

// bollingerWidth returns (upper-lower)/close for bands of k population
// standard deviations around a w-period mean.
func bollingerWidth(closes []float64, w int, k float64) []float64 {
	sd := rollingPopStd(closes, w)
	out := undefined(len(closes))
	for t := range out {
		if frame.IsNA(sd[t]) || closes[t] == 0 {
			continue
		}
		out[t] = 2 * k * sd[t] / closes[t]
	}
	return out
}
