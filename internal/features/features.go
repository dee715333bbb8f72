// Package features derives model inputs from a daily price table. Every
// feature at row t is computed from rows at or before t only; rows without
// enough history carry undefined values, which the caller must resolve before
// fitting a model.
package features

import (
	"fmt"

	"quantdir/internal/frame"
)

// Lookback windows of the fixed feature catalog.
var (
	LagWindows        = []int{1, 5, 10, 20}
	SMAWindows        = []int{5, 10, 20, 50, 100, 200}
	VolatilityWindows = []int{10, 20, 60}
	MomentumWindows   = []int{10, 20}
)

// Indicator parameters.
const (
	RSILength    = 14
	MACDFast     = 12
	MACDSlow     = 26
	MACDSignal   = 9
	BBandsLength = 20
	BBandsStdDev = 2.0
)

// Indicator and calendar column names.
const (
	ColRSI        = "rsi_14"
	ColMACD       = "macd"
	ColMACDSignal = "macd_signal"
	ColBBWidth    = "bb_width"
	ColDayOfWeek  = "day_of_week"
	ColMonth      = "month"
)

// RetCol names the percent change over lag rows.
func RetCol(lag int) string { return fmt.Sprintf("ret_%d", lag) }

// SMACol names the simple moving average over w rows.
func SMACol(w int) string { return fmt.Sprintf("sma_%d", w) }

// PriceSMACol names the relative deviation of the close from SMACol(w).
func PriceSMACol(w int) string { return fmt.Sprintf("price_sma_%d", w) }

// VolCol names the rolling volatility of ret_1 over w rows.
func VolCol(w int) string { return fmt.Sprintf("vol_%d", w) }

// ROCCol names the rate of change over w rows.
func ROCCol(w int) string { return fmt.Sprintf("roc_%d", w) }

// Columns returns the model input columns in a fixed order.
func Columns() []string {
	var cols []string
	for _, lag := range LagWindows {
		cols = append(cols, RetCol(lag))
	}
	cols = append(cols, ColLogRet1)
	for _, w := range SMAWindows {
		cols = append(cols, SMACol(w), PriceSMACol(w))
	}
	for _, w := range VolatilityWindows {
		cols = append(cols, VolCol(w))
	}
	for _, w := range MomentumWindows {
		cols = append(cols, ROCCol(w))
	}
	cols = append(cols, ColRSI, ColMACD, ColMACDSignal, ColBBWidth, ColDayOfWeek, ColMonth)
	return cols
}

// Build returns t with returns and the full feature catalog added.
func Build(t *frame.Table) *frame.Table {
	t = AddReturns(t)
	t = AddLaggedReturns(t)
	t = AddMovingAverages(t)
	t = AddVolatility(t)
	t = AddMomentum(t)
	t = AddTechnicalIndicators(t)
	return AddCalendarFeatures(t)
}

// AddLaggedReturns adds the percent change of the close over each lag in
// LagWindows.
func AddLaggedReturns(t *frame.Table) *frame.Table {
	closes := t.Column(frame.ColClose)
	for _, lag := range LagWindows {
		t = t.With(RetCol(lag), pctChange(closes, lag))
	}
	return t
}

// AddMovingAverages adds sma_w and price_sma_w = close/sma_w - 1 for each
// window in SMAWindows.
func AddMovingAverages(t *frame.Table) *frame.Table {
	closes := t.Column(frame.ColClose)
	for _, w := range SMAWindows {
		sma := rollingMean(closes, w)
		dev := undefined(len(closes))
		for i, m := range sma {
			if frame.IsNA(m) || m == 0 {
				continue
			}
			dev[i] = closes[i]/m - 1
		}
		t = t.With(SMACol(w), sma).With(PriceSMACol(w), dev)
	}
	return t
}

// AddVolatility adds the rolling sample standard deviation of ret_1 for each
// window in VolatilityWindows.
func AddVolatility(t *frame.Table) *frame.Table {
	if !t.Has(ColRet1) {
		t = t.With(ColRet1, pctChange(t.Column(frame.ColClose), 1))
	}
	ret := t.Column(ColRet1)
	for _, w := range VolatilityWindows {
		t = t.With(VolCol(w), rollingStd(ret, w))
	}
	return t
}

// AddMomentum adds the rate of change for each window in MomentumWindows.
// The values equal the lagged returns of the same window; both names are kept.
func AddMomentum(t *frame.Table) *frame.Table {
	closes := t.Column(frame.ColClose)
	for _, w := range MomentumWindows {
		t = t.With(ROCCol(w), pctChange(closes, w))
	}
	return t
}

// AddTechnicalIndicators adds RSI, the MACD line and signal, and the
// normalised Bollinger band width.
func AddTechnicalIndicators(t *frame.Table) *frame.Table {
	closes := t.Column(frame.ColClose)
	line, signal := macd(closes, MACDFast, MACDSlow, MACDSignal)
	return t.
		With(ColRSI, rsi(closes, RSILength)).
		With(ColMACD, line).
		With(ColMACDSignal, signal).
		With(ColBBWidth, bollingerWidth(closes, BBandsLength, BBandsStdDev))
}

// AddCalendarFeatures adds day_of_week (Monday=0 through Sunday=6) and month
// (1-12) from the row date.
func AddCalendarFeatures(t *frame.Table) *frame.Table {
	dates := t.Dates()
	dow := make([]float64, len(dates))
	month := make([]float64, len(dates))
	for i, d := range dates {
		dow[i] = float64((int(d.Weekday()) + 6) % 7)
		month[i] = float64(d.Month())
	}
	return t.With(ColDayOfWeek, dow).With(ColMonth, month)
}
