// Package backtest evaluates a long/flat strategy driven by classifier
// predictions: yesterday's prediction is today's position.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"quantdir/internal/features"
	"quantdir/internal/frame"
	"quantdir/internal/performance"
)

// Columns added to the evaluation frame.
const (
	ColSignal      = "signal"
	ColStrategyRet = "strategy_ret"
	ColEquityCurve = "equity_curve"
)

// Run returns a copy of t with signal, strategy_ret, and equity_curve
// columns. predictions holds one 0/1 value per row of t, aligned by position.
//
//	signal[i]       = predictions[i-1]  (undefined at i = 0)
//	strategy_ret[i] = signal[i] * ret_1[i]
//	equity_curve[i] = prod_{k<=i} (1 + strategy_ret[k]), undefined counted as 0
func Run(t *frame.Table, predictions []int) (*frame.Table, error) {
	if !t.Has(features.ColRet1) {
		return nil, fmt.Errorf("table has no %q column", features.ColRet1)
	}
	n := t.Len()
	if len(predictions) != n {
		return nil, fmt.Errorf("got %d predictions for %d rows", len(predictions), n)
	}
	for i, p := range predictions {
		if p != 0 && p != 1 {
			return nil, fmt.Errorf("prediction %d at row %d is not 0 or 1", p, i)
		}
	}

	ret := t.Column(features.ColRet1)
	signal := make([]float64, n)
	stratRet := make([]float64, n)
	equity := make([]float64, n)

	value := 1.0
	for i := 0; i < n; i++ {
		if i == 0 {
			signal[i] = frame.NA()
		} else {
			signal[i] = float64(predictions[i-1])
		}
		stratRet[i] = signal[i] * ret[i]

		if !frame.IsNA(stratRet[i]) {
			value *= 1 + stratRet[i]
		}
		equity[i] = value
	}

	return t.
		With(ColSignal, signal).
		With(ColStrategyRet, stratRet).
		With(ColEquityCurve, equity), nil
}

// Result holds the backtest frame and its summary metrics.
type Result struct {
	Frame *frame.Table

	TotalReturn float64
	// SharpeRatio is meaningful only when SharpeDefined is true.
	SharpeRatio   float64
	SharpeDefined bool
	MaxDrawdown   float64
	TotalTrades   int
	WinRate       float64
	ProfitFactor  float64
}

// Backtester runs Run and summarises the resulting equity curve.
type Backtester struct {
	riskFreeRate float64
	log          *slog.Logger
}

// NewBacktester creates a Backtester that measures Sharpe ratios against the
// given annual risk-free rate.
func NewBacktester(riskFreeRate float64, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.Default()
	}
	return &Backtester{
		riskFreeRate: riskFreeRate,
		log:          log.With("component", "backtest"),
	}
}

// Evaluate backtests predictions over t and computes the summary metrics.
func (bt *Backtester) Evaluate(ctx context.Context, t *frame.Table, predictions []int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := Run(t, predictions)
	if err != nil {
		return nil, err
	}

	stratRet := out.Column(ColStrategyRet)
	equity := out.Column(ColEquityCurve)
	signal := out.Column(ColSignal)

	res := &Result{
		Frame:       out,
		TotalReturn: performance.TotalReturn(equity),
		MaxDrawdown: performance.MaxDrawdown(equity),
	}
	res.SharpeRatio, res.SharpeDefined = performance.Sharpe(stratRet, bt.riskFreeRate)
	res.TotalTrades, res.WinRate, res.ProfitFactor = tradeStats(signal, stratRet)

	bt.log.Debug("backtest evaluated",
		"rows", out.Len(),
		"totalReturn", res.TotalReturn,
		"sharpe", res.SharpeRatio,
		"sharpeDefined", res.SharpeDefined,
		"maxDrawdown", res.MaxDrawdown,
		"trades", res.TotalTrades,
	)
	return res, nil
}

// tradeStats counts flat-to-long entries and summarises the rows spent long.
// WinRate is the share of long rows with a positive return; ProfitFactor is
// gross gains over gross losses of those rows, 0 when nothing was lost.
func tradeStats(signal, stratRet []float64) (trades int, winRate, profitFactor float64) {
	long := false
	var invested, wins int
	var gains, losses float64
	for i, s := range signal {
		nowLong := !frame.IsNA(s) && s > 0
		if nowLong && !long {
			trades++
		}
		long = nowLong
		if !nowLong || frame.IsNA(stratRet[i]) {
			continue
		}
		invested++
		switch r := stratRet[i]; {
		case r > 0:
			wins++
			gains += r
		case r < 0:
			losses -= r
		}
	}
	if invested > 0 {
		winRate = float64(wins) / float64(invested)
	}
	if losses > 0 {
		profitFactor = gains / losses
	}
	return trades, winRate, profitFactor
}
