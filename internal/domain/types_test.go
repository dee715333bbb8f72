package domain

import (
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Verify Bar can be instantiated with zero values.
	bar := Bar{}
	if bar.Symbol != "" {
		t.Error("expected empty Symbol for zero-value Bar")
	}
	if !bar.Timestamp.IsZero() {
		t.Error("expected zero Timestamp for zero-value Bar")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 {
		t.Error("expected zero OHLC values for zero-value Bar")
	}
	if bar.Volume != 0 || bar.TradeCount != 0 || bar.VWAP != 0 {
		t.Error("expected zero Volume/TradeCount/VWAP for zero-value Bar")
	}

	if MarketUS != "us" || MarketCN != "cn" {
		t.Error("Market constants have unexpected values")
	}

	// A run without a defined Sharpe ratio keeps it nil.
	run := Run{
		ID:         "run-1",
		Ticker:     "AAPL",
		Model:      "logistic",
		Horizon:    15,
		SplitRatio: 0.8,
		CreatedAt:  time.Now(),
	}
	if run.Sharpe != nil {
		t.Errorf("run.Sharpe = %v, want nil", *run.Sharpe)
	}
	sharpe := 1.25
	run.Sharpe = &sharpe
	if *run.Sharpe != 1.25 {
		t.Errorf("run.Sharpe = %v, want 1.25", *run.Sharpe)
	}
}
