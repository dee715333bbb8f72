// Package domain defines the core value types shared across quantdir: daily
// price bars, markets, and recorded experiment runs.
package domain

import "time"

// Market identifies the exchange group a symbol trades on. It selects the
// cache directory for bar data.
type Market string

const (
	MarketUS Market = "us"
	// MarketCN only namespaces the bar cache; no built-in source fetches it.
	MarketCN Market = "cn"
)

// Bar is a single daily OHLCV record.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Run is the persisted summary of one experiment: a ticker, a model, a
// horizon and split ratio, and the out-of-sample results.
type Run struct {
	ID         string
	Ticker     string
	Model      string
	Horizon    int
	SplitRatio float64
	StartDate  time.Time

	TrainRows int
	TestRows  int
	Accuracy  float64

	// Sharpe is nil when the strategy returns have zero variance.
	Sharpe       *float64
	MaxDrawdown  float64
	TotalReturn  float64
	TotalTrades  int
	WinRate      float64
	ProfitFactor float64

	CreatedAt time.Time
}
