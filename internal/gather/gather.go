// Package gather loads daily price bars for a ticker, preferring the local
// Parquet cache and falling back to a remote Source.
package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"quantdir/internal/domain"
	"quantdir/internal/store"
)

// ErrNoData is returned when neither the cache nor the source has bars for a
// ticker.
var ErrNoData = errors.New("gather: no price data")

// Source fetches daily bars from a remote provider.
type Source interface {
	// Name returns the source identifier.
	Name() string
	// Market returns the cache namespace the source's bars belong to.
	Market() domain.Market
	// FetchDailyBars returns adjusted daily bars for symbol within [start, end].
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Loader serves daily bars from a BarStore, fetching and caching from a
// Source on a miss.
type Loader struct {
	source Source
	store  store.BarStore
	now    func() time.Time
	log    *slog.Logger
}

// NewLoader creates a Loader. A nil logger uses slog.Default.
func NewLoader(source Source, bars store.BarStore, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		source: source,
		store:  bars,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With("component", "loader", "source", source.Name()),
	}
}

func (l *Loader) rangeFrom(start time.Time) DateRange {
	return DateRange{Start: start, End: l.now()}
}

// Load returns cleaned bars for symbol from start onwards. Cached bars win
// over a fetch: the source is only consulted when the cache holds nothing in
// range.
func (l *Loader) Load(ctx context.Context, symbol string, start time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)
	r := l.rangeFrom(start)

	cached, err := l.store.ReadBars(ctx, symbol, l.source.Market(), r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("reading cached bars for %s: %w", symbol, err)
	}
	if len(cached) > 0 {
		bars, dropped := Clean(cached)
		l.log.Debug("loaded from cache", "symbol", symbol, "bars", len(bars), "dropped", dropped)
		if len(bars) == 0 {
			return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
		}
		return bars, nil
	}

	return l.fetch(ctx, symbol, r)
}

// Refresh fetches bars for symbol from start regardless of the cache and
// merges them into it.
func (l *Loader) Refresh(ctx context.Context, symbol string, start time.Time) ([]domain.Bar, error) {
	return l.fetch(ctx, strings.ToUpper(symbol), l.rangeFrom(start))
}

func (l *Loader) fetch(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error) {
	fetched, err := l.source.FetchDailyBars(ctx, symbol, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("fetching %s from %s: %w", symbol, l.source.Name(), err)
	}
	bars, dropped := Clean(fetched)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	for i := range bars {
		bars[i].Symbol = symbol
	}
	if err := l.store.WriteBars(ctx, l.source.Market(), bars); err != nil {
		return nil, fmt.Errorf("caching bars for %s: %w", symbol, err)
	}
	l.log.Info("fetched bars",
		"symbol", symbol,
		"bars", len(bars),
		"dropped", dropped,
		"first", bars[0].Timestamp.Format(time.DateOnly),
		"last", bars[len(bars)-1].Timestamp.Format(time.DateOnly),
	)
	return bars, nil
}

// Clean sorts bars by timestamp, keeps the last bar for each duplicated
// timestamp, and drops bars whose OHLC values are not finite or whose close
// is not positive. It returns the cleaned bars and the number removed.
func Clean(bars []domain.Bar) ([]domain.Bar, int) {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := make([]domain.Bar, 0, len(sorted))
	for _, b := range sorted {
		if !validBar(b) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(b.Timestamp) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out, len(bars) - len(out)
}

func validBar(b domain.Bar) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Close > 0
}
