// Package store defines storage interfaces for persisting and retrieving
// price bars, derived tables, and experiment runs.
package store

import (
	"context"
	"errors"
	"time"

	"quantdir/internal/domain"
	"quantdir/internal/frame"
)

// ErrNotFound is returned when a requested frame or run does not exist.
var ErrNotFound = errors.New("store: not found")

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars merges a batch of bars into storage under market.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end],
	// ordered by timestamp.
	ReadBars(ctx context.Context, symbol string, market domain.Market, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// FrameStore persists derived tables keyed by ticker and kind, for example
// "features" or "backtest".
type FrameStore interface {
	// WriteFrame replaces the stored table for (ticker, kind).
	WriteFrame(ctx context.Context, ticker, kind string, t *frame.Table) error

	// ReadFrame loads the table for (ticker, kind), or ErrNotFound.
	ReadFrame(ctx context.Context, ticker, kind string) (*frame.Table, error)
}

// RunStore persists experiment run summaries.
type RunStore interface {
	// SaveRun inserts or replaces a run by ID.
	SaveRun(ctx context.Context, run *domain.Run) error

	// GetRun retrieves a single run by its ID, or ErrNotFound.
	GetRun(ctx context.Context, id string) (*domain.Run, error)

	// ListRuns returns runs newest first. An empty ticker lists every run.
	ListRuns(ctx context.Context, ticker string) ([]domain.Run, error)
}
