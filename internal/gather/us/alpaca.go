// Package us implements gather.Source for US equities via the Alpaca
// market-data API.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"quantdir/internal/domain"
	"quantdir/internal/gather"
	"quantdir/internal/util"
)

var _ gather.Source = (*AlpacaSource)(nil)

// Config holds the credentials and limits for AlpacaSource.
type Config struct {
	APIKey    string
	APISecret string
	// DataURL overrides the market-data endpoint.
	DataURL string
	// BaseURL is the trading API used for the calendar. Empty skips the
	// calendar lookup and uses the requested end date as is.
	BaseURL string
	// Feed is "sip" or "iex".
	Feed            string
	RateLimitPerMin int
	MaxAttempts     int
	RetryDelay      time.Duration
}

// AlpacaSource fetches split- and dividend-adjusted daily bars.
type AlpacaSource struct {
	client   *marketdata.Client
	feed     marketdata.Feed
	limiter  *util.RateLimiter
	attempts int
	delay    time.Duration
	// lastSession returns the latest finished trading day, or zero time to
	// leave the end date untouched.
	lastSession func(ctx context.Context) (time.Time, error)
	log         *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource. A nil logger uses slog.Default.
func NewAlpacaSource(cfg Config, log *slog.Logger) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}
	if cfg.Feed == "" {
		cfg.Feed = "iex"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	s := &AlpacaSource{
		client:   marketdata.NewClient(opts),
		feed:     marketdata.Feed(cfg.Feed),
		limiter:  util.NewRateLimiter(cfg.RateLimitPerMin),
		attempts: cfg.MaxAttempts,
		delay:    cfg.RetryDelay,
		log:      log.With("source", "us-alpaca"),
	}
	s.lastSession = func(context.Context) (time.Time, error) { return time.Time{}, nil }
	if cfg.BaseURL != "" {
		s.lastSession = func(context.Context) (time.Time, error) {
			return LatestFinishedTradingDay(cfg.APIKey, cfg.APISecret, cfg.BaseURL)
		}
	}
	return s
}

// Name returns the source identifier.
func (s *AlpacaSource) Name() string { return "us-alpaca" }

// Market returns domain.MarketUS.
func (s *AlpacaSource) Market() domain.Market { return domain.MarketUS }

// FetchDailyBars fetches adjusted daily bars for symbol. The end date is
// clamped to the latest finished trading session when a calendar is
// configured.
func (s *AlpacaSource) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	last, err := s.lastSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("determining end date: %w", err)
	}
	if !last.IsZero() && last.Before(end) {
		end = last.Add(24*time.Hour - time.Nanosecond)
	}
	if !end.After(start) {
		return nil, nil
	}

	var raw []marketdata.Bar
	err = util.Retry(ctx, s.attempts, s.delay, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var ferr error
		raw, ferr = s.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneDay,
			Adjustment: marketdata.Adjustment("all"),
			Start:      start,
			End:        end,
			Feed:       s.feed,
		})
		if ferr != nil {
			s.log.Warn("GetBars failed", "symbol", symbol, "err", ferr)
		}
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	return toDomainBars(symbol, raw), nil
}

// toDomainBars converts Alpaca bars to domain bars stamped at UTC midnight.
func toDomainBars(symbol string, raw []marketdata.Bar) []domain.Bar {
	symbol = strings.ToUpper(symbol)
	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		ts := ab.Timestamp.UTC()
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	return bars
}
