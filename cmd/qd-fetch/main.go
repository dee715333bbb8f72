package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quantdir/internal/config"
	"quantdir/internal/gather"
	"quantdir/internal/gather/us"
	"quantdir/internal/store"
	"quantdir/internal/util"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tickers := flag.String("ticker", strings.Join(cfg.Experiment.Tickers, ","), "comma-separated tickers")
	startDate := flag.String("start", cfg.Experiment.StartDate, "first date to fetch (YYYY-MM-DD)")
	flag.Parse()

	start, err := time.Parse(time.DateOnly, *startDate)
	if err != nil {
		log.Fatalf("invalid -start %q: %v", *startDate, err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	source := us.NewAlpacaSource(us.Config{
		APIKey:          cfg.Alpaca.APIKey,
		APISecret:       cfg.Alpaca.APISecret,
		DataURL:         cfg.Alpaca.DataURL,
		BaseURL:         cfg.Alpaca.BaseURL,
		Feed:            cfg.Alpaca.Feed,
		RateLimitPerMin: cfg.Gather.RateLimitPerMin,
		MaxAttempts:     cfg.Gather.MaxAttempts,
		RetryDelay:      cfg.Gather.RetryDelay,
	}, logger)
	loader := gather.NewLoader(source, pstore, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var failed int
	for _, t := range strings.Split(*tickers, ",") {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		bars, err := loader.Refresh(ctx, t, start)
		if err != nil {
			logger.Error("fetch failed", "ticker", t, "err", err)
			failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}
		logger.Info("cached", "ticker", strings.ToUpper(t), "bars", len(bars))
	}
	if failed > 0 {
		log.Fatalf("%d ticker(s) failed", failed)
	}
}
