package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"quantdir/internal/backtest"
	"quantdir/internal/config"
	"quantdir/internal/experiment"
	"quantdir/internal/gather"
	"quantdir/internal/gather/us"
	"quantdir/internal/metrics"
	"quantdir/internal/model"
	"quantdir/internal/store"
	"quantdir/internal/util"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	exp := cfg.Experiment

	tickers := flag.String("ticker", strings.Join(exp.Tickers, ","), "comma-separated tickers")
	startDate := flag.String("start", exp.StartDate, "first date of price history (YYYY-MM-DD)")
	horizon := flag.Int("horizon", exp.Horizon, "prediction horizon in trading days")
	split := flag.Float64("split", exp.SplitRatio, "fraction of rows used for training")
	modelName := flag.String("model", exp.Model, "classifier: "+strings.Join(model.DefaultRegistry().List(), ", "))
	workers := flag.Int("workers", exp.Workers, "experiments run in parallel")
	flag.Parse()

	start, err := time.Parse(time.DateOnly, *startDate)
	if err != nil {
		log.Fatalf("invalid -start %q: %v", *startDate, err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening run store: %v", err)
	}
	defer runs.Close()

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

	runner := experiment.NewRunner(loader, pstore, runs, model.DefaultRegistry(),
		backtest.NewBacktester(exp.RiskFreeRate, logger), logger)

	var params []experiment.Params
	for _, t := range strings.Split(*tickers, ",") {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		params = append(params, experiment.Params{
			Ticker:     t,
			Start:      start,
			Horizon:    *horizon,
			SplitRatio: *split,
			Model:      *modelName,
		})
	}
	if len(params) == 0 {
		log.Fatalf("no tickers given")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reports, runErr := runner.RunAll(ctx, params, *workers)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tMODEL\tTRAIN\tTEST\tACCURACY\tRETURN\tSHARPE\tMAX DD\tTRADES\tRUN")
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		r := rep.Run
		sharpe := "n/a"
		if r.Sharpe != nil {
			sharpe = fmt.Sprintf("%.2f", *r.Sharpe)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.3f\t%+.2f%%\t%s\t%.2f%%\t%d\t%s\n",
			r.Ticker, r.Model, r.TrainRows, r.TestRows, r.Accuracy,
			100*r.TotalReturn, sharpe, 100*r.MaxDrawdown, r.TotalTrades, r.ID)
	}
	tw.Flush()

	if runErr != nil {
		log.Fatalf("experiment errors: %v", runErr)
	}
}
