// Package experiment wires the pipeline end to end: load prices, build
// features, label, split, fit a classifier, backtest its out-of-sample
// predictions, and persist the results.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quantdir/internal/backtest"
	"quantdir/internal/dataset"
	"quantdir/internal/domain"
	"quantdir/internal/features"
	"quantdir/internal/frame"
	"quantdir/internal/metrics"
	"quantdir/internal/model"
	"quantdir/internal/store"
)

// ErrEmptyPartition is returned when the chronological split leaves the
// training or test partition without rows.
var ErrEmptyPartition = errors.New("experiment: empty train or test partition")

// Frame kinds written to the FrameStore.
const (
	KindFeatures = "features"
	KindBacktest = "backtest"
)

// BarLoader supplies cleaned daily bars for a ticker.
type BarLoader interface {
	Load(ctx context.Context, symbol string, start time.Time) ([]domain.Bar, error)
}

// Params selects one experiment.
type Params struct {
	Ticker     string
	Start      time.Time
	Horizon    int
	SplitRatio float64
	Model      string
}

// Report is the outcome of one experiment.
type Report struct {
	Run      domain.Run
	Backtest *backtest.Result
	// Audit counts non-finite feature values left after dropping undefined rows.
	Audit dataset.Audit
}

// Runner executes experiments against shared stores and a model registry.
type Runner struct {
	loader     BarLoader
	frames     store.FrameStore
	runs       store.RunStore
	models     *model.Registry
	backtester *backtest.Backtester
	log        *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewRunner creates a Runner. A nil logger uses slog.Default.
func NewRunner(
	loader BarLoader,
	frames store.FrameStore,
	runs store.RunStore,
	models *model.Registry,
	bt *backtest.Backtester,
	log *slog.Logger,
) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		loader:     loader,
		frames:     frames,
		runs:       runs,
		models:     models,
		backtester: bt,
		log:        log.With("component", "experiment"),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.NewString() },
	}
}

// Run executes one experiment and persists its feature table, backtest frame,
// and run summary.
func (r *Runner) Run(ctx context.Context, p Params) (*Report, error) {
	started := time.Now()
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))

	rep, err := r.run(ctx, p)

	status := "ok"
	if err != nil {
		status = "error"
	}
	label := r.modelLabel(p.Model)
	metrics.ExperimentsTotal.WithLabelValues(label, status).Inc()
	metrics.ExperimentSeconds.WithLabelValues(label).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", p.Ticker, p.Model, err)
	}
	metrics.RecordRun(&rep.Run)
	return rep, nil
}

// modelLabel bounds the metric label set to registered model names.
func (r *Runner) modelLabel(name string) string {
	if slices.Contains(r.models.List(), name) {
		return name
	}
	return "unknown"
}

func (r *Runner) run(ctx context.Context, p Params) (*Report, error) {
	if p.Ticker == "" {
		return nil, errors.New("empty ticker")
	}
	if p.Horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", p.Horizon)
	}
	clf, ok := r.models.New(p.Model)
	if !ok {
		return nil, fmt.Errorf("unknown model %q (available: %s)", p.Model, strings.Join(r.models.List(), ", "))
	}
	log := r.log.With("ticker", p.Ticker, "model", p.Model)

	bars, err := r.loader.Load(ctx, p.Ticker, p.Start)
	if err != nil {
		return nil, err
	}
	metrics.BarsLoaded.WithLabelValues(p.Ticker).Add(float64(len(bars)))

	feats := features.Build(frame.FromBars(bars))
	if err := r.frames.WriteFrame(ctx, p.Ticker, KindFeatures, feats); err != nil {
		return nil, err
	}

	labeled, err := dataset.CreateTarget(feats, p.Horizon)
	if err != nil {
		return nil, err
	}
	cols := features.Columns()
	ready := dataset.DropUndefined(labeled, cols)
	audit := dataset.AuditTable(ready, cols...)
	if !audit.Clean() {
		return nil, fmt.Errorf("features hold %d NaN and %d Inf values after cleaning", audit.NaN, audit.Inf)
	}

	train, test, err := dataset.Chronological(ready, p.SplitRatio)
	if err != nil {
		return nil, err
	}
	if train.Len() == 0 || test.Len() == 0 {
		return nil, fmt.Errorf("%d usable rows split %d/%d: %w", ready.Len(), train.Len(), test.Len(), ErrEmptyPartition)
	}
	log.Info("dataset ready",
		"bars", len(bars),
		"rows", ready.Len(),
		"train", train.Len(),
		"test", test.Len(),
		"trainEnd", train.Date(train.Len()-1).Format(time.DateOnly),
	)

	if err := clf.Fit(ctx, train.Matrix(cols), dataset.Labels(train)); err != nil {
		return nil, fmt.Errorf("fitting: %w", err)
	}
	preds, err := clf.Predict(test.Matrix(cols))
	if err != nil {
		return nil, fmt.Errorf("predicting: %w", err)
	}
	acc := accuracy(preds, dataset.Labels(test))

	res, err := r.backtester.Evaluate(ctx, test, preds)
	if err != nil {
		return nil, fmt.Errorf("backtesting: %w", err)
	}
	if err := r.frames.WriteFrame(ctx, p.Ticker, KindBacktest, res.Frame); err != nil {
		return nil, err
	}

	run := domain.Run{
		ID:           r.newID(),
		Ticker:       p.Ticker,
		Model:        p.Model,
		Horizon:      p.Horizon,
		SplitRatio:   p.SplitRatio,
		StartDate:    p.Start,
		TrainRows:    train.Len(),
		TestRows:     test.Len(),
		Accuracy:     acc,
		MaxDrawdown:  res.MaxDrawdown,
		TotalReturn:  res.TotalReturn,
		TotalTrades:  res.TotalTrades,
		WinRate:      res.WinRate,
		ProfitFactor: res.ProfitFactor,
		CreatedAt:    r.now(),
	}
	if res.SharpeDefined {
		sharpe := res.SharpeRatio
		run.Sharpe = &sharpe
	}
	if err := r.runs.SaveRun(ctx, &run); err != nil {
		return nil, err
	}

	log.Info("experiment complete",
		"run", run.ID,
		"accuracy", acc,
		"totalReturn", res.TotalReturn,
		"sharpeDefined", res.SharpeDefined,
		"sharpe", res.SharpeRatio,
		"maxDrawdown", res.MaxDrawdown,
	)
	return &Report{Run: run, Backtest: res, Audit: audit}, nil
}

// RunAll runs one experiment per params entry with at most workers running
// at once. Reports are returned in input order; a failed experiment leaves a
// nil entry and its error is joined into the returned error. workers <= 0
// means no limit.
func (r *Runner) RunAll(ctx context.Context, params []Params, workers int) ([]*Report, error) {
	reports := make([]*Report, len(params))
	errs := make([]error, len(params))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, p := range params {
		g.Go(func() error {
			rep, err := r.Run(gctx, p)
			if err != nil {
				// Independent tickers keep running; only cancellation stops the group.
				errs[i] = err
				if ctx.Err() != nil {
					return err
				}
				return nil
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, errors.Join(errs...)
}

func accuracy(pred, want []int) float64 {
	if len(want) == 0 {
		return 0
	}
	var hit int
	for i := range want {
		if pred[i] == want[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(want))
}
