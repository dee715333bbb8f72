// Package metrics exposes experiment telemetry as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quantdir/internal/domain"
)

var (
	ExperimentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quantdir_experiments_total", Help: "Experiments finished, by outcome"},
		[]string{"model", "status"},
	)
	ExperimentSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quantdir_experiment_duration_seconds",
			Help:    "Wall time of one experiment",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"model"},
	)
	BarsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quantdir_bars_loaded_total", Help: "Daily bars loaded into experiments"},
		[]string{"ticker"},
	)
	Accuracy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "quantdir_accuracy", Help: "Out-of-sample classification accuracy of the latest run"},
		[]string{"ticker", "model"},
	)
	SharpeRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "quantdir_sharpe_ratio", Help: "Annualised Sharpe ratio of the latest run; absent when undefined"},
		[]string{"ticker", "model"},
	)
	MaxDrawdown = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "quantdir_max_drawdown", Help: "Maximum drawdown of the latest run"},
		[]string{"ticker", "model"},
	)
	TotalReturn = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "quantdir_total_return", Help: "Total strategy return of the latest run"},
		[]string{"ticker", "model"},
	)
)

func init() {
	prometheus.MustRegister(ExperimentsTotal, ExperimentSeconds, BarsLoaded,
		Accuracy, SharpeRatio, MaxDrawdown, TotalReturn)
}

// RecordRun publishes the results of a finished run.
func RecordRun(r *domain.Run) {
	Accuracy.WithLabelValues(r.Ticker, r.Model).Set(r.Accuracy)
	MaxDrawdown.WithLabelValues(r.Ticker, r.Model).Set(r.MaxDrawdown)
	TotalReturn.WithLabelValues(r.Ticker, r.Model).Set(r.TotalReturn)
	if r.Sharpe != nil {
		SharpeRatio.WithLabelValues(r.Ticker, r.Model).Set(*r.Sharpe)
	} else {
		SharpeRatio.DeleteLabelValues(r.Ticker, r.Model)
	}
}

// Serve starts a /metrics endpoint on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
