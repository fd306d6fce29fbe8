package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchAttempts *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	cacheOps      *prometheus.CounterVec
	symbolsDone   *prometheus.CounterVec
	scanDuration  *prometheus.HistogramVec
	lastScore     *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rectifex_fetch_attempts_total",
				Help: "Total number of provider fetch attempts",
			},
			[]string{"mode"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rectifex_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cacheOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rectifex_cache_ops_total",
				Help: "Price cache hits, misses and stale fallbacks",
			},
			[]string{"outcome"},
		),
		symbolsDone: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rectifex_scan_symbols_total",
				Help: "Symbols processed by terminal state",
			},
			[]string{"state"},
		),
		scanDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rectifex_scan_duration_seconds",
				Help:    "Duration of full scan runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"strategy"},
		),
		lastScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rectifex_last_score",
				Help: "Last computed score for a symbol",
			},
			[]string{"symbol", "strategy"},
		),
	}
}

// RecordFetchAttempt records a provider request in batch or single mode.
func (r *Recorder) RecordFetchAttempt(mode string) {
	r.fetchAttempts.WithLabelValues(mode).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheOutcome records a price cache hit, miss or stale fallback.
func (r *Recorder) RecordCacheOutcome(outcome string) {
	r.cacheOps.WithLabelValues(outcome).Inc()
}

// RecordSymbolState records a symbol reaching a terminal scan state.
func (r *Recorder) RecordSymbolState(state string) {
	r.symbolsDone.WithLabelValues(state).Inc()
}

// RecordScanDuration records how long a complete scan took.
func (r *Recorder) RecordScanDuration(strategy string, seconds float64) {
	r.scanDuration.WithLabelValues(strategy).Observe(seconds)
}

// RecordScore records the last score computed for a symbol.
func (r *Recorder) RecordScore(symbol, strategy string, score float64) {
	r.lastScore.WithLabelValues(symbol, strategy).Set(score)
}
