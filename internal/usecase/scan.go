package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Rectifex/internal/domain/models"
	domrepo "Rectifex/internal/domain/repository"
	"Rectifex/internal/scans"
	applogger "Rectifex/pkg/logger"
)

// ScanOptions configures a single scan run.
type ScanOptions struct {
	Strategy string
	Symbols  []string
	Period   string
	Params   scans.Params
	Profile  string
	Workers  int
}

// ScanEngine coordinates price loading, fundamental lookups and scenario
// evaluation across a worker pool, streaming one event per symbol plus a
// final summary event.
type ScanEngine struct {
	fetcher      *Fetcher
	cache        domrepo.PriceCache
	fundamentals *FundamentalsService
	metrics      domrepo.Metrics
	log          *applogger.Logger
	now          func() time.Time
	finalGrace   time.Duration
}

func NewScanEngine(fetcher *Fetcher, cache domrepo.PriceCache, fundamentals *FundamentalsService, metrics domrepo.Metrics, log *applogger.Logger) *ScanEngine {
	return &ScanEngine{
		fetcher:      fetcher,
		cache:        cache,
		fundamentals: fundamentals,
		metrics:      metrics,
		log:          log,
		now:          time.Now,
		finalGrace:   time.Second,
	}
}

// loadedSeries pairs a price series with whether it came from an expired
// cache entry after a failed refresh. err is set when every fetch attempt
// errored and no stale fallback existed.
type loadedSeries struct {
	series *models.PriceSeries
	stale  bool
	err    error
}

// Run starts the scan and returns its event stream. The channel carries one
// event per symbol in completion order and is closed after a final event
// whose Summary is non-nil; consumers must drain the stream until it closes.
// Cancelling ctx stops the run; symbols not yet evaluated are counted as
// skipped in the summary.
func (e *ScanEngine) Run(ctx context.Context, opts ScanOptions) (<-chan models.ScanEvent, error) {
	scenario, ok := scans.Get(opts.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", opts.Strategy)
	}
	if len(opts.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols to scan")
	}

	period := domrepo.NormalizePeriod(opts.Period)
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(opts.Symbols) {
		workers = len(opts.Symbols)
	}

	events := make(chan models.ScanEvent, workers)
	go e.run(ctx, scenario, opts, period, workers, events)
	return events, nil
}

func (e *ScanEngine) run(ctx context.Context, scenario scans.Scenario, opts ScanOptions, period string, workers int, events chan<- models.ScanEvent) {
	defer close(events)
	start := e.now()

	summary := &models.ScanSummary{Total: len(opts.Symbols)}
	var summaryMu sync.Mutex

	priceMap := e.loadPrices(ctx, opts.Symbols, period, summary)

	needsFundamentals := false
	if fu, ok := scenario.(interface{ UsesFundamentals() bool }); ok {
		needsFundamentals = fu.UsesFundamentals()
	}

	jobs := make(chan string)
	var wg sync.WaitGroup

	emit := func(ev models.ScanEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				ev := e.evaluate(ctx, scenario, opts, symbol, priceMap[symbol], needsFundamentals)

				summaryMu.Lock()
				switch ev.State {
				case models.StateScored:
					summary.Scored++
				case models.StateSkipped:
					summary.Skipped++
				case models.StateFailed:
					summary.Failed++
				}
				summaryMu.Unlock()
				e.metrics.RecordSymbolState(string(ev.State))

				if !emit(ev) {
					return
				}
			}
		}()
	}

	cancelled := false
dispatch:
	for _, symbol := range opts.Symbols {
		select {
		case jobs <- symbol:
		case <-ctx.Done():
			cancelled = true
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		cancelled = true
	}

	summaryMu.Lock()
	summary.Cancelled = cancelled
	summary.Skipped += summary.Total - summary.Scored - summary.Skipped - summary.Failed
	summary.Duration = e.now().Sub(start)
	final := *summary
	summaryMu.Unlock()

	// The summary event is delivered even after cancellation so draining
	// consumers observe the terminal state. A cancelled consumer may have
	// stopped reading entirely, so once ctx is done the send is bounded.
	if ctx.Err() == nil {
		events <- models.ScanEvent{Summary: &final}
	} else {
		select {
		case events <- models.ScanEvent{Summary: &final}:
		case <-time.After(e.finalGrace):
		}
	}

	e.metrics.RecordScanDuration(opts.Strategy, final.Duration.Seconds())
	e.log.Info("scan finished",
		applogger.String("strategy", opts.Strategy),
		applogger.Int("total", final.Total),
		applogger.Int("scored", final.Scored),
		applogger.Int("skipped", final.Skipped),
		applogger.Int("failed", final.Failed),
		applogger.Duration("duration", final.Duration))
}

// loadPrices resolves each symbol's series from the cache, falling back to a
// batch fetch for missing or expired entries. Expired entries are retained
// as a stale fallback when the refresh fails; a failed fetch without a
// fallback carries its error so the worker reports the symbol as failed.
func (e *ScanEngine) loadPrices(ctx context.Context, symbols []string, period string, summary *models.ScanSummary) map[string]loadedSeries {
	priceMap := make(map[string]loadedSeries, len(symbols))
	staleMap := make(map[string]*models.PriceSeries)
	var toFetch []string

	for _, symbol := range symbols {
		entry, err := e.cache.Get(symbol, period)
		if err != nil {
			e.log.Warn("cache index read failed",
				applogger.String("symbol", symbol),
				applogger.Error(err))
			toFetch = append(toFetch, symbol)
			continue
		}
		if entry == nil {
			e.metrics.RecordCacheOutcome("miss")
			toFetch = append(toFetch, symbol)
			continue
		}

		series, err := e.cache.Read(symbol, period)
		if err != nil {
			if !errors.Is(err, domrepo.ErrNotFound) {
				e.log.Warn("cache read failed",
					applogger.String("symbol", symbol),
					applogger.Error(err))
			}
			e.metrics.RecordCacheOutcome("miss")
			toFetch = append(toFetch, symbol)
			continue
		}

		if e.cache.IsFresh(entry, e.now()) {
			e.metrics.RecordCacheOutcome("hit")
			summary.CacheHits++
			priceMap[symbol] = loadedSeries{series: series}
			continue
		}

		e.metrics.RecordCacheOutcome("expired")
		staleMap[symbol] = series
		toFetch = append(toFetch, symbol)
	}

	if len(toFetch) == 0 {
		return priceMap
	}

	for _, outcome := range e.fetcher.FetchBatch(ctx, toFetch, period) {
		switch outcome.Status {
		case models.FetchSuccess:
			summary.CacheMisses++
			if err := e.cache.Write(outcome.Series); err != nil {
				e.log.Warn("cache write failed",
					applogger.String("symbol", outcome.Symbol),
					applogger.Error(err))
			}
			priceMap[outcome.Symbol] = loadedSeries{series: outcome.Series}
		default:
			if stale, ok := staleMap[outcome.Symbol]; ok {
				e.log.Warn("serving expired cache entry after failed refresh",
					applogger.String("symbol", outcome.Symbol))
				priceMap[outcome.Symbol] = loadedSeries{series: stale, stale: true}
			} else if outcome.Status == models.FetchFailed {
				priceMap[outcome.Symbol] = loadedSeries{err: outcome.Err}
			}
		}
	}

	return priceMap
}

func (e *ScanEngine) evaluate(ctx context.Context, scenario scans.Scenario, opts ScanOptions, symbol string, loaded loadedSeries, needsFundamentals bool) models.ScanEvent {
	if err := ctx.Err(); err != nil {
		return models.ScanEvent{Symbol: symbol, State: models.StateSkipped, Reason: "cancelled"}
	}
	if loaded.err != nil {
		return models.ScanEvent{Symbol: symbol, State: models.StateFailed, Reason: "fetch failed", Err: loaded.err}
	}
	if loaded.series.Empty() {
		return models.ScanEvent{Symbol: symbol, State: models.StateSkipped, Reason: "no price data"}
	}

	var fundamentals models.Fundamentals
	if needsFundamentals && e.fundamentals != nil {
		f, err := e.fundamentals.Get(ctx, symbol)
		if err != nil && !errors.Is(err, domrepo.ErrNoData) {
			e.log.Warn("fundamentals unavailable",
				applogger.String("symbol", symbol),
				applogger.Error(err))
		}
		fundamentals = f
	}

	var result *models.ScanResult
	var signals []models.TradeSignal
	if ps, ok := scenario.(interface {
		EvaluateProfile(*models.PriceSeries, models.Fundamentals, scans.Params, string) (*models.ScanResult, []models.TradeSignal)
	}); ok && opts.Profile != "" {
		result, signals = ps.EvaluateProfile(loaded.series, fundamentals, opts.Params, opts.Profile)
	} else {
		result, signals = scenario.Evaluate(loaded.series, fundamentals, opts.Params)
	}

	if result == nil && len(signals) == 0 {
		return models.ScanEvent{Symbol: symbol, State: models.StateSkipped, Reason: "below threshold"}
	}

	if result != nil {
		result.Stale = loaded.stale
		e.metrics.RecordScore(symbol, opts.Strategy, result.Score)
	}
	return models.ScanEvent{
		Symbol:  symbol,
		State:   models.StateScored,
		Result:  result,
		Signals: signals,
	}
}
