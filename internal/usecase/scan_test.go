package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Rectifex/internal/domain/models"
	domrepo "Rectifex/internal/domain/repository"
	applogger "Rectifex/pkg/logger"
)

type fakePriceCache struct {
	mu      sync.Mutex
	entries map[string]*models.CacheEntry
	series  map[string]*models.PriceSeries
	fresh   map[string]bool
	writes  int
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{
		entries: map[string]*models.CacheEntry{},
		series:  map[string]*models.PriceSeries{},
		fresh:   map[string]bool{},
	}
}

func cacheKey(symbol, period string) string { return symbol + "/" + period }

func (c *fakePriceCache) put(series *models.PriceSeries, fresh bool) {
	key := cacheKey(series.Symbol, series.Period)
	c.entries[key] = &models.CacheEntry{
		Symbol:    series.Symbol,
		Period:    series.Period,
		FetchedAt: time.Now(),
		Rows:      series.Len(),
	}
	c.series[key] = series
	c.fresh[key] = fresh
}

func (c *fakePriceCache) Get(symbol, period string) (*models.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[cacheKey(symbol, period)], nil
}

func (c *fakePriceCache) Read(symbol, period string) (*models.PriceSeries, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.series[cacheKey(symbol, period)]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return s, nil
}

func (c *fakePriceCache) Write(series *models.PriceSeries) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	c.put(series, true)
	return nil
}

func (c *fakePriceCache) IsFresh(entry *models.CacheEntry, _ time.Time) bool {
	if entry == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fresh[cacheKey(entry.Symbol, entry.Period)]
}

func (c *fakePriceCache) Clear(string, time.Time) (int, error) { return 0, nil }
func (c *fakePriceCache) Close() error                         { return nil }

func trendingSeries(symbol, period string, n int) *models.PriceSeries {
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		bars[i] = models.Bar{
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return &models.PriceSeries{Symbol: symbol, Period: period, Bars: bars}
}

func newTestEngine(p *fakeProvider, cache *fakePriceCache) *ScanEngine {
	fetcher := NewFetcher(p, nopMetrics{}, applogger.Nop(), FetcherOptions{
		Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	})
	return NewScanEngine(fetcher, cache, nil, nopMetrics{}, applogger.Nop())
}

func drain(t *testing.T, events <-chan models.ScanEvent) ([]models.ScanEvent, *models.ScanSummary) {
	t.Helper()
	var out []models.ScanEvent
	var summary *models.ScanSummary
	for ev := range events {
		if ev.Summary != nil {
			summary = ev.Summary
			continue
		}
		out = append(out, ev)
	}
	if summary == nil {
		t.Fatalf("stream ended without a summary event")
	}
	return out, summary
}

func TestScanRunUnknownStrategy(t *testing.T) {
	e := newTestEngine(newFakeProvider(), newFakePriceCache())
	if _, err := e.Run(context.Background(), ScanOptions{Strategy: "nope", Symbols: []string{"A"}}); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestScanRunEmptySymbols(t *testing.T) {
	e := newTestEngine(newFakeProvider(), newFakePriceCache())
	if _, err := e.Run(context.Background(), ScanOptions{Strategy: "momentum"}); err == nil {
		t.Fatalf("expected error for empty symbol list")
	}
}

func TestScanUsesFreshCacheWithoutFetching(t *testing.T) {
	p := newFakeProvider()
	cache := newFakePriceCache()
	cache.put(trendingSeries("AAPL", "1y", 120), true)
	cache.put(trendingSeries("MSFT", "1y", 120), true)

	e := newTestEngine(p, cache)
	events, err := e.Run(context.Background(), ScanOptions{
		Strategy: "momentum",
		Symbols:  []string{"AAPL", "MSFT"},
		Period:   "1y",
		Workers:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	evs, summary := drain(t, events)
	if len(evs) != 2 {
		t.Fatalf("expected one event per symbol, got %d", len(evs))
	}
	if summary.CacheHits != 2 || summary.CacheMisses != 0 {
		t.Fatalf("expected pure cache hits, got %+v", summary)
	}
	if p.batchCalls != 0 {
		t.Fatalf("provider should not be called on fresh cache")
	}
	if summary.Scored != 2 {
		t.Fatalf("uptrending symbols should score, got %+v", summary)
	}
}

func TestScanFetchesAndCachesMisses(t *testing.T) {
	p := newFakeProvider()
	p.barsPerSeries = 120
	cache := newFakePriceCache()

	e := newTestEngine(p, cache)
	events, err := e.Run(context.Background(), ScanOptions{
		Strategy: "momentum",
		Symbols:  []string{"AAPL"},
		Period:   "1y",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, summary := drain(t, events)
	if summary.CacheMisses != 1 {
		t.Fatalf("expected one miss, got %+v", summary)
	}
	if cache.writes != 1 {
		t.Fatalf("fetched series should be written back, writes=%d", cache.writes)
	}
}

func TestScanServesStaleOnFailedRefresh(t *testing.T) {
	p := newFakeProvider()
	down := context.DeadlineExceeded
	p.batchErrs = []error{down}
	p.singleErr["AAPL"] = down

	cache := newFakePriceCache()
	stale := trendingSeries("AAPL", "1y", 120)
	cache.put(stale, false)

	e := newTestEngine(p, cache)
	events, err := e.Run(context.Background(), ScanOptions{
		Strategy: "momentum",
		Symbols:  []string{"AAPL"},
		Period:   "1y",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	evs, summary := drain(t, events)
	if summary.Scored != 1 {
		t.Fatalf("stale series should still be evaluated, got %+v", summary)
	}
	if evs[0].Result == nil || !evs[0].Result.Stale {
		t.Fatalf("result should be flagged stale, got %+v", evs[0].Result)
	}
}

func TestScanSkipsSymbolsWithoutData(t *testing.T) {
	p := newFakeProvider()
	p.missing["DEAD"] = true
	p.singleErr["DEAD"] = domrepo.ErrNoData
	p.barsPerSeries = 120

	e := newTestEngine(p, newFakePriceCache())
	events, err := e.Run(context.Background(), ScanOptions{
		Strategy: "momentum",
		Symbols:  []string{"AAPL", "DEAD"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	evs, summary := drain(t, events)
	states := map[string]models.SymbolState{}
	for _, ev := range evs {
		states[ev.Symbol] = ev.State
	}
	if states["DEAD"] != models.StateSkipped {
		t.Fatalf("missing data should skip, got %v", states["DEAD"])
	}
	if summary.Skipped != 1 || summary.Scored != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestScanReportsFailedFetches(t *testing.T) {
	p := newFakeProvider()
	down := errors.New("provider down")
	for i := 0; i < 10; i++ {
		p.batchErrs = append(p.batchErrs, down)
	}
	p.singleErr["AAPL"] = down

	e := newTestEngine(p, newFakePriceCache())
	events, err := e.Run(context.Background(), ScanOptions{
		Strategy: "momentum",
		Symbols:  []string{"AAPL"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	evs, summary := drain(t, events)
	if len(evs) != 1 || evs[0].State != models.StateFailed {
		t.Fatalf("exhausted retries without a fallback should fail, got %+v", evs)
	}
	if !errors.Is(evs[0].Err, down) {
		t.Fatalf("event should carry the provider error, got %v", evs[0].Err)
	}
	if summary.Failed != 1 || summary.Skipped != 0 || summary.Scored != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestScanCancellation(t *testing.T) {
	p := newFakeProvider()
	cache := newFakePriceCache()
	symbols := make([]string, 50)
	for i := range symbols {
		s := trendingSeries(symbolName(i), "1y", 120)
		cache.put(s, true)
		symbols[i] = s.Symbol
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := newTestEngine(p, cache)
	events, err := e.Run(ctx, ScanOptions{
		Strategy: "momentum",
		Symbols:  symbols,
		Workers:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Read a couple of events, then cancel mid-run.
	<-events
	<-events
	cancel()

	_, summary := drain(t, events)
	if !summary.Cancelled {
		t.Fatalf("summary should report cancellation")
	}
	if summary.Scored+summary.Skipped+summary.Failed != summary.Total {
		t.Fatalf("summary does not account for every symbol: %+v", summary)
	}
}

type scanDoneMetrics struct {
	nopMetrics
	once sync.Once
	done chan struct{}
}

func (m *scanDoneMetrics) RecordScanDuration(string, float64) {
	m.once.Do(func() { close(m.done) })
}

func TestScanCancelledConsumerStopsReading(t *testing.T) {
	cache := newFakePriceCache()
	symbols := make([]string, 20)
	for i := range symbols {
		s := trendingSeries(symbolName(i), "1y", 120)
		cache.put(s, true)
		symbols[i] = s.Symbol
	}

	m := &scanDoneMetrics{done: make(chan struct{})}
	fetcher := NewFetcher(newFakeProvider(), nopMetrics{}, applogger.Nop(), FetcherOptions{
		Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	})
	e := NewScanEngine(fetcher, cache, nil, m, applogger.Nop())
	e.finalGrace = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	events, err := e.Run(ctx, ScanOptions{
		Strategy: "momentum",
		Symbols:  symbols,
		Workers:  1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-events
	cancel()

	// The consumer walks away without draining; the run goroutine must
	// still terminate and record the scan.
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not terminate after the consumer stopped reading")
	}
}

func symbolName(i int) string {
	letters := []byte{'A' + byte(i/26%26), 'A' + byte(i%26)}
	return "S" + string(letters)
}
