package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"Rectifex/internal/domain/models"
	domrepo "Rectifex/internal/domain/repository"
	applogger "Rectifex/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordFetchAttempt(string)           {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordCacheOutcome(string)           {}
func (nopMetrics) RecordSymbolState(string)            {}
func (nopMetrics) RecordScanDuration(string, float64)  {}
func (nopMetrics) RecordScore(string, string, float64) {}

type fakeProvider struct {
	mu            sync.Mutex
	batchCalls    int
	singleCalls   map[string]int
	batchErrs     []error // consumed per call, nil means success
	singleErr     map[string]error
	missing       map[string]bool // absent from batch result
	barsPerSeries int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		singleCalls:   map[string]int{},
		singleErr:     map[string]error{},
		missing:       map[string]bool{},
		barsPerSeries: 5,
	}
}

func (p *fakeProvider) series(symbol, period string) *models.PriceSeries {
	bars := make([]models.Bar, p.barsPerSeries)
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.Bar{Date: base.AddDate(0, 0, i), Close: 100 + float64(i), Volume: 1000}
	}
	return &models.PriceSeries{Symbol: symbol, Period: period, Bars: bars}
}

func (p *fakeProvider) History(_ context.Context, symbol, period string) (*models.PriceSeries, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.singleCalls[symbol]++
	if err := p.singleErr[symbol]; err != nil {
		return nil, err
	}
	return p.series(symbol, period), nil
}

func (p *fakeProvider) HistoryBatch(_ context.Context, symbols []string, period string) (map[string]*models.PriceSeries, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := p.batchCalls
	p.batchCalls++
	if call < len(p.batchErrs) && p.batchErrs[call] != nil {
		return nil, p.batchErrs[call]
	}
	out := make(map[string]*models.PriceSeries, len(symbols))
	for _, s := range symbols {
		if p.missing[s] {
			continue
		}
		out[s] = p.series(s, period)
	}
	return out, nil
}

func noSleep(t *testing.T, delays *[]time.Duration) SleepFunc {
	t.Helper()
	var mu sync.Mutex
	return func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		*delays = append(*delays, d)
		mu.Unlock()
		return ctx.Err()
	}
}

func newTestFetcher(p *fakeProvider, opts FetcherOptions) *Fetcher {
	return NewFetcher(p, nopMetrics{}, applogger.Nop(), opts)
}

func TestFetchBatchHappyPath(t *testing.T) {
	p := newFakeProvider()
	f := newTestFetcher(p, FetcherOptions{ChunkSize: 2})

	symbols := []string{"AAPL", "MSFT", "GOOG"}
	outcomes := f.FetchBatch(context.Background(), symbols, "1y")

	if len(outcomes) != 3 {
		t.Fatalf("expected one outcome per symbol, got %d", len(outcomes))
	}
	for i, out := range outcomes {
		if out.Symbol != symbols[i] {
			t.Fatalf("outcomes out of order: %v", outcomes)
		}
		if out.Status != models.FetchSuccess {
			t.Fatalf("expected success for %s, got %v", out.Symbol, out.Status)
		}
		if out.Series.Empty() {
			t.Fatalf("expected data for %s", out.Symbol)
		}
	}
	if p.batchCalls != 2 {
		t.Fatalf("expected 2 chunk calls for chunk size 2, got %d", p.batchCalls)
	}
}

func TestFetchBatchRetriesWithBackoff(t *testing.T) {
	p := newFakeProvider()
	p.batchErrs = []error{errors.New("boom"), errors.New("boom")}

	var delays []time.Duration
	f := newTestFetcher(p, FetcherOptions{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		BackoffFactor:  2.0,
		Sleep:          noSleep(t, &delays),
	})

	outcomes := f.FetchBatch(context.Background(), []string{"AAPL"}, "1y")
	if outcomes[0].Status != models.FetchSuccess {
		t.Fatalf("third attempt should succeed, got %v", outcomes[0])
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(delays))
	}
	if delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("expected exponential delays 1s,2s got %v", delays)
	}
}

func TestFetchBatchDegradesToSingle(t *testing.T) {
	p := newFakeProvider()
	p.batchErrs = []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}

	var delays []time.Duration
	f := newTestFetcher(p, FetcherOptions{MaxAttempts: 3, Sleep: noSleep(t, &delays)})

	outcomes := f.FetchBatch(context.Background(), []string{"AAPL", "MSFT"}, "1y")
	for _, out := range outcomes {
		if out.Status != models.FetchSuccess {
			t.Fatalf("per-symbol fallback should recover %s, got %v", out.Symbol, out.Status)
		}
	}
	if p.singleCalls["AAPL"] != 1 || p.singleCalls["MSFT"] != 1 {
		t.Fatalf("expected one single fetch per symbol, got %v", p.singleCalls)
	}
}

func TestFetchBatchMissingSymbolFallsBack(t *testing.T) {
	p := newFakeProvider()
	p.missing["DEAD"] = true
	p.singleErr["DEAD"] = domrepo.ErrNoData

	var delays []time.Duration
	f := newTestFetcher(p, FetcherOptions{Sleep: noSleep(t, &delays)})

	outcomes := f.FetchBatch(context.Background(), []string{"AAPL", "DEAD"}, "1y")
	byor := map[string]models.FetchOutcome{}
	for _, out := range outcomes {
		byor[out.Symbol] = out
	}
	if byor["AAPL"].Status != models.FetchSuccess {
		t.Fatalf("AAPL should succeed")
	}
	if byor["DEAD"].Status != models.FetchSkipped {
		t.Fatalf("no-data symbol should be skipped, got %v", byor["DEAD"])
	}
	if len(delays) != 0 {
		t.Fatalf("no-data answers must not be retried, slept %v", delays)
	}
}

func TestFetchBatchPermanentFailure(t *testing.T) {
	p := newFakeProvider()
	permanent := errors.New("provider down")
	for i := 0; i < 10; i++ {
		p.batchErrs = append(p.batchErrs, permanent)
	}
	p.singleErr["AAPL"] = permanent

	var delays []time.Duration
	f := newTestFetcher(p, FetcherOptions{MaxAttempts: 2, Sleep: noSleep(t, &delays)})

	outcomes := f.FetchBatch(context.Background(), []string{"AAPL"}, "1y")
	if outcomes[0].Status != models.FetchFailed {
		t.Fatalf("expected failure, got %v", outcomes[0].Status)
	}
	if outcomes[0].Err == nil || !errors.Is(outcomes[0].Err, permanent) {
		t.Fatalf("failure should carry the last error, got %v", outcomes[0].Err)
	}
}

func TestFetchBatchCancelledContext(t *testing.T) {
	p := newFakeProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(p, FetcherOptions{})
	outcomes := f.FetchBatch(ctx, []string{"AAPL", "MSFT"}, "1y")
	for _, out := range outcomes {
		if out.Status != models.FetchFailed {
			t.Fatalf("cancelled context should fail %s, got %v", out.Symbol, out.Status)
		}
		if !errors.Is(out.Err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", out.Err)
		}
	}
	if p.batchCalls != 0 {
		t.Fatalf("no provider calls expected after cancellation, got %d", p.batchCalls)
	}
}

func TestFetchSingleSkipsEmptySeries(t *testing.T) {
	p := newFakeProvider()
	p.barsPerSeries = 0

	f := newTestFetcher(p, FetcherOptions{})
	out := f.FetchSingle(context.Background(), "AAPL", "1y")
	if out.Status != models.FetchSkipped {
		t.Fatalf("empty series should be skipped, got %v", out.Status)
	}
}

func TestChunked(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	chunks := chunked(items, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if fmt.Sprint(chunks[2]) != "[e]" {
		t.Fatalf("unexpected tail chunk %v", chunks[2])
	}
}
