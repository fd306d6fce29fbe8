package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Rectifex/internal/domain/models"
	domrepo "Rectifex/internal/domain/repository"
	applogger "Rectifex/pkg/logger"
)

// SleepFunc waits for d or until ctx is done. Injectable so retry tests run
// without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetcherOptions tunes the retry and batching behavior.
type FetcherOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	BackoffFactor  float64
	ChunkSize      int
	Sleep          SleepFunc
}

func (o *FetcherOptions) applyDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.BackoffFactor < 1 {
		o.BackoffFactor = 2.0
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 60
	}
	if o.Sleep == nil {
		o.Sleep = defaultSleep
	}
}

// Fetcher pulls price history from the upstream provider with exponential
// backoff and a per-symbol fallback when a whole chunk keeps failing.
type Fetcher struct {
	provider domrepo.MarketData
	metrics  domrepo.Metrics
	log      *applogger.Logger
	opts     FetcherOptions
}

func NewFetcher(provider domrepo.MarketData, metrics domrepo.Metrics, log *applogger.Logger, opts FetcherOptions) *Fetcher {
	opts.applyDefaults()
	return &Fetcher{
		provider: provider,
		metrics:  metrics,
		log:      log,
		opts:     opts,
	}
}

// FetchBatch retrieves history for every symbol, chunked to the provider's
// comfortable request size. The result is a mapping keyed by the embedded
// Symbol field and materialized in input order: every requested symbol
// yields exactly one outcome regardless of completion order. A cancelled
// context fails the remaining symbols.
func (f *Fetcher) FetchBatch(ctx context.Context, symbols []string, period string) []models.FetchOutcome {
	outcomes := make(map[string]models.FetchOutcome, len(symbols))

	for _, chunk := range chunked(symbols, f.opts.ChunkSize) {
		if err := ctx.Err(); err != nil {
			for _, symbol := range chunk {
				outcomes[symbol] = models.Failed(symbol, err)
			}
			continue
		}
		f.fetchChunk(ctx, chunk, period, outcomes)
	}

	ordered := make([]models.FetchOutcome, 0, len(symbols))
	for _, symbol := range symbols {
		if out, ok := outcomes[symbol]; ok {
			ordered = append(ordered, out)
		} else {
			ordered = append(ordered, models.Skipped(symbol, "no data returned"))
		}
	}
	return ordered
}

// FetchSingle retrieves one symbol with the same retry policy.
func (f *Fetcher) FetchSingle(ctx context.Context, symbol, period string) models.FetchOutcome {
	series, err := f.withRetries(ctx, symbol, func() (*models.PriceSeries, error) {
		f.metrics.RecordFetchAttempt("single")
		return f.provider.History(ctx, symbol, period)
	})
	if err != nil {
		if errors.Is(err, domrepo.ErrNoData) {
			return models.Skipped(symbol, "provider has no data")
		}
		f.metrics.RecordError("fetch")
		return models.Failed(symbol, fmt.Errorf("fetch %s: %w", symbol, err))
	}
	if series.Empty() {
		return models.Skipped(symbol, "empty series")
	}
	return models.Success(series)
}

func (f *Fetcher) fetchChunk(ctx context.Context, chunk []string, period string, outcomes map[string]models.FetchOutcome) {
	batch, err := f.withRetriesBatch(ctx, chunk, func() (map[string]*models.PriceSeries, error) {
		f.metrics.RecordFetchAttempt("batch")
		return f.provider.HistoryBatch(ctx, chunk, period)
	})
	if err != nil {
		f.log.Warn("batch fetch degraded to per-symbol requests",
			applogger.Int("chunk_size", len(chunk)),
			applogger.Error(err))
		f.metrics.RecordError("batch_fetch")
		for _, symbol := range chunk {
			outcomes[symbol] = f.FetchSingle(ctx, symbol, period)
		}
		return
	}

	for _, symbol := range chunk {
		series, ok := batch[symbol]
		if !ok || series.Empty() {
			// Absent from a successful batch usually means delisted, but
			// a single retry catches symbols the batch endpoint mishandles.
			out := f.FetchSingle(ctx, symbol, period)
			outcomes[symbol] = out
			continue
		}
		outcomes[symbol] = models.Success(series)
	}
}

func (f *Fetcher) withRetries(ctx context.Context, symbol string, op func() (*models.PriceSeries, error)) (*models.PriceSeries, error) {
	var lastErr error
	delay := f.opts.InitialBackoff

	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		series, err := op()
		if err == nil {
			return series, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err

		f.log.Debug("fetch attempt failed",
			applogger.String("symbol", symbol),
			applogger.Int("attempt", attempt),
			applogger.Error(err))

		if attempt == f.opts.MaxAttempts {
			break
		}
		if err := f.opts.Sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = time.Duration(float64(delay) * f.opts.BackoffFactor)
	}
	return nil, lastErr
}

func (f *Fetcher) withRetriesBatch(ctx context.Context, chunk []string, op func() (map[string]*models.PriceSeries, error)) (map[string]*models.PriceSeries, error) {
	var lastErr error
	delay := f.opts.InitialBackoff

	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		batch, err := op()
		if err == nil {
			return batch, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err

		f.log.Debug("batch attempt failed",
			applogger.Int("chunk_size", len(chunk)),
			applogger.Int("attempt", attempt),
			applogger.Error(err))

		if attempt == f.opts.MaxAttempts {
			break
		}
		if err := f.opts.Sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = time.Duration(float64(delay) * f.opts.BackoffFactor)
	}
	return nil, lastErr
}

// retryable reports whether another attempt can help. No-data answers and
// cancelled contexts never improve on retry.
func retryable(err error) bool {
	if errors.Is(err, domrepo.ErrNoData) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func chunked(items []string, size int) [][]string {
	if size <= 0 {
		return [][]string{items}
	}
	var chunks [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
