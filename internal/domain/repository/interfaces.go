package repository

import (
	"context"
	"time"

	"Rectifex/internal/domain/models"
)

// MarketData is the upstream price/fundamentals provider. Implementations
// are expected to be unreliable: rate limits and partial outages surface as
// errors the fetch layer retries.
type MarketData interface {
	// History returns the daily price history for one symbol.
	History(ctx context.Context, symbol, period string) (*models.PriceSeries, error)
	// HistoryBatch returns histories for many symbols in a single request.
	// A symbol absent from the result map means the provider had no data.
	HistoryBatch(ctx context.Context, symbols []string, period string) (map[string]*models.PriceSeries, error)
}

// FundamentalsSource returns curated fundamental metrics per symbol.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error)
}

// PriceCache is the durable store of price history keyed by (symbol, period).
type PriceCache interface {
	// Get returns index metadata regardless of freshness, or nil when the
	// key was never written.
	Get(symbol, period string) (*models.CacheEntry, error)
	// Read returns the persisted series. ErrNotFound when no entry exists.
	Read(symbol, period string) (*models.PriceSeries, error)
	// Write durably persists the series and stamps the entry fetched-at now.
	Write(series *models.PriceSeries) error
	// IsFresh is a pure freshness check against the store's TTL.
	IsFresh(entry *models.CacheEntry, now time.Time) bool
	// Clear removes entries for a symbol and/or older than the cutoff,
	// returning the number of series removed.
	Clear(symbol string, olderThan time.Time) (int, error)
	Close() error
}

// UniverseStore persists named ticker lists with their fetch time.
type UniverseStore interface {
	Load(name string) (*models.UniverseList, error) // ErrNotFound on miss
	Save(list *models.UniverseList) error
}

// SymbolDirectory resolves a universe name to its authoritative membership.
type SymbolDirectory interface {
	List(ctx context.Context, name string) ([]string, error)
}

// Metrics records pipeline observability counters.
type Metrics interface {
	RecordFetchAttempt(mode string)
	RecordError(kind string)
	RecordCacheOutcome(outcome string)
	RecordSymbolState(state string)
	RecordScanDuration(strategy string, seconds float64)
	RecordScore(symbol, strategy string, score float64)
}
