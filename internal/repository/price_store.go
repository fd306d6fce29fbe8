package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Rectifex/internal/domain/models"
	drepo "Rectifex/internal/domain/repository"
	"Rectifex/pkg/util"

	"github.com/parquet-go/parquet-go"
	_ "modernc.org/sqlite"
)

// priceRow is the on-disk parquet schema for one bar.
type priceRow struct {
	Date   int64   `parquet:"date"` // unix seconds, UTC midnight
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
}

// PriceStore implements domain.repository.PriceCache with one parquet file
// per (symbol, period) and a SQLite index of freshness metadata.
//
// Writes are atomic: the series is written to a temp file and renamed over
// the previous one, so concurrent readers of the same key never observe a
// torn file. Writes to the same key are additionally serialized by a
// per-key mutex.
type PriceStore struct {
	pricesDir string
	db        *sql.DB
	ttl       time.Duration

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// NewPriceStore opens (or creates) the cache directory and index database.
func NewPriceStore(baseDir string, ttlDays int) (*PriceStore, error) {
	pricesDir := filepath.Join(baseDir, "prices")
	if err := os.MkdirAll(pricesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(baseDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so scan workers can read the index while writes land.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_index (
		symbol     TEXT NOT NULL,
		period     TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		rows       INTEGER NOT NULL,
		PRIMARY KEY(symbol, period)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}

	return &PriceStore{
		pricesDir: pricesDir,
		db:        db,
		ttl:       time.Duration(ttlDays) * 24 * time.Hour,
		keyLocks:  make(map[string]*sync.Mutex),
	}, nil
}

// Get returns index metadata for the key regardless of freshness, or nil
// when the key was never written.
func (s *PriceStore) Get(symbol, period string) (*models.CacheEntry, error) {
	row := s.db.QueryRow(
		"SELECT fetched_at, rows FROM cache_index WHERE symbol=? AND period=?",
		symbol, period,
	)

	var fetchedAt string
	var rows int
	if err := row.Scan(&fetchedAt, &rows); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parse fetched_at: %w", err)
	}

	return &models.CacheEntry{
		Symbol:    symbol,
		Period:    period,
		FetchedAt: ts,
		Rows:      rows,
		Path:      s.pathFor(symbol, period),
	}, nil
}

// Read returns the persisted series for the key.
func (s *PriceStore) Read(symbol, period string) (*models.PriceSeries, error) {
	path := s.pathFor(symbol, period)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s %s: %w", symbol, period, drepo.ErrNotFound)
		}
		return nil, fmt.Errorf("stat cache file: %w", err)
	}

	rows, err := parquet.ReadFile[priceRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}

	series := &models.PriceSeries{
		Symbol: symbol,
		Period: period,
		Bars:   make([]models.Bar, len(rows)),
	}
	for i, r := range rows {
		series.Bars[i] = models.Bar{
			Date:   time.Unix(r.Date, 0).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return series, nil
}

// Write durably persists the series and updates the index entry.
// Empty series are ignored.
func (s *PriceStore) Write(series *models.PriceSeries) error {
	if series.Empty() {
		return nil
	}

	lock := s.lockFor(series.Symbol, series.Period)
	lock.Lock()
	defer lock.Unlock()

	rows := make([]priceRow, len(series.Bars))
	for i, b := range series.Bars {
		rows[i] = priceRow{
			Date:   b.Date.UTC().Unix(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}

	path := s.pathFor(series.Symbol, series.Period)
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace cache file: %w", err)
	}

	_, err := s.db.Exec(`INSERT INTO cache_index (symbol, period, fetched_at, rows)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol, period) DO UPDATE SET
			fetched_at=excluded.fetched_at,
			rows=excluded.rows`,
		series.Symbol, series.Period, time.Now().UTC().Format(time.RFC3339Nano), len(series.Bars),
	)
	if err != nil {
		return fmt.Errorf("update index: %w", err)
	}
	return nil
}

// IsFresh is a pure freshness check against the store TTL.
func (s *PriceStore) IsFresh(entry *models.CacheEntry, now time.Time) bool {
	return entry.Fresh(s.ttl, now)
}

// Clear removes cached series by symbol and/or age. An empty symbol matches
// all symbols; a zero cutoff matches any age.
func (s *PriceStore) Clear(symbol string, olderThan time.Time) (int, error) {
	query := "SELECT symbol, period FROM cache_index WHERE 1=1"
	args := make([]interface{}, 0, 2)
	if symbol != "" {
		query += " AND symbol=?"
		args = append(args, symbol)
	}
	if !olderThan.IsZero() {
		query += " AND fetched_at < ?"
		args = append(args, olderThan.UTC().Format(time.RFC3339Nano))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return 0, fmt.Errorf("select entries: %w", err)
	}
	type key struct{ symbol, period string }
	var keys []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.symbol, &k.period); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan entry: %w", err)
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate entries: %w", err)
	}

	removed := 0
	for _, k := range keys {
		if err := os.Remove(s.pathFor(k.symbol, k.period)); err == nil || os.IsNotExist(err) {
			removed++
		}
		if _, err := s.db.Exec(
			"DELETE FROM cache_index WHERE symbol=? AND period=?", k.symbol, k.period,
		); err != nil {
			return removed, fmt.Errorf("delete index row: %w", err)
		}
	}
	return removed, nil
}

// Close closes the index database.
func (s *PriceStore) Close() error {
	return s.db.Close()
}

func (s *PriceStore) pathFor(symbol, period string) string {
	return filepath.Join(s.pricesDir, fmt.Sprintf("%s__%s.parquet", util.SanitizeSymbol(symbol), period))
}

func (s *PriceStore) lockFor(symbol, period string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := symbol + "\x00" + period
	lock, ok := s.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.keyLocks[key] = lock
	}
	return lock
}
