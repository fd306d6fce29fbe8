package di

import (
	"fmt"
	"time"

	domrepo "Rectifex/internal/domain/repository"
	"Rectifex/internal/handler/api"
	internalrepo "Rectifex/internal/repository"
	"Rectifex/internal/service/marketstack"
	"Rectifex/internal/service/symbols"
	"Rectifex/internal/service/yahoo"
	"Rectifex/internal/usecase"
	"Rectifex/pkg/cache"
	"Rectifex/pkg/config"
	xhttp "Rectifex/pkg/http"
	applogger "Rectifex/pkg/logger"
	"Rectifex/pkg/metrics"
	"Rectifex/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvidePriceCache opens the parquet price store and its SQLite index.
func ProvidePriceCache(cfg *config.Config) (domrepo.PriceCache, error) {
	store, err := internalrepo.NewPriceStore(cfg.Cache.Dir, cfg.Cache.TTLDays)
	if err != nil {
		return nil, fmt.Errorf("price store: %w", err)
	}
	return store, nil
}

// ProvideUniverseStore opens the persisted universe directory.
func ProvideUniverseStore(cfg *config.Config) (domrepo.UniverseStore, error) {
	store, err := internalrepo.NewUniverseStore(cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("universe store: %w", err)
	}
	return store, nil
}

// ProvideSymbolDirectory creates the public listings directory client.
func ProvideSymbolDirectory(cfg *config.Config) domrepo.SymbolDirectory {
	return symbols.NewDirectory(cfg.Provider.Timeout)
}

// ProvideMarketData creates the EOD price provider client.
func ProvideMarketData(cfg *config.Config) domrepo.MarketData {
	return marketstack.New(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout)
}

// ProvideFundamentalsSource creates the fundamentals provider client.
func ProvideFundamentalsSource(cfg *config.Config) domrepo.FundamentalsSource {
	return yahoo.New(cfg.Fundamentals.BaseURL, cfg.Fundamentals.Timeout)
}

// ProvideCacheService selects Redis when configured, in-process otherwise.
func ProvideCacheService(cfg *config.Config, log *applogger.Logger) (cache.Service, error) {
	if cfg.Redis.Enabled {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Redis.Host),
			cache.WithRedisPort(cfg.Redis.Port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		log.Info("redis cache connected", applogger.String("host", cfg.Redis.Host))
		return c, nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvideFetcher creates the retrying batch fetcher.
func ProvideFetcher(provider domrepo.MarketData, m domrepo.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.Fetcher {
	return usecase.NewFetcher(provider, m, log, usecase.FetcherOptions{
		MaxAttempts:    cfg.Fetcher.MaxAttempts,
		InitialBackoff: cfg.Fetcher.InitialBackoff,
		BackoffFactor:  cfg.Fetcher.BackoffFactor,
		ChunkSize:      cfg.Fetcher.ChunkSize,
	})
}

// ProvideUniverse creates the TTL-cached universe loader.
func ProvideUniverse(dir domrepo.SymbolDirectory, store domrepo.UniverseStore, log *applogger.Logger) *usecase.Universe {
	return usecase.NewUniverse(dir, store, log)
}

// ProvideFundamentalsService creates the cached fundamentals lookup.
func ProvideFundamentalsService(source domrepo.FundamentalsSource, c cache.Service, log *applogger.Logger, cfg *config.Config) *usecase.FundamentalsService {
	return usecase.NewFundamentalsService(source, c, log, cfg.Fundamentals.TTL)
}

// ProvideScanEngine creates the scan engine.
func ProvideScanEngine(fetcher *usecase.Fetcher, store domrepo.PriceCache, fundamentals *usecase.FundamentalsService, m domrepo.Metrics, log *applogger.Logger) *usecase.ScanEngine {
	return usecase.NewScanEngine(fetcher, store, fundamentals, m, log)
}

// ProvideHTTPHandler creates the JSON API handler.
func ProvideHTTPHandler(log *applogger.Logger, engine *usecase.ScanEngine, universe *usecase.Universe, store domrepo.PriceCache, cfg *config.Config) xhttp.Handler {
	refresh := time.Duration(cfg.Universe.RefreshDays) * 24 * time.Hour
	return api.NewScansHandler(log, engine, universe, store, refresh)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.ScanEngine,
	universe *usecase.Universe,
	store domrepo.PriceCache,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, engine, universe, store, handler)
}
