//go:build wireinject
// +build wireinject

package di

import (
	"Rectifex/pkg/config"
	"Rectifex/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Storage
		ProvidePriceCache,
		ProvideUniverseStore,
		ProvideCacheService,

		// Provider clients
		ProvideMarketData,
		ProvideFundamentalsSource,
		ProvideSymbolDirectory,

		// Use cases
		ProvideFetcher,
		ProvideUniverse,
		ProvideFundamentalsService,
		ProvideScanEngine,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
