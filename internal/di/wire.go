//go:build wireinject
// +build wireinject

package di

import (
	"stockprob/pkg/config"
	"stockprob/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideCache,
		ProvideTushareClient,

		// Repositories
		ProvideEventPublisher,
		ProvideResultSink,
		ProvideMarketData,
		ProvideResultStore,
		ProvideUniverseStore,

		// Use cases
		ProvideUniverseService,
		ProvideFetcher,
		ProvideEngine,
		ProvideStockService,
		ProvideParquetExporter,

		// HTTP
		ProvideStocksHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
