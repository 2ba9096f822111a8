//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"IEXCast/pkg/config"
	"IEXCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideRedisClient,
		ProvideCache,
		ProvideClickHouseClient,

		// Repositories
		ProvideSeriesStore,
		ProvideSeriesSource,
		ProvideSeriesArchive,
		ProvideResultPublisher,
		ProvideResultStore,
		ProvideLocker,
		ProvideJobStore,
		ProvideQueue,

		// Services and use cases
		ProvideSimulator,
		ProvideParser,
		ProvideSimulationRunner,
		ProvideJobService,
		ProvideSourceService,
		ProvideLimiter,

		// Transport
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
