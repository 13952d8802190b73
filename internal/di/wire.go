//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"BandView/internal/domain/repository"
	internalrepo "BandView/internal/repository"
	"BandView/internal/usecase"
	"BandView/pkg/config"
	"BandView/pkg/metrics"
	"BandView/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

		// Settings
		ProvideInitialSettings,
		internalrepo.NewAtomicSettingsStore,
		wire.Bind(new(repository.SettingsStore), new(*internalrepo.AtomicSettingsStore)),

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Repositories
		ProvideMemorySeriesStore,
		ProvideSeriesStore,
		ProvideSeriesFeed,
		ProvideBandPublisher,

		// Use cases
		ProvideBandsUseCase,
		usecase.NewChartUseCase,

		// Transport
		ProvideRateLimiter,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
