//go:build wireinject
// +build wireinject

package di

import (
	"EquityLens/pkg/config"
	"EquityLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideSnapshotCache,

		// Providers and retry policy
		ProvidePolygonClient,
		ProvideProviderChains,
		ProvideSupervisor,

		// Stores, scoring, side-effect adapters
		ProvideBundleStore,
		ProvideEconomicStore,
		ProvideScoringEngine,
		ProvideScoreHistory,
		ProvideEventPublisher,

		// Use case and lifecycle
		ProvideAggregator,
		ProvideScheduler,
		ProvideApp,
	)
	return &server.App{}, nil
}
