//go:build wireinject
// +build wireinject

package di

import (
	"SignalEngine/pkg/config"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*Application, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Stores
		ProvideSignalStore,
		ProvidePredictionStore,
		ProvideResultStore,
		ProvideCorrelationStore,
		ProvideInstrumentStore,

		// External boundaries
		ProvideMarketData,
		ProvideScorer,

		// Engine pieces
		ProvideStrategies,
		ProvideSelector,
		ProvideCorrelationEngine,
		ProvideLiveFeed,
		ProvidePublishers,

		// Use cases
		ProvideSentimentHandler,
		ProvidePredictionCycle,
		ProvideEvaluationCycle,
		ProvideSignalRefresh,
		ProvideDashboard,

		// Application
		ProvideApp,
		ProvideApplication,
	)
	return &Application{}, nil
}
