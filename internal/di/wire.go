//go:build wireinject
// +build wireinject

package di

import (
	"CourtCast/pkg/config"
	"CourtCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisClient,
		ProvideAPICache,

		// Repositories
		ProvidePredictionStore,
		ProvideModelStore,
		ProvidePublisher,
		ProvideDataProvider,

		// Engine services
		ProvideExtractor,
		ProvideExplainer,

		// Use cases
		ProvidePredictor,
		ProvideTrainingPipeline,
		ProvideValidator,
		ProvideResultsPipeline,
		ProvideMatchResultsHandler,
		ProvideJobQueue,

		// Delivery
		ProvidePredictionsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
