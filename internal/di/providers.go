package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"CourtCast/internal/domain/repository"
	domsvc "CourtCast/internal/domain/service"
	"CourtCast/internal/handler/api"
	mid "CourtCast/internal/middleware"
	internalrepo "CourtCast/internal/repository"
	icache "CourtCast/internal/service/cache"
	"CourtCast/internal/service/ratelimit"
	"CourtCast/internal/service/tennisapi"
	"CourtCast/internal/services/explain"
	"CourtCast/internal/services/features"
	"CourtCast/internal/usecase"
	pkgcache "CourtCast/pkg/cache"
	pkgch "CourtCast/pkg/clickhouse"
	"CourtCast/pkg/config"
	pkgkafka "CourtCast/pkg/kafka"
	applogger "CourtCast/pkg/logger"
	"CourtCast/pkg/metrics"
	"CourtCast/pkg/queue"
	"CourtCast/pkg/server"
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

// ProvideClickHouseClient creates a ClickHouse client when the store is
// enabled. Returns nil otherwise; downstream providers degrade.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append(
		[]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database},
		internalrepo.SchemaStatements()...,
	)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideExtractor creates the feature extractor.
func ProvideExtractor() domsvc.FeatureExtractor {
	return features.NewTennisExtractor()
}

// ProvideExplainer creates the factor explainer from configured weights.
func ProvideExplainer(cfg *config.Config) domsvc.Explainer {
	return explain.New(explain.Weights{
		Ranking:    cfg.Engine.Weights.Ranking,
		HeadToHead: cfg.Engine.Weights.HeadToHead,
		RecentForm: cfg.Engine.Weights.RecentForm,
		Surface:    cfg.Engine.Weights.Surface,
		Experience: cfg.Engine.Weights.Experience,
	})
}

// ProvidePredictionStore creates the ClickHouse prediction store.
func ProvidePredictionStore(chClient *pkgch.Client) repository.PredictionStore {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHousePredictionStore(chClient.DB())
}

// ProvideModelStore creates the file-backed model artifact store.
func ProvideModelStore(cfg *config.Config) (repository.ModelStore, error) {
	return internalrepo.NewFileModelStore(cfg.Engine.ModelDir)
}

// ProvidePublisher creates the Kafka prediction publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer for match results.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.ResultsTopic == "" {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedisClient creates a shared Redis client when Redis is enabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideAPICache picks the response/provider cache backend: a layered
// memory+Redis cache when Redis is enabled, in-process TTL cache otherwise.
func ProvideAPICache(cfg *config.Config) (icache.BytesCache, error) {
	if !cfg.Redis.Enabled {
		return icache.NewTTLCache(), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}

	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return icache.NewServiceCache(pkgcache.NewLayeredCache(rc)), nil
}

// ProvideDataProvider creates the tennis data API client.
func ProvideDataProvider(cfg *config.Config, c icache.BytesCache, l *applogger.Logger) repository.DataProvider {
	if !cfg.TennisAPI.Enabled {
		return nil
	}
	return tennisapi.New(tennisapi.Config{
		BaseURL:       cfg.TennisAPI.BaseURL,
		APIKey:        cfg.TennisAPI.APIKey,
		Timeout:       cfg.TennisAPI.Timeout,
		CacheTTL:      cfg.TennisAPI.CacheTTL,
		RateCapacity:  cfg.TennisAPI.RateCapacity,
		RatePerSecond: cfg.TennisAPI.RatePerSecond,
	}, c, ratelimit.New(), l)
}

// ProvidePredictor creates the ensemble predictor.
func ProvidePredictor(
	extractor domsvc.FeatureExtractor,
	explainer domsvc.Explainer,
	store repository.PredictionStore,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.EnsemblePredictor {
	return usecase.NewEnsemblePredictor(extractor, explainer, store, pub, m, l, cfg.Engine.FallbackAllowed)
}

// ProvideTrainingPipeline creates the training pipeline.
func ProvideTrainingPipeline(
	extractor domsvc.FeatureExtractor,
	modelStore repository.ModelStore,
	predStore repository.PredictionStore,
	predictor *usecase.EnsemblePredictor,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.TrainingPipeline {
	return usecase.NewTrainingPipeline(extractor, modelStore, predStore, predictor, m, l, cfg.Engine.Seed)
}

// ProvideValidator creates the result validator. Nil without a store.
func ProvideValidator(
	store repository.PredictionStore,
	extractor domsvc.FeatureExtractor,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ResultValidator {
	if store == nil {
		return nil
	}
	return usecase.NewResultValidator(store, extractor, m, l)
}

// ProvideResultsPipeline wraps the validator in the buffered ingest pipeline.
func ProvideResultsPipeline(validator *usecase.ResultValidator, m repository.Metrics) *mid.ResultsPipeline {
	if validator == nil {
		return nil
	}
	return mid.NewResultsPipeline(validator, m,
		mid.WithBufferSize(2000),
		mid.WithMaxAttempts(5),
	)
}

// ProvideMatchResultsHandler registers the handler for the results topic.
func ProvideMatchResultsHandler(
	pipe *mid.ResultsPipeline,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.MatchResultsHandler {
	if pipe == nil {
		return nil
	}
	return usecase.NewMatchResultsHandler(cfg.Kafka.ResultsTopic, pipe, m, l)
}

// ProvideJobQueue creates the Redis-backed training job queue.
func ProvideJobQueue(
	l *applogger.Logger,
	cfg *config.Config,
	client *redis.Client,
	pipeline *usecase.TrainingPipeline,
) *queue.RedisQueue {
	if client == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.ModeProducerConsumer, queue.WithKeyPrefix("courtcast:queue"))
	q.RegisterJob(usecase.NewTrainJob(pipeline, l))
	return q
}

// ProvidePredictionsHandler creates the HTTP API handler.
func ProvidePredictionsHandler(
	l *applogger.Logger,
	predictor *usecase.EnsemblePredictor,
	pipeline *usecase.TrainingPipeline,
	validator *usecase.ResultValidator,
	store repository.PredictionStore,
	provider repository.DataProvider,
	jobs *queue.RedisQueue,
	c icache.BytesCache,
) *api.PredictionsHandler {
	// Typed nils must not leak into the handler's optional interfaces.
	var v api.Validator
	if validator != nil {
		v = validator
	}
	var q queue.QueueService
	if jobs != nil {
		q = jobs
	}
	return api.NewPredictionsHandler(l, predictor, pipeline, v, store, provider, q, c)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	predictor *usecase.EnsemblePredictor,
	modelStore repository.ModelStore,
	consumer *pkgkafka.Consumer,
	rh *usecase.MatchResultsHandler,
	resultsPipe *mid.ResultsPipeline,
	chClient *pkgch.Client,
	pub repository.Publisher,
	jobs *queue.RedisQueue,
	handler *api.PredictionsHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}

	var kh pkgkafka.MessageHandler
	if rh != nil {
		kh = rh
	}
	app := server.New(cfg, predictor, modelStore, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	if resultsPipe != nil {
		app.SetResultsPipeline(resultsPipe)
	}
	if pub != nil {
		app.SetPublisher(pub)
	}
	if jobs != nil {
		app.SetJobQueue(jobs)
	}
	return app
}
