package di

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/handler/api"
	internalrepo "SignalEngine/internal/repository"
	"SignalEngine/internal/services/correlation"
	"SignalEngine/internal/services/marketdata"
	"SignalEngine/internal/services/sentiment"
	"SignalEngine/internal/services/strategies"
	"SignalEngine/internal/usecase"
	"SignalEngine/pkg/cache"
	pkgch "SignalEngine/pkg/clickhouse"
	"SignalEngine/pkg/config"
	pkgkafka "SignalEngine/pkg/kafka"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/metrics"
	"SignalEngine/pkg/server"

	kafkago "github.com/segmentio/kafka-go"
)

// Application bundles the serve-mode app with the batch entrypoints the CLI
// jobs invoke directly.
type Application struct {
	Config      *config.Config
	Logger      *applogger.Logger
	App         *server.App
	Refresh     *usecase.SignalRefresh
	Prediction  *usecase.PredictionCycle
	Evaluation  *usecase.EvaluationCycle
	Instruments repository.InstrumentStore
}

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCache creates the dashboard read cache: redis when enabled,
// in-process otherwise.
func ProvideCache(cfg *config.Config, l *applogger.Logger) cache.Service {
	if cfg.Cache.Redis.Enabled {
		host, port := splitAddr(cfg.Cache.Redis.Addr)
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix("signalengine"),
		)
		if err == nil {
			return cache.NewLayeredCache(rc)
		}
		l.Warn("redis unavailable, falling back to memory cache", applogger.Error(err))
	}
	return cache.NewMemoryCache()
}

func splitAddr(addr string) (string, int) {
	host, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideSignalStore creates the price/sentiment store.
func ProvideSignalStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.CHSignalStore {
	s := internalrepo.NewCHSignalStore(ch, cfg.ClickHouse.Database)
	s.SetLogger(l)
	return s
}

// ProvidePredictionStore creates the prediction store.
func ProvidePredictionStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.PredictionStore {
	s := internalrepo.NewCHPredictionStore(ch, cfg.ClickHouse.Database)
	s.SetLogger(l)
	return s
}

// ProvideResultStore creates the result and performance store.
func ProvideResultStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.CHResultStore {
	s := internalrepo.NewCHResultStore(ch, cfg.ClickHouse.Database)
	s.SetLogger(l)
	return s
}

// ProvideCorrelationStore creates the correlation snapshot store.
func ProvideCorrelationStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.CorrelationStore {
	s := internalrepo.NewCHCorrelationStore(ch, cfg.ClickHouse.Database)
	s.SetLogger(l)
	return s
}

// ProvideInstrumentStore creates the instrument store.
func ProvideInstrumentStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.InstrumentStore {
	s := internalrepo.NewCHInstrumentStore(ch, cfg.ClickHouse.Database)
	s.SetLogger(l)
	return s
}

// ProvideMarketData creates the external daily-bars client.
func ProvideMarketData(cfg *config.Config, l *applogger.Logger) repository.MarketData {
	return marketdata.NewClient(cfg, l)
}

// ProvideScorer creates the external sentiment scorer client.
func ProvideScorer(cfg *config.Config) domsvc.SentimentScorer {
	return sentiment.NewHTTPScorer(cfg)
}

// ProvideStrategies builds the strategy set in registration order.
func ProvideStrategies(signals *internalrepo.CHSignalStore, cfg *config.Config) []domsvc.Strategy {
	return []domsvc.Strategy{
		strategies.NewMomentum(cfg.Engine),
		strategies.NewContrarian(cfg.Engine),
		strategies.NewCorrelationStrategy(signals, cfg.Engine),
		strategies.NewNewsImpact(cfg.Engine),
	}
}

// ProvideSelector creates the weighted candidate selector.
func ProvideSelector(perf *internalrepo.CHResultStore, cfg *config.Config, l *applogger.Logger) *usecase.Selector {
	return usecase.NewSelector(perf, cfg.Engine, l)
}

// ProvideCorrelationEngine creates the pairwise correlation engine.
func ProvideCorrelationEngine(signals *internalrepo.CHSignalStore, cfg *config.Config, l *applogger.Logger) *correlation.Engine {
	return correlation.NewEngine(signals, cfg.Engine, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
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

// ProvideKafkaConsumer creates the sentiment consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerLogger(l),
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

// ProvideLiveFeed creates the websocket prediction feed.
func ProvideLiveFeed(l *applogger.Logger) *api.LiveFeed {
	return api.NewLiveFeed(l)
}

// ProvidePublishers assembles the prediction event sinks.
func ProvidePublishers(producer *pkgkafka.Producer, feed *api.LiveFeed, cfg *config.Config) []repository.Publisher {
	pubs := make([]repository.Publisher, 0, 2)
	if producer != nil {
		pubs = append(pubs, internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic))
	}
	pubs = append(pubs, feed)
	return pubs
}

// ProvideSentimentHandler creates the Kafka document handler.
func ProvideSentimentHandler(scorer domsvc.SentimentScorer, signals *internalrepo.CHSignalStore, m repository.Metrics, cfg *config.Config) *usecase.SentimentHandler {
	return usecase.NewSentimentHandler(cfg.Kafka.Consumer.Topic, scorer, signals, m)
}

// ProvidePredictionCycle creates the prediction pass.
func ProvidePredictionCycle(
	instruments repository.InstrumentStore,
	signals *internalrepo.CHSignalStore,
	corrEngine *correlation.Engine,
	corrStore repository.CorrelationStore,
	strats []domsvc.Strategy,
	selector *usecase.Selector,
	predictions repository.PredictionStore,
	publishers []repository.Publisher,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PredictionCycle {
	return usecase.NewPredictionCycle(instruments, signals, corrEngine, corrStore, strats, selector, predictions, publishers, m, cfg.Engine, l)
}

// ProvideEvaluationCycle creates the evaluation pass.
func ProvideEvaluationCycle(
	predictions repository.PredictionStore,
	signals *internalrepo.CHSignalStore,
	results *internalrepo.CHResultStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.EvaluationCycle {
	return usecase.NewEvaluationCycle(predictions, signals, results, results, m, cfg.Engine, l)
}

// ProvideSignalRefresh creates the price refresh pass.
func ProvideSignalRefresh(
	instruments repository.InstrumentStore,
	provider repository.MarketData,
	signals *internalrepo.CHSignalStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.SignalRefresh {
	return usecase.NewSignalRefresh(instruments, provider, signals, m, cfg.Engine, l)
}

// ProvideDashboard creates the dashboard read usecase.
func ProvideDashboard(
	predictions repository.PredictionStore,
	results *internalrepo.CHResultStore,
	corrStore repository.CorrelationStore,
	instruments repository.InstrumentStore,
	cacheSvc cache.Service,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Dashboard {
	return usecase.NewDashboard(predictions, results, results, corrStore, instruments, cacheSvc, cfg, l)
}

// ProvideApp creates the serve-mode application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	consumer *pkgkafka.Consumer,
	kh *usecase.SentimentHandler,
	chClient *pkgch.Client,
	dash *usecase.Dashboard,
	feed *api.LiveFeed,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, l, consumer, kh, chClient)
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.HookFuncs{
			Err: func(_ context.Context, topic string, km kafkago.Message, _ []byte, err error) {
				l.Warn("kafka message failed",
					applogger.String("topic", topic),
					applogger.Int("partition", km.Partition),
					applogger.Int("offset", int(km.Offset)),
					applogger.Error(err),
				)
			},
		})
	}
	app.SetHTTPHandler(api.NewDashboardEchoHandler(l, dash, feed))
	app.AddCloser(feed)
	if producer != nil {
		// Aggregate repeated error logs and ship them over Kafka instead of
		// flooding the log sink line by line.
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "signalengine.logs.errors",
			Publisher:      kafkaLogSink{producer: producer},
		})
		app.AddCloser(collectorCloser{l: l})
		app.AddCloser(producer)
	}
	return app
}

// kafkaLogSink adapts the Kafka producer to the log collector's publisher.
type kafkaLogSink struct {
	producer *pkgkafka.Producer
}

func (s kafkaLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.producer.Publish(ctx, topic, nil, payload)
}

type collectorCloser struct {
	l *applogger.Logger
}

func (c collectorCloser) Close() error {
	c.l.RemoveCollector()
	return nil
}

// ProvideApplication bundles everything the CLI needs.
func ProvideApplication(
	cfg *config.Config,
	l *applogger.Logger,
	app *server.App,
	refresh *usecase.SignalRefresh,
	prediction *usecase.PredictionCycle,
	evaluation *usecase.EvaluationCycle,
	instruments repository.InstrumentStore,
) *Application {
	return &Application{
		Config:      cfg,
		Logger:      l,
		App:         app,
		Refresh:     refresh,
		Prediction:  prediction,
		Evaluation:  evaluation,
		Instruments: instruments,
	}
}
