package di

import (
	"context"
	"fmt"
	"time"

	"EquityLens/internal/domain/models"
	drepo "EquityLens/internal/domain/repository"
	internalrepo "EquityLens/internal/repository"
	"EquityLens/internal/scheduler"
	"EquityLens/internal/scoring"
	"EquityLens/internal/service/edgar"
	"EquityLens/internal/service/finnhub"
	"EquityLens/internal/service/fred"
	"EquityLens/internal/service/polygon"
	"EquityLens/internal/service/retry"
	"EquityLens/internal/store"
	"EquityLens/internal/usecase"
	pkgcache "EquityLens/pkg/cache"
	pkgch "EquityLens/pkg/clickhouse"
	"EquityLens/pkg/config"
	pkgkafka "EquityLens/pkg/kafka"
	applogger "EquityLens/pkg/logger"
	"EquityLens/pkg/metrics"
	"EquityLens/pkg/server"
)

// ProvideLogger creates the application logger from config.
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideSupervisor creates the retry supervisor from config.
func ProvideSupervisor(cfg *config.Config, m drepo.Metrics) *retry.Supervisor {
	return retry.New(
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithBackoff(cfg.Retry.RateLimitBase, cfg.Retry.UnavailableDelay),
		retry.WithWaitObserver(func(d time.Duration) {
			m.RecordRetryWait("all", d.Seconds())
		}),
	)
}

// ProvidePolygonClient creates the Polygon client; it doubles as the symbol
// searcher so it is provided separately from the chains.
func ProvidePolygonClient(cfg *config.Config) *polygon.Client {
	return polygon.New(cfg.Providers.Polygon.APIKey, cfg.Providers.Polygon.RequestsPerSec)
}

// ProvideProviderChains assembles the per-category provider chains. Order
// is precedence: the first provider is tried first, and for the profile
// category earlier providers win field conflicts.
func ProvideProviderChains(cfg *config.Config, pg *polygon.Client) map[models.Category][]drepo.ProviderClient {
	ed := edgar.New(cfg.Providers.EDGAR.UserAgent, cfg.Providers.EDGAR.RequestsPerSec)
	fh := finnhub.New(cfg.Providers.Finnhub.APIKey, cfg.Providers.Finnhub.RequestsPerSec)
	fr := fred.New(cfg.Providers.FRED.APIKey, cfg.Providers.FRED.RequestsPerSec)

	return map[models.Category][]drepo.ProviderClient{
		models.CategoryProfile:         {ed, pg},
		models.CategoryFinancials:      {ed},
		models.CategoryPrices:          {pg},
		models.CategoryInsiders:        {pg, ed},
		models.CategoryRecommendations: {fh},
		models.CategoryNews:            {fh},
		models.CategoryEconomic:        {fr},
	}
}

// ProvideSnapshotCache creates the optional Redis-backed snapshot cache.
// Returns nil when Redis is disabled; the store treats nil as no cache.
func ProvideSnapshotCache(cfg *config.Config) (drepo.SnapshotCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	c, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	// L1 memory in front of Redis keeps hot snapshot reads off the wire.
	// Sized for a watchlist plus ad-hoc lookups, not a full universe.
	return pkgcache.NewLayeredCache(c, pkgcache.WithLayeredMemorySize(512)), nil
}

// ProvideBundleStore creates the snapshot store.
func ProvideBundleStore(cfg *config.Config, sc drepo.SnapshotCache, l *applogger.Logger) *store.BundleStore {
	opts := []store.BundleOption{store.WithLogger(l)}
	if sc != nil {
		opts = append(opts, store.WithSnapshotCache(sc))
	}
	return store.NewBundleStore(cfg.Snapshot.TTL, opts...)
}

// ProvideEconomicStore creates the macro series store.
func ProvideEconomicStore(cfg *config.Config, sc drepo.SnapshotCache, l *applogger.Logger) *store.EconomicStore {
	s := store.NewEconomicStore(cfg.Snapshot.EconomicTTL, nil)
	s.SetLogger(l)
	if sc != nil {
		s.SetSnapshotCache(sc)
	}
	return s
}

// ProvideScoringEngine creates the scoring engine with configured weights.
func ProvideScoringEngine(cfg *config.Config) *scoring.Engine {
	var weights map[models.ScoreDimension]float64
	if len(cfg.Scoring.Weights) > 0 {
		weights = make(map[models.ScoreDimension]float64, len(cfg.Scoring.Weights))
		for dim, w := range cfg.Scoring.Weights {
			weights[models.ScoreDimension(dim)] = w
		}
	}
	return scoring.NewEngine(cfg.Scoring.WeightsVersion, weights)
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the score
// history schema. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
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

// ProvideScoreHistory creates the ClickHouse score archive. Nil when
// ClickHouse is disabled; the aggregator skips archiving.
func ProvideScoreHistory(chClient *pkgch.Client, l *applogger.Logger) drepo.ScoreHistory {
	if chClient == nil {
		return nil
	}
	s := internalrepo.NewCHScoreStore(chClient)
	s.SetLogger(l)
	return s
}

// ProvideKafkaProducer creates a Kafka producer. Nil when Kafka is disabled.
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

// ProvideEventPublisher creates the bundle event publisher. Nil when Kafka
// is disabled.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) drepo.EventPublisher {
	if producer == nil {
		return nil
	}
	p := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	p.SetLogger(l)
	return p
}

// ProvideAggregator assembles the aggregation engine.
func ProvideAggregator(
	cfg *config.Config,
	chains map[models.Category][]drepo.ProviderClient,
	pg *polygon.Client,
	sup *retry.Supervisor,
	bundles *store.BundleStore,
	economic *store.EconomicStore,
	engine *scoring.Engine,
	history drepo.ScoreHistory,
	events drepo.EventPublisher,
	m drepo.Metrics,
	l *applogger.Logger,
) *usecase.Aggregator {
	opts := []usecase.Option{
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	}
	if len(cfg.Providers.FRED.Series) > 0 {
		opts = append(opts, usecase.WithEconomicSeries(cfg.Providers.FRED.Series))
	}
	if history != nil {
		opts = append(opts, usecase.WithScoreHistory(history))
	}
	if events != nil {
		opts = append(opts, usecase.WithEventPublisher(events))
	}
	return usecase.New(chains, pg, sup, bundles, economic, engine, opts...)
}

// ProvideScheduler creates the refresh scheduler. Nil when disabled.
func ProvideScheduler(cfg *config.Config, agg *usecase.Aggregator, l *applogger.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	s := scheduler.New(agg, cfg.Scheduler.WatchedSymbols, l)
	if err := s.Register(cfg.Scheduler.SymbolSchedule, cfg.Scheduler.EconomicSchedule); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	agg *usecase.Aggregator,
	sched *scheduler.Scheduler,
	chClient *pkgch.Client,
	history drepo.ScoreHistory,
	events drepo.EventPublisher,
) *server.App {
	return server.New(cfg, l, agg, sched, chClient, history, events)
}
