package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"IEXCast/internal/domain/models"
	domrepo "IEXCast/internal/domain/repository"
	domsvc "IEXCast/internal/domain/service"
	"IEXCast/internal/handler/api"
	internalrepo "IEXCast/internal/repository"
	"IEXCast/internal/service/ratelimit"
	"IEXCast/internal/services/ingest"
	"IEXCast/internal/services/prediction"
	"IEXCast/internal/usecase"
	"IEXCast/pkg/cache"
	pkgch "IEXCast/pkg/clickhouse"
	"IEXCast/pkg/config"
	xhttp "IEXCast/pkg/http"
	pkgkafka "IEXCast/pkg/kafka"
	applogger "IEXCast/pkg/logger"
	"IEXCast/pkg/metrics"
	"IEXCast/pkg/queue"
	"IEXCast/pkg/server"
)

// Optional infrastructure providers return nil when the component is
// disabled in config; consumers treat nil as "not configured".

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger and, when a logs topic is
// configured, ships an error digest through the producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AttachDigest(&applogger.DigestConfig{
			Interval:  time.Minute,
			Topic:     cfg.Kafka.LogsTopic,
			Publisher: producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideRedisClient connects to redis when the cache or queue needs it.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}
	client, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

// ProvideCache selects the result/job cache backend.
func ProvideCache(cfg *config.Config, client *redis.Client) cache.Service {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisCache(client, cfg.Cache.Prefix)
	case "layered":
		return cache.NewLayeredCache(cache.NewRedisCache(client, cfg.Cache.Prefix), time.Minute)
	default:
		return cache.NewMemoryCache(cache.WithMemoryDefaultTTL(cfg.Cache.TTL))
	}
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the price
// table exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SeriesSchema(cfg.ClickHouse.SourceTable)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideSeriesStore wraps the ClickHouse price table.
func ProvideSeriesStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.CHSeries {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHSeries(ch, cfg.ClickHouse.SourceTable, l)
}

// ProvideSeriesSource exposes the store as a source, or a nil interface.
func ProvideSeriesSource(store *internalrepo.CHSeries) domrepo.SeriesSource {
	if store == nil {
		return nil
	}
	return store
}

// ProvideSeriesArchive exposes the store as an upload archive, or a nil interface.
func ProvideSeriesArchive(store *internalrepo.CHSeries, cfg *config.Config) domrepo.SeriesArchive {
	if store == nil || !cfg.ClickHouse.ArchiveUploads {
		return nil
	}
	return store
}

// ProvideResultPublisher announces runs on the results topic.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.ResultPublisher {
	if producer == nil || cfg.Kafka.ResultsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)
}

func ProvideResultStore(c cache.Service, cfg *config.Config) domrepo.ResultStore {
	return internalrepo.NewCacheResultStore(c, cfg.Cache.TTL)
}

// ProvideLocker shares run and job locks through the cache, so a redis or
// layered backend serialises work across instances.
func ProvideLocker(c cache.Service) domrepo.Locker {
	return internalrepo.NewCacheLocker(c)
}

func ProvideJobStore(c cache.Service, cfg *config.Config) domrepo.JobStore {
	return internalrepo.NewCacheJobStore(c, cfg.Queue.JobTTL)
}

// ProvideQueue selects the in-process or redis-backed worker queue.
func ProvideQueue(cfg *config.Config, l *applogger.Logger, client *redis.Client) queue.Queue {
	qcfg := &queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.MaxRetries,
	}
	if cfg.Queue.Backend == "redis" {
		return queue.NewRedisQueue(l, qcfg, client, queue.WithKeyPrefix(cfg.Queue.Name))
	}
	return queue.NewLocalQueue(l, qcfg)
}

func ProvideSimulator() domsvc.Simulator {
	return prediction.NewEngine()
}

func ProvideParser(cfg *config.Config) domsvc.SeriesParser {
	return ingest.NewParser(cfg.Ingest.MaxRows)
}

func ProvideSimulationRunner(
	sim domsvc.Simulator,
	results domrepo.ResultStore,
	locker domrepo.Locker,
	pub domrepo.ResultPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.SimulationRunner {
	return usecase.NewSimulationRunner(sim, results, locker, pub, m, l)
}

func ProvideJobService(
	runner *usecase.SimulationRunner,
	jobs domrepo.JobStore,
	locker domrepo.Locker,
	source domrepo.SeriesSource,
	q queue.Queue,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.JobService {
	return usecase.NewJobService(runner, jobs, locker, source, q, m, l)
}

func ProvideSourceService(
	source domrepo.SeriesSource,
	archive domrepo.SeriesArchive,
	runner *usecase.SimulationRunner,
	l *applogger.Logger,
) *usecase.SourceService {
	return usecase.NewSourceService(source, archive, runner, l)
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.RateLimit.Capacity <= 0 {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
}

func engineDefaults(cfg *config.Config) models.SimulationConfig {
	return models.SimulationConfig{
		ForecastDays:    cfg.Engine.ForecastDays,
		ConfidenceLevel: cfg.Engine.ConfidenceLevel,
	}
}

// ProvideHTTPHandler creates the simulation API handler.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	parser domsvc.SeriesParser,
	runner *usecase.SimulationRunner,
	jobs *usecase.JobService,
	sources *usecase.SourceService,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewSimulationHandler(l, parser, runner, jobs, sources, limiter, api.Config{
		Defaults:       engineDefaults(cfg),
		MaxUploadBytes: cfg.Ingest.MaxUploadBytes,
	})
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithBodyLimit(fmt.Sprintf("%dK", cfg.Ingest.MaxUploadBytes/1024+64)),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideKafkaConsumer subscribes the run request handler when a requests
// topic is configured.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, jobs *usecase.JobService) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RequestsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerRetry(3, 200*time.Millisecond, 5*time.Second),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewRequestHandler(cfg.Kafka.RequestsTopic, jobs, engineDefaults(cfg), l))
	return consumer, nil
}

// ProvideApp creates the application server and registers closers in
// dependency order.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	q queue.Queue,
	consumer *pkgkafka.Consumer,
	c cache.Service,
	rc *redis.Client,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) *server.App {
	var closers []server.Closer
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	if rc != nil {
		closers = append(closers, server.Closer{Name: "redis", Close: rc.Close})
	}
	closers = append(closers, server.Closer{Name: "cache", Close: c.Close})
	return server.New(cfg, l, srv, q, consumer, closers...)
}
