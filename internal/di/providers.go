package di

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"BandView/internal/domain/models"
	"BandView/internal/domain/repository"
	"BandView/internal/handler/api"
	internalrepo "BandView/internal/repository"
	"BandView/internal/service/ratelimit"
	"BandView/internal/usecase"
	"BandView/pkg/cache"
	pkgch "BandView/pkg/clickhouse"
	"BandView/pkg/config"
	xhttp "BandView/pkg/http"
	pkgkafka "BandView/pkg/kafka"
	applogger "BandView/pkg/logger"
	"BandView/pkg/metrics"
	"BandView/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideInitialSettings builds the startup settings from the configured inputs.
func ProvideInitialSettings(cfg *config.Config) (models.Settings, error) {
	s, err := models.NewSettingsBuilder(models.DefaultSettings()).Inputs(cfg.Bollinger).Build()
	if err != nil {
		return models.Settings{}, fmt.Errorf("initial settings: %w", err)
	}
	return s, nil
}

func ProvideMemorySeriesStore() *internalrepo.MemorySeriesStore {
	return internalrepo.NewMemorySeriesStore(internalrepo.DefaultMaxBars)
}

// ProvideClickHouseClient connects to ClickHouse when it backs the series.
// It returns nil for every other backend.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Series.Backend != config.BackendClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
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
	return client, nil
}

// ProvideSeriesStore selects the series backend.
func ProvideSeriesStore(
	cfg *config.Config,
	l *applogger.Logger,
	ch *pkgch.Client,
	mem *internalrepo.MemorySeriesStore,
) (repository.SeriesStore, error) {
	switch cfg.Series.Backend {
	case config.BackendFile:
		s := internalrepo.NewFileSeriesStore(cfg.Series.Path)
		s.SetLogger(l.With("series"))
		return s, nil

	case config.BackendHTTP:
		client := xhttp.NewClient(
			xhttp.WithTimeout(cfg.Series.Timeout),
			xhttp.WithUserAgent("bandview"),
		)
		s := internalrepo.NewHTTPSeriesStore(client, cfg.Series.URL, cfg.Series.Retries)
		s.SetLogger(l.With("series"))
		return s, nil

	case config.BackendClickHouse:
		s := internalrepo.NewCHSeriesStore(ch, internalrepo.DefaultMaxBars)
		s.SetLogger(l.With("series"))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Init(ctx); err != nil {
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return s, nil

	case config.BackendMemory:
		if cfg.Series.Path != "" {
			if err := seedMemory(cfg, mem); err != nil {
				return nil, err
			}
			l.Info("memory series seeded",
				applogger.String("path", cfg.Series.Path),
				applogger.String("symbol", cfg.Series.Symbol),
			)
		}
		return mem, nil
	}
	return nil, fmt.Errorf("unknown series backend %q", cfg.Series.Backend)
}

func seedMemory(cfg *config.Config, mem *internalrepo.MemorySeriesStore) error {
	tf := repository.NormalizeTimeframe(cfg.Series.Timeframe)
	bars, err := internalrepo.NewFileSeriesStore(cfg.Series.Path).Series(context.Background(), cfg.Series.Symbol, tf)
	if err != nil {
		return fmt.Errorf("seed memory store: %w", err)
	}
	return mem.Seed(cfg.Series.Symbol, tf, bars)
}

// ProvideSeriesFeed exposes change notifications when series are live.
func ProvideSeriesFeed(cfg *config.Config, mem *internalrepo.MemorySeriesStore) api.SeriesFeed {
	if cfg.Series.Backend != config.BackendMemory {
		return nil
	}
	return mem
}

// ProvideCache creates the result cache, or nil when caching is disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if cfg.Cache.Backend == "memory" {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	}

	rc := cfg.Cache.Redis
	opts := []cache.RedisOption{
		cache.WithRedisDB(rc.DB),
		cache.WithRedisPassword(rc.Password),
	}
	if rc.Host != "" {
		opts = append(opts, cache.WithRedisHost(rc.Host))
	}
	if rc.Port > 0 {
		opts = append(opts, cache.WithRedisPort(rc.Port))
	}
	if rc.Prefix != "" {
		opts = append(opts, cache.WithRedisPrefix(rc.Prefix))
	}
	redisCache, err := cache.NewRedisCache(opts...)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if cfg.Cache.Backend == "layered" {
		return cache.NewLayeredCache(redisCache,
			cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
			cache.WithLayeredMemoryTTL(cfg.Cache.TTL),
		), nil
	}
	return redisCache, nil
}

// ProvideKafkaProducer creates the bands producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.BandsTopic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBandPublisher wraps the producer. Without one snapshots are dropped.
func ProvideBandPublisher(producer *pkgkafka.Producer) repository.BandPublisher {
	if producer == nil {
		return internalrepo.NoopBandPublisher{}
	}
	return internalrepo.NewKafkaBandPublisher(producer)
}

func ProvideBandsUseCase(
	cfg *config.Config,
	l *applogger.Logger,
	store repository.SeriesStore,
	settings repository.SettingsStore,
	m repository.Metrics,
	c cache.Service,
	pub repository.BandPublisher,
) *usecase.BandsUseCase {
	var opts []usecase.BandsOption
	if c != nil {
		opts = append(opts, usecase.WithBandsCache(c, cfg.Cache.TTL))
	}
	if cfg.Kafka.Enabled {
		opts = append(opts, usecase.WithBandsPublisher(pub))
	}
	uc := usecase.NewBandsUseCase(store, settings, m, opts...)
	uc.SetLogger(l.With("bands"))
	return uc
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(float64(cfg.RateLimit.Capacity), cfg.RateLimit.RefillPerSec)
}

// ProvideHandlers assembles every route group.
func ProvideHandlers(
	l *applogger.Logger,
	chart *usecase.ChartUseCase,
	bands *usecase.BandsUseCase,
	settings repository.SettingsStore,
	initial models.Settings,
	feed api.SeriesFeed,
	limiter *ratelimit.Limiter,
) []xhttp.Handler {
	ch := api.NewChartHandler(l.With("api"), chart, bands)
	sh := api.NewStreamHandler(l.With("stream"), bands, feed)
	if limiter != nil {
		mw := limiter.Middleware(nil)
		ch.SetRateLimit(mw)
		sh.SetRateLimit(mw)
	}
	return []xhttp.Handler{
		ch,
		api.NewSettingsHandler(l.With("settings"), settings, initial),
		sh,
	}
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l.With("http")),
	)
}

// ProvideKafkaConsumer creates the candles consumer when bars arrive over
// Kafka into the memory store. It returns nil otherwise.
func ProvideKafkaConsumer(
	cfg *config.Config,
	l *applogger.Logger,
	mem *internalrepo.MemorySeriesStore,
	m repository.Metrics,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Series.Backend != config.BackendMemory {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerBufferSize(kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
		pkgkafka.WithConsumerFetch(kc.MinBytes, kc.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	cl := l.With("ingest")
	consumer.SetLogger(cl)
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, km kafka.Message, _ []byte, err error) {
			cl.Warn("candle handling failed",
				applogger.String("topic", topic),
				applogger.Int("partition", km.Partition),
				applogger.Int64("offset", km.Offset),
				applogger.Error(err),
			)
		},
	})

	h := usecase.NewKafkaCandlesHandler(cfg.Kafka.CandlesTopic, mem, m)
	h.SetLogger(cl)
	consumer.RegisterHandler(h)
	return consumer, nil
}

// ProvideApp creates the application server and registers what it must close.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	pub repository.BandPublisher,
	c cache.Service,
	ch *pkgch.Client,
	limiter *ratelimit.Limiter,
) *server.App {
	app := server.New(l, srv, consumer, cfg.Server.ShutdownTimeout)
	app.AddResource("band publisher", pub.Close)
	if c != nil {
		app.AddResource("cache", c.Close)
	}
	if ch != nil {
		app.AddResource("clickhouse", ch.Close)
	}
	if limiter != nil {
		app.AddResource("rate limiter", limiter.StartPruning(cfg.RateLimit.PruneInterval, cfg.RateLimit.IdleTTL))
	}
	return app
}
