package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
	"stockprob/internal/handler/api"
	internalrepo "stockprob/internal/repository"
	"stockprob/internal/service/ratelimit"
	"stockprob/internal/service/tushare"
	"stockprob/internal/usecase"
	"stockprob/pkg/cache"
	pkgch "stockprob/pkg/clickhouse"
	"stockprob/pkg/config"
	xhttp "stockprob/pkg/http"
	pkgkafka "stockprob/pkg/kafka"
	"stockprob/pkg/logger"
	"stockprob/pkg/metrics"
	"stockprob/pkg/server"
)

// exchangeLocation is the time zone trade dates and minute bars are stamped in.
func exchangeLocation() *time.Location {
	if loc, err := time.LoadLocation("Asia/Shanghai"); err == nil {
		return loc
	}
	return time.FixedZone("CST", 8*3600)
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Dir:    cfg.Log.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) drepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.NewWithRegistry(reg)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher announces saved tables on Kafka when a producer exists.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) drepo.EventPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
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
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideResultSink mirrors saved tables into ClickHouse when a client exists.
func ProvideResultSink(cfg *config.Config, client *pkgch.Client) (drepo.ResultSink, error) {
	if client == nil {
		return internalrepo.NopSink{}, nil
	}
	sink := internalrepo.NewClickHouseSink(client, cfg.ClickHouse.Table)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sink.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return sink, nil
}

// ProvideCache creates the market data cache, or nil when caching is off.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if cfg.Cache.Backend == "memory" {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	}
	remote, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(remote,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	), nil
}

// ProvideTushareClient creates the provider HTTP client.
func ProvideTushareClient(cfg *config.Config, m drepo.Metrics) *tushare.Client {
	return tushare.NewClient(cfg.Tushare.Token,
		tushare.WithURL(cfg.Tushare.URL),
		tushare.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Tushare.Timeout))),
		tushare.WithRateLimit(cfg.Tushare.RPS, cfg.Tushare.Burst),
		tushare.WithCallTimeout(cfg.Engine.FetchTimeout),
		tushare.WithMetrics(m),
	)
}

// ProvideMarketData builds the rate-limited gateway, wrapped in a cache when
// one is configured.
func ProvideMarketData(cfg *config.Config, client *tushare.Client, c cache.Service, log *logger.Logger, m drepo.Metrics) drepo.MarketData {
	gw := tushare.NewGateway(client, log,
		tushare.WithLimiters(
			ratelimit.PerMinute(cfg.Limits.MinutesPerMinute),
			ratelimit.PerMinute(cfg.Limits.AuctionPerMinute),
		),
		tushare.WithLocation(exchangeLocation()),
		tushare.WithGatewayMetrics(m),
	)
	if c == nil {
		return gw
	}
	return tushare.NewCachedMarketData(gw, c, tushare.CacheTTLs{
		Roster:    cfg.Cache.TTL.Roster,
		Basic:     cfg.Cache.TTL.Basic,
		DailyBars: cfg.Cache.TTL.DailyBars,
	}, log, m)
}

// ProvideResultStore creates the CSV period-table store.
func ProvideResultStore(cfg *config.Config) (*internalrepo.FileResultStore, error) {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return internalrepo.NewFileResultStore(cfg.Storage.DataDir), nil
}

// ProvideUniverseStore creates the filtered-universe store.
func ProvideUniverseStore(cfg *config.Config) *internalrepo.FileUniverseStore {
	return internalrepo.NewFileUniverseStore(cfg.Storage.DataDir)
}

// ProvideUniverseService creates the screened universe service.
func ProvideUniverseService(cfg *config.Config, md drepo.MarketData, store *internalrepo.FileUniverseStore, log *logger.Logger) *usecase.UniverseService {
	u := cfg.Universe
	filter := usecase.NewUniverseFilter(md, store, usecase.UniverseConfig{
		AsOfDate:        u.AsOfDate,
		ExcludeSuffixes: u.ExcludeSuffixes,
		ExcludePrefixes: u.ExcludePrefixes,
		RiskMarker:      u.RiskMarker,
		ValuationBatch:  u.ValuationBatch,
		MinTotalMV:      u.MinTotalMV,
		MaxTotalMV:      u.MaxTotalMV,
		MinFloatRatio:   u.MinFloatRatio,
		Blacklist:       u.Blacklist,
		MaxLagDays:      u.MaxLagDays,
	}, log)
	return usecase.NewUniverseService(md, filter, store, log)
}

// ProvideFetcher creates the next-day data fetcher.
func ProvideFetcher(cfg *config.Config, md drepo.MarketData, log *logger.Logger) *usecase.Fetcher {
	return usecase.NewFetcher(md, usecase.FetchConfig{
		BatchSize:  cfg.Engine.BatchSize,
		Workers:    cfg.Engine.Workers,
		BatchPause: cfg.Engine.BatchPause,
	}, log)
}

// enginePeriods resolves configured period ids, rejecting unknown ones.
func enginePeriods(ids []string) ([]models.PeriodSpec, error) {
	out := make([]models.PeriodSpec, 0, len(ids))
	for _, id := range ids {
		spec, ok := models.LookupPeriod(models.Period(id))
		if !ok {
			return nil, fmt.Errorf("unknown engine period %q", id)
		}
		out = append(out, spec)
	}
	return out, nil
}

// ProvideEngine creates the probability engine.
func ProvideEngine(
	cfg *config.Config,
	md drepo.MarketData,
	fetcher *usecase.Fetcher,
	store *internalrepo.FileResultStore,
	sink drepo.ResultSink,
	events drepo.EventPublisher,
	m drepo.Metrics,
	log *logger.Logger,
) (*usecase.Engine, error) {
	periods, err := enginePeriods(cfg.Engine.Periods)
	if err != nil {
		return nil, err
	}
	return usecase.NewEngine(md, fetcher, store, log, usecase.EngineConfig{
		FloorDate:  cfg.Engine.FloorDate,
		Periods:    periods,
		ReuseToday: cfg.Engine.ReuseToday,
	},
		usecase.WithLocation(exchangeLocation()),
		usecase.WithSink(sink),
		usecase.WithEvents(events),
		usecase.WithEngineMetrics(m),
	), nil
}

// ProvideStockService creates the stock query service.
func ProvideStockService(universe *usecase.UniverseService, md drepo.MarketData, engine *usecase.Engine, store *internalrepo.FileResultStore, log *logger.Logger) *usecase.StockService {
	return usecase.NewStockService(universe, md, engine, store, log)
}

// ProvideParquetExporter creates the Parquet exporter over stored tables.
func ProvideParquetExporter(store *internalrepo.FileResultStore, log *logger.Logger) *internalrepo.ParquetExporter {
	return internalrepo.NewParquetExporter(store, log)
}

// ProvideStocksHandler creates the stock HTTP routes.
func ProvideStocksHandler(log *logger.Logger, svc *usecase.StockService) *api.StocksEchoHandler {
	return api.NewStocksEchoHandler(log, svc)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.StocksEchoHandler, log *logger.Logger, reg *prometheus.Registry, chClient *pkgch.Client) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithDebug(cfg.Server.Debug),
		xhttp.WithLogger(log),
		xhttp.WithRegistry(reg),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
	}
	if chClient != nil {
		opts = append(opts, xhttp.WithReadinessCheck("clickhouse", chClient.Health))
	}
	return xhttp.NewServer([]xhttp.Handler{h}, opts...)
}

// ProvideApp creates the application and registers every closable client.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	httpServer *xhttp.Server,
	stocks *usecase.StockService,
	universe *usecase.UniverseService,
	exporter *internalrepo.ParquetExporter,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	c cache.Service,
) *server.App {
	var resources []server.Resource
	if chClient != nil {
		resources = append(resources, server.Resource{Name: "clickhouse", Close: chClient.Close})
	}
	if c != nil {
		resources = append(resources, server.Resource{Name: "cache", Close: c.Close})
	}
	if producer != nil {
		resources = append(resources, server.Resource{Name: "kafka", Close: producer.Close})
		if cfg.Log.Collector.Enabled {
			log.AddCollector(&logger.CollectionConfig{
				TimeInterval:   cfg.Log.Collector.Interval,
				CountThreshold: cfg.Log.Collector.Threshold,
				Topic:          cfg.Log.Collector.Topic,
				Publisher:      producer,
			})
			// closed before the producer so the last batch still goes out
			resources = append(resources, server.Resource{Name: "log collector", Close: func() error {
				log.RemoveCollector()
				return nil
			}})
		}
	}
	return server.New(cfg, log, httpServer, stocks, universe, exporter, resources...)
}
