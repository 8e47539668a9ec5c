package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/fishlwr/internal/accumulator"
	"github.com/turtacn/fishlwr/internal/application/lookup"
	"github.com/turtacn/fishlwr/internal/catalog"
	"github.com/turtacn/fishlwr/internal/config"
	"github.com/turtacn/fishlwr/internal/extraction"
	"github.com/turtacn/fishlwr/internal/fallback"
	"github.com/turtacn/fishlwr/internal/infrastructure/database/postgres"
	"github.com/turtacn/fishlwr/internal/infrastructure/database/redis"
	"github.com/turtacn/fishlwr/internal/infrastructure/fetch"
	"github.com/turtacn/fishlwr/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/fishlwr/internal/infrastructure/storage/minio"
	"github.com/turtacn/fishlwr/internal/interfaces/http/handlers"
	"github.com/turtacn/fishlwr/internal/pipeline"
	"github.com/turtacn/fishlwr/internal/regression"
	"github.com/turtacn/fishlwr/internal/sink"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// backends holds the optional infrastructure a command opened according to
// the enabled config sections.  Nil fields are disabled.
type backends struct {
	logger logging.Logger

	collector prometheus.MetricsCollector
	metrics   *prometheus.PipelineMetrics

	redis    *redis.Client
	pool     *pgxpool.Pool
	repo     *postgres.SpeciesRepository
	minio    *minio.Client
	producer *kafka.Producer

	closers []func()
}

// openBackends connects every enabled backend.  On error everything opened
// so far is closed.
func openBackends(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *backends, err error) {
	b := &backends{logger: logger, metrics: prometheus.NewNopMetrics()}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		b.collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            cfg.Metrics.Subsystem,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger.Named("metrics"))
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		b.metrics = prometheus.NewPipelineMetrics(b.collector)
	}

	if cfg.Redis.Enabled {
		b.redis, err = redis.NewClient(redis.ClientConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		}, logger.Named("redis"))
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		client := b.redis
		b.closers = append(b.closers, func() { _ = client.Close() })
	}

	if cfg.Database.Enabled {
		b.pool, err = postgres.NewPool(ctx, cfg.Database, logger.Named("postgres"))
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.repo = postgres.NewSpeciesRepository(b.pool, logger.Named("postgres"))
		pool := b.pool
		b.closers = append(b.closers, pool.Close)
	}

	if cfg.MinIO.Enabled {
		b.minio, err = minio.NewClient(ctx, cfg.MinIO, logger.Named("minio"))
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
	}

	if cfg.Kafka.Enabled {
		b.producer, err = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:    cfg.Kafka.Brokers,
			MaxRetries: cfg.Kafka.MaxRetries,
			BatchSize:  cfg.Kafka.BatchSize,
		}, logger.Named("kafka"))
		if err != nil {
			return nil, fmt.Errorf("kafka: %w", err)
		}
		producer := b.producer
		b.closers = append(b.closers, func() { _ = producer.Close() })
	}

	return b, nil
}

// Close releases the backends in reverse opening order.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// healthCheckers returns one readiness check per open backend.
func (b *backends) healthCheckers() []handlers.HealthChecker {
	var out []handlers.HealthChecker
	if b.redis != nil {
		out = append(out, handlers.CheckFunc{Label: "redis", Fn: b.redis.Ping})
	}
	if b.pool != nil {
		out = append(out, handlers.CheckFunc{Label: "postgres", Fn: b.pool.Ping})
	}
	if b.minio != nil {
		out = append(out, handlers.CheckFunc{Label: "minio", Fn: b.minio.HealthCheck})
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Component builders
// ─────────────────────────────────────────────────────────────────────────────

// regressionOptions maps the regression config section onto fitter options.
func regressionOptions(cfg config.RegressionConfig) regression.Options {
	opts := regression.DefaultOptions()
	if m, ok := species.ParseFitMethod(cfg.Method); ok {
		opts.Method = m
	}
	if cfg.BMin > 0 {
		opts.BMin = cfg.BMin
	}
	if cfg.BMax > 0 {
		opts.BMax = cfg.BMax
	}
	if cfg.MaxIterations > 0 {
		opts.MaxIterations = cfg.MaxIterations
	}
	if cfg.Tolerance > 0 {
		opts.Tolerance = cfg.Tolerance
	}
	return opts
}

// buildPipeline assembles fetcher, catalog resolver, extractor, fitter and
// the optional fallback, archive and merge lock.
func buildPipeline(cfg *config.Config, b *backends) (*pipeline.Pipeline, error) {
	logger := b.logger

	httpFetcher := fetch.NewHTTPFetcher(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
		fetch.WithMaxBodyBytes(cfg.Fetch.MaxBodyBytes),
		fetch.WithRequestDelay(cfg.Pipeline.RequestDelay),
		fetch.WithBreaker(cfg.Fetch.BreakerFailures, cfg.Fetch.BreakerOpenFor),
		fetch.WithLogger(logger.Named("fetch")),
		fetch.WithMetrics(b.metrics),
	)
	var (
		rawFetcher fetch.RawFetcher = httpFetcher
		docFetcher fetch.Fetcher    = httpFetcher
	)
	if cfg.Fetch.CacheEnabled && b.redis != nil {
		cached := fetch.NewCachedFetcher(httpFetcher, redis.NewCache(b.redis, "fetch", logger), cfg.Fetch.CacheTTL, logger.Named("fetch"), b.metrics)
		rawFetcher, docFetcher = cached, cached
	}

	resolver := catalog.NewResolver(docFetcher, cfg.Pipeline.CatalogURLs, logger.Named("catalog"))
	extractor := extraction.NewExtractor(extraction.NewChain(logger.Named("extraction")), cfg.Pipeline.EntityMarker)
	fitter := regression.NewFitter(regressionOptions(cfg.Regression))

	options := []pipeline.Option{
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithMetrics(b.metrics),
	}
	if cfg.Fallback.Path != "" {
		fb, err := fallback.Load(cfg.Fallback.Path)
		if err != nil {
			return nil, err
		}
		options = append(options, pipeline.WithFallback(fb))
	}
	if cfg.Pipeline.ArchiveRaw && b.minio != nil {
		options = append(options, pipeline.WithArchiver(b.minio))
	}
	if b.redis != nil {
		options = append(options, pipeline.WithMergeLock(redis.NewMutex(b.redis, "merge", redis.WithLockTTL(cfg.Redis.LockTTL))))
	}

	return pipeline.New(pipeline.OptionsFromConfig(cfg.Pipeline), resolver, rawFetcher, extractor, fitter, options...), nil
}

// buildSinks splits the configured sinks into the snapshot group, which
// receives the whole merged dataset, and the delta group, which receives
// only what one run fitted.
func buildSinks(cfg *config.Config, b *backends, runID string) (snapshot, delta *sink.MultiSink) {
	var snap, del []sink.Sink
	for _, name := range cfg.Output.Sinks {
		switch name {
		case "csv":
			snap = append(snap, sink.NewCSVSink(cfg.Output.Dir))
		case "json":
			snap = append(snap, sink.NewJSONSink(cfg.Output.Dir))
		case "minio":
			if b.minio != nil {
				snap = append(snap, sink.NewObjectSink(b.minio, runID))
			}
		case "postgres":
			if b.repo != nil {
				del = append(del, sink.NewPostgresSink(b.repo, runID, b.logger.Named("sink")))
			}
		case "kafka":
			if b.producer != nil {
				del = append(del, sink.NewEventSink(b.producer, cfg.Kafka.FittedTopic, runID))
			}
		}
	}
	return sink.NewMultiSink(b.logger, snap...), sink.NewMultiSink(b.logger, del...)
}

// buildAccumulator picks the file or redis stores.  With redis each species
// is refitted under its own lock.
func buildAccumulator(cfg *config.Config, b *backends) *accumulator.Accumulator {
	logger := b.logger.Named("accumulator")
	options := []accumulator.Option{accumulator.WithMetrics(b.metrics)}

	if cfg.Accumulator.Backend == "redis" && b.redis != nil {
		store := accumulator.NewRedisStore(b.redis)
		client := b.redis
		options = append(options, accumulator.WithLocks(func(name string) redis.Locker {
			return redis.NewMutex(client, "accumulator:"+species.NameKey(name), redis.WithLockTTL(cfg.Redis.LockTTL))
		}))
		return accumulator.New(store, store, regressionOptions(cfg.Regression), logger, options...)
	}

	return accumulator.New(
		accumulator.NewFilePointStore(cfg.Accumulator.DataPointsPath, logger),
		accumulator.NewFileAlgorithmStore(cfg.Accumulator.AlgorithmsPath, logger),
		regressionOptions(cfg.Regression),
		logger,
		options...,
	)
}

// datasetSource reads the canonical dataset from postgres when it is
// enabled and from the JSON sink file otherwise.  A non-empty override
// always selects that file.
func datasetSource(cfg *config.Config, b *backends, override string) lookup.Source {
	if override != "" {
		return lookup.FileSource{Path: override}
	}
	if b.repo != nil {
		return b.repo
	}
	return lookup.FileSource{Path: cfg.Server.DatasetPath}
}

// canonicalPath is the JSON sink file inside dir.
func canonicalPath(dir string) string {
	return filepath.Join(dir, sink.CanonicalJSON)
}

//Personal.AI order the ending
