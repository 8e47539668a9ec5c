package config

import (
	"path/filepath"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultEdibleCatalogURL    = "http://specialistangler.co.za/LengthToWeight/LtoWconv.asp?Edible=1"
	DefaultNonEdibleCatalogURL = "http://specialistangler.co.za/LengthToWeight/LtoWconv.asp?Edible=0"

	DefaultWorkerCount   = 4
	DefaultRequestDelay  = 500 * time.Millisecond
	DefaultItemTimeout   = 30 * time.Second
	DefaultProgressEvery = 10
	DefaultEntityMarker  = "SPECIES:"

	DefaultRegressionMethod = "loglinear"
	DefaultBMin             = 2.5
	DefaultBMax             = 3.5
	DefaultMaxIterations    = 200
	DefaultTolerance        = 1e-10

	DefaultFetchTimeout    = 20 * time.Second
	DefaultUserAgent       = "fishlwr/1.0 (+length-weight survey)"
	DefaultMaxBodyBytes    = 4 << 20
	DefaultBreakerFailures = 5
	DefaultBreakerOpenFor  = 30 * time.Second
	DefaultCacheTTL        = 24 * time.Hour

	DefaultAccumulatorBackend = "file"
	DefaultDataPointsPath     = "data/self_improving_data_points.json"
	DefaultAlgorithmsPath     = "data/self_improving_algorithms.json"

	DefaultOutputDir = "output"

	DefaultServerPort = 8080
	DefaultServerMode = "release"
	DefaultDatasetTTL = time.Minute
	DefaultRateBurst  = 20

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "fishlwr"
	DefaultDBMaxConns = 10

	DefaultRedisAddr    = "localhost:6379"
	DefaultRedisPrefix  = "fishlwr"
	DefaultRedisLockTTL = 2 * time.Minute

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "fishlwr-worker"
	DefaultFittedTopic      = "fishlwr.species.fitted"
	DefaultObservationTopic = "fishlwr.observation.submitted"
	DefaultDeadLetterTopic  = "fishlwr.dlq"
	DefaultKafkaMaxRetries  = 3

	DefaultMinIOEndpoint   = "localhost:9000"
	DefaultRawBucket       = "fishlwr-raw"
	DefaultArtifactBucket  = "fishlwr-artifacts"
	DefaultRawRetentionDay = 30

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "fishlwr"
)

// ApplyDefaults fills every zero-value field in cfg.  Explicitly set values
// are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Pipeline ─────────────────────────────────────────────────────────────
	if len(cfg.Pipeline.CatalogURLs) == 0 {
		cfg.Pipeline.CatalogURLs = []string{DefaultEdibleCatalogURL, DefaultNonEdibleCatalogURL}
	}
	if cfg.Pipeline.WorkerCount == 0 {
		cfg.Pipeline.WorkerCount = DefaultWorkerCount
	}
	if cfg.Pipeline.RequestDelay == 0 {
		cfg.Pipeline.RequestDelay = DefaultRequestDelay
	}
	if cfg.Pipeline.ItemTimeout == 0 {
		cfg.Pipeline.ItemTimeout = DefaultItemTimeout
	}
	if cfg.Pipeline.ProgressEvery == 0 {
		cfg.Pipeline.ProgressEvery = DefaultProgressEvery
	}
	if cfg.Pipeline.EntityMarker == "" {
		cfg.Pipeline.EntityMarker = DefaultEntityMarker
	}

	// ── Regression ───────────────────────────────────────────────────────────
	if cfg.Regression.Method == "" {
		cfg.Regression.Method = DefaultRegressionMethod
	}
	if cfg.Regression.BMin == 0 && cfg.Regression.BMax == 0 {
		cfg.Regression.BMin = DefaultBMin
		cfg.Regression.BMax = DefaultBMax
	}
	if cfg.Regression.MaxIterations == 0 {
		cfg.Regression.MaxIterations = DefaultMaxIterations
	}
	if cfg.Regression.Tolerance == 0 {
		cfg.Regression.Tolerance = DefaultTolerance
	}

	// ── Fetch ────────────────────────────────────────────────────────────────
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = DefaultFetchTimeout
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = DefaultUserAgent
	}
	if cfg.Fetch.MaxBodyBytes == 0 {
		cfg.Fetch.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Fetch.BreakerFailures == 0 {
		cfg.Fetch.BreakerFailures = DefaultBreakerFailures
	}
	if cfg.Fetch.BreakerOpenFor == 0 {
		cfg.Fetch.BreakerOpenFor = DefaultBreakerOpenFor
	}
	if cfg.Fetch.CacheTTL == 0 {
		cfg.Fetch.CacheTTL = DefaultCacheTTL
	}

	// ── Accumulator ──────────────────────────────────────────────────────────
	if cfg.Accumulator.Backend == "" {
		cfg.Accumulator.Backend = DefaultAccumulatorBackend
	}
	if cfg.Accumulator.DataPointsPath == "" {
		cfg.Accumulator.DataPointsPath = DefaultDataPointsPath
	}
	if cfg.Accumulator.AlgorithmsPath == "" {
		cfg.Accumulator.AlgorithmsPath = DefaultAlgorithmsPath
	}

	// ── Output ───────────────────────────────────────────────────────────────
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if len(cfg.Output.Sinks) == 0 {
		cfg.Output.Sinks = []string{"csv", "json"}
	}

	// ── Server ───────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.DatasetPath == "" {
		cfg.Server.DatasetPath = filepath.Join(cfg.Output.Dir, "canonical.json")
	}
	if cfg.Server.DatasetTTL == 0 {
		cfg.Server.DatasetTTL = DefaultDatasetTTL
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = DefaultRateBurst
	}

	// ── Database ─────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "file://migrations"
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisPrefix
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = DefaultRedisLockTTL
	}

	// ── Kafka ────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.FittedTopic == "" {
		cfg.Kafka.FittedTopic = DefaultFittedTopic
	}
	if cfg.Kafka.ObservationTopic == "" {
		cfg.Kafka.ObservationTopic = DefaultObservationTopic
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = DefaultDeadLetterTopic
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}

	// ── MinIO ────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.RawBucket == "" {
		cfg.MinIO.RawBucket = DefaultRawBucket
	}
	if cfg.MinIO.ArtifactBucket == "" {
		cfg.MinIO.ArtifactBucket = DefaultArtifactBucket
	}
	if cfg.MinIO.RawRetentionDay == 0 {
		cfg.MinIO.RawRetentionDay = DefaultRawRetentionDay
	}

	// ── Log ──────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ──────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

//Personal.AI order the ending
