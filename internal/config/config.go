// Package config defines the configuration structures for the fishlwr
// pipeline.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline
// ─────────────────────────────────────────────────────────────────────────────

// PipelineConfig holds the run configuration consumed by the worker pool.
type PipelineConfig struct {
	// CatalogURLs are the index documents listing species.  The original
	// source publishes edible and non-edible species on separate indices.
	CatalogURLs []string `mapstructure:"catalog_urls"`

	WorkerCount  int           `mapstructure:"worker_count"`
	RequestDelay time.Duration `mapstructure:"request_delay"`
	ItemTimeout  time.Duration `mapstructure:"item_timeout"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`

	// ProgressEvery controls how often progress is logged, in entities.
	ProgressEvery int `mapstructure:"progress_every"`

	// EntityMarker is the text that flags the species header on a detail page.
	EntityMarker string `mapstructure:"entity_marker"`

	// ArchiveRaw uploads every fetched detail document to object storage.
	ArchiveRaw bool `mapstructure:"archive_raw"`
}

// RegressionConfig selects and bounds the fitting method.
type RegressionConfig struct {
	Method        string  `mapstructure:"method"` // "loglinear" | "nonlinear"
	BMin          float64 `mapstructure:"b_min"`
	BMax          float64 `mapstructure:"b_max"`
	MaxIterations int     `mapstructure:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance"`
}

// FetchConfig holds tunables for the detail-document HTTP client.
type FetchConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerOpenFor  time.Duration `mapstructure:"breaker_open_for"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheEnabled    bool          `mapstructure:"cache_enabled"`
}

// FallbackConfig points at the static hand-entered tables.
type FallbackConfig struct {
	Path string `mapstructure:"path"`
}

// AccumulatorConfig selects where observation stores are persisted.
type AccumulatorConfig struct {
	Backend        string `mapstructure:"backend"` // "file" | "redis"
	DataPointsPath string `mapstructure:"data_points_path"`
	AlgorithmsPath string `mapstructure:"algorithms_path"`
}

// OutputConfig lists enabled sinks.
type OutputConfig struct {
	Dir   string   `mapstructure:"dir"`
	Sinks []string `mapstructure:"sinks"` // csv, json, postgres, minio, kafka
}

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DatasetPath     string        `mapstructure:"dataset_path"`
	DatasetTTL      time.Duration `mapstructure:"dataset_ttl"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second per client, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// DSN renders the connection string understood by both pgx and lib/pq.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// KafkaConfig holds producer and consumer parameters.
type KafkaConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Brokers          []string `mapstructure:"brokers"`
	GroupID          string   `mapstructure:"group_id"`
	FittedTopic      string   `mapstructure:"fitted_topic"`
	ObservationTopic string   `mapstructure:"observation_topic"`
	DeadLetterTopic  string   `mapstructure:"dead_letter_topic"`
	MaxRetries       int      `mapstructure:"max_retries"`
	BatchSize        int      `mapstructure:"batch_size"`
}

// MinIOConfig holds object-storage parameters.
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	RawBucket       string `mapstructure:"raw_bucket"`
	ArtifactBucket  string `mapstructure:"artifact_bucket"`
	RawRetentionDay int    `mapstructure:"raw_retention_days"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// MetricsConfig holds Prometheus parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Regression  RegressionConfig  `mapstructure:"regression"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Fallback    FallbackConfig    `mapstructure:"fallback"`
	Accumulator AccumulatorConfig `mapstructure:"accumulator"`
	Output      OutputConfig      `mapstructure:"output"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	MinIO       MinIOConfig       `mapstructure:"minio"`
	Log         LogConfig         `mapstructure:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully-populated Config and
// returns the first problem found.  Infrastructure sections are only checked
// when enabled.
func (c *Config) Validate() error {
	// Pipeline
	if len(c.Pipeline.CatalogURLs) == 0 {
		return fmt.Errorf("config: pipeline.catalog_urls must contain at least one URL")
	}
	for _, raw := range c.Pipeline.CatalogURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: pipeline.catalog_urls entry %q is not an absolute URL", raw)
		}
	}
	if c.Pipeline.WorkerCount < 1 {
		return fmt.Errorf("config: pipeline.worker_count must be ≥ 1, got %d", c.Pipeline.WorkerCount)
	}
	if c.Pipeline.RequestDelay < 0 {
		return fmt.Errorf("config: pipeline.request_delay must not be negative")
	}

	// Regression
	switch c.Regression.Method {
	case "loglinear", "nonlinear":
	default:
		return fmt.Errorf("config: regression.method %q is invalid; expected loglinear|nonlinear", c.Regression.Method)
	}
	if c.Regression.BMin <= 0 || c.Regression.BMax < c.Regression.BMin {
		return fmt.Errorf("config: regression bounds [%g, %g] are invalid", c.Regression.BMin, c.Regression.BMax)
	}

	// Accumulator
	switch c.Accumulator.Backend {
	case "file":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("config: accumulator.backend redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("config: accumulator.backend %q is invalid; expected file|redis", c.Accumulator.Backend)
	}

	// Output
	for _, s := range c.Output.Sinks {
		switch s {
		case "csv", "json":
		case "postgres":
			if !c.Database.Enabled {
				return fmt.Errorf("config: output sink postgres requires database.enabled")
			}
		case "minio":
			if !c.MinIO.Enabled {
				return fmt.Errorf("config: output sink minio requires minio.enabled")
			}
		case "kafka":
			if !c.Kafka.Enabled {
				return fmt.Errorf("config: output sink kafka requires kafka.enabled")
			}
		default:
			return fmt.Errorf("config: output sink %q is unknown", s)
		}
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
		}
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
	}

	// MinIO
	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
