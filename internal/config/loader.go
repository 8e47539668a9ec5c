package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "FISHLWR"

// envKeys lists the scalar keys that may be supplied purely through the
// environment.  viper only consults AutomaticEnv for keys it already knows,
// so they are registered with an empty default before Unmarshal.
var envKeys = []string{
	"pipeline.worker_count", "pipeline.request_delay", "pipeline.item_timeout",
	"pipeline.run_timeout", "pipeline.archive_raw",
	"regression.method", "regression.b_min", "regression.b_max",
	"fetch.timeout", "fetch.user_agent", "fetch.cache_enabled",
	"fallback.path",
	"accumulator.backend",
	"output.dir",
	"server.port", "server.mode", "server.dataset_path",
	"database.enabled", "database.host", "database.port", "database.user",
	"database.password", "database.db_name", "database.ssl_mode",
	"redis.enabled", "redis.addr", "redis.password", "redis.db",
	"kafka.enabled", "kafka.group_id",
	"minio.enabled", "minio.endpoint", "minio.access_key", "minio.secret_key", "minio.use_ssl",
	"log.level", "log.format",
	"metrics.enabled",
}

// newViper returns a viper instance with YAML file type, the FISHLWR_ env
// prefix and a "." → "_" key replacer, so "database.host" resolves to
// FISHLWR_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges FISHLWR_* overrides,
// applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from FISHLWR_* variables and defaults only.
//
//	FISHLWR_<SECTION>_<FIELD>   e.g.  FISHLWR_PIPELINE_WORKER_COUNT
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrDefault loads configPath when it is non-empty and falls back to
// LoadFromEnv otherwise.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch invokes onChange with the re-parsed Config whenever configPath
// changes on disk.  Invalid revisions are skipped.  Only settings that are
// safe to change mid-run (log level, request delay) should be applied by
// the callback.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad is Load that panics on error.  For use in main only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
