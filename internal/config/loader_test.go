package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
pipeline:
  catalog_urls:
    - "http://example.test/LengthToWeight/LtoWconv.asp?Edible=1"
  worker_count: 2
  request_delay: 250ms
regression:
  method: nonlinear
  b_min: 2.6
  b_max: 3.4
output:
  dir: /tmp/fishlwr
  sinks: [json]
log:
  level: debug
  format: console
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://example.test/LengthToWeight/LtoWconv.asp?Edible=1"}, cfg.Pipeline.CatalogURLs)
	assert.Equal(t, 2, cfg.Pipeline.WorkerCount)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.RequestDelay)
	assert.Equal(t, "nonlinear", cfg.Regression.Method)
	assert.Equal(t, 2.6, cfg.Regression.BMin)
	assert.Equal(t, []string{"json"}, cfg.Output.Sinks)
	assert.Equal(t, "debug", cfg.Log.Level)
	// defaulted
	assert.Equal(t, DefaultEntityMarker, cfg.Pipeline.EntityMarker)
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "fishlwr.yaml"))
	require.NoError(t, err)

	assert.Len(t, cfg.Pipeline.CatalogURLs, 2)
	assert.Equal(t, DefaultFittedTopic, cfg.Kafka.FittedTopic)
	assert.Equal(t, "configs/fallback.yaml", cfg.Fallback.Path)
	assert.InDelta(t, DefaultTolerance, cfg.Regression.Tolerance, 1e-15)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "regression:\n  method: cubic\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FISHLWR_PIPELINE_WORKER_COUNT", "7")
	t.Setenv("FISHLWR_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.WorkerCount)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FISHLWR_SERVER_PORT", "9090")
	t.Setenv("FISHLWR_REGRESSION_METHOD", "nonlinear")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "nonlinear", cfg.Regression.Method)
	assert.Equal(t, DefaultWorkerCount, cfg.Pipeline.WorkerCount)
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Pipeline.CatalogURLs)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

//Personal.AI order the ending
