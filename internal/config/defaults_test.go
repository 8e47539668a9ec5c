package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, []string{DefaultEdibleCatalogURL, DefaultNonEdibleCatalogURL}, cfg.Pipeline.CatalogURLs)
	assert.Equal(t, DefaultWorkerCount, cfg.Pipeline.WorkerCount)
	assert.Equal(t, DefaultRequestDelay, cfg.Pipeline.RequestDelay)
	assert.Equal(t, DefaultEntityMarker, cfg.Pipeline.EntityMarker)
	assert.Equal(t, DefaultBMin, cfg.Regression.BMin)
	assert.Equal(t, DefaultBMax, cfg.Regression.BMax)
	assert.Equal(t, "loglinear", cfg.Regression.Method)
	assert.Equal(t, []string{"csv", "json"}, cfg.Output.Sinks)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Accumulator.Backend)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Pipeline.WorkerCount = 16
	cfg.Regression.BMin = 2.0
	cfg.Regression.BMax = 4.0
	cfg.Server.Port = 9999
	ApplyDefaults(cfg)

	assert.Equal(t, 16, cfg.Pipeline.WorkerCount)
	assert.Equal(t, 2.0, cfg.Regression.BMin)
	assert.Equal(t, 4.0, cfg.Regression.BMax)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

//Personal.AI order the ending
