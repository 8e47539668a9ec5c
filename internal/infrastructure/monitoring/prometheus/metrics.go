package prometheus

import (
	"strconv"
	"time"
)

// PipelineMetrics holds every metric the pipeline, the fetcher and the HTTP
// API record.
type PipelineMetrics struct {
	EntitiesTotal      CounterVec   // outcome, category
	FetchDuration      HistogramVec // kind
	FetchErrorsTotal   CounterVec   // kind
	RecordsExtracted   CounterVec   // strategy
	StrategyWinsTotal  CounterVec   // strategy
	FitRSquared        HistogramVec // method
	RunDuration        HistogramVec // outcome
	ActiveWorkers      GaugeVec
	ObservationsTotal  CounterVec // status
	CacheAccessTotal   CounterVec // cache, result
	HTTPRequestsTotal  CounterVec   // method, path, status_code
	HTTPRequestLatency HistogramVec // method, path
}

var (
	FetchDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	RSquaredBuckets      = []float64{.5, .7, .8, .9, .95, .98, .99, .999, 1}
	RunDurationBuckets   = []float64{10, 30, 60, 120, 300, 600, 1800, 3600}
	HTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5}
)

// NewPipelineMetrics registers all metrics on collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	return &PipelineMetrics{
		EntitiesTotal:      collector.RegisterCounter("entities_processed_total", "Species processed by outcome and failure category", "outcome", "category"),
		FetchDuration:      collector.RegisterHistogram("fetch_duration_seconds", "Document fetch duration", FetchDurationBuckets, "kind"),
		FetchErrorsTotal:   collector.RegisterCounter("fetch_errors_total", "Document fetch failures", "kind"),
		RecordsExtracted:   collector.RegisterCounter("records_extracted_total", "Measurement records extracted", "strategy"),
		StrategyWinsTotal:  collector.RegisterCounter("strategy_wins_total", "Extraction strategy that produced the grid", "strategy"),
		FitRSquared:        collector.RegisterHistogram("fit_r_squared", "Coefficient of determination of fitted species", RSquaredBuckets, "method"),
		RunDuration:        collector.RegisterHistogram("run_duration_seconds", "Pipeline run duration", RunDurationBuckets, "outcome"),
		ActiveWorkers:      collector.RegisterGauge("active_workers", "Workers currently processing a species"),
		ObservationsTotal:  collector.RegisterCounter("observations_total", "Accumulated observations by resulting status", "status"),
		CacheAccessTotal:   collector.RegisterCounter("cache_access_total", "Cache lookups", "cache", "result"),
		HTTPRequestsTotal:  collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestLatency: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", HTTPDurationBuckets, "method", "path"),
	}
}

// NewNopMetrics returns metrics that record nothing.
func NewNopMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		EntitiesTotal:      noopCounterVec{},
		FetchDuration:      noopHistogramVec{},
		FetchErrorsTotal:   noopCounterVec{},
		RecordsExtracted:   noopCounterVec{},
		StrategyWinsTotal:  noopCounterVec{},
		FitRSquared:        noopHistogramVec{},
		RunDuration:        noopHistogramVec{},
		ActiveWorkers:      noopGaugeVec{},
		ObservationsTotal:  noopCounterVec{},
		CacheAccessTotal:   noopCounterVec{},
		HTTPRequestsTotal:  noopCounterVec{},
		HTTPRequestLatency: noopHistogramVec{},
	}
}

// RecordEntity counts one processed species.  category is empty on success.
func (m *PipelineMetrics) RecordEntity(success bool, category string) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.EntitiesTotal.WithLabelValues(outcome, category).Inc()
}

// RecordFetch observes one fetch.  kind is "ok" or the failure kind.
func (m *PipelineMetrics) RecordFetch(kind string, d time.Duration) {
	m.FetchDuration.WithLabelValues(kind).Observe(d.Seconds())
	if kind != "ok" {
		m.FetchErrorsTotal.WithLabelValues(kind).Inc()
	}
}

// RecordExtraction counts the winning strategy and its records.
func (m *PipelineMetrics) RecordExtraction(strategy string, records int) {
	m.StrategyWinsTotal.WithLabelValues(strategy).Inc()
	m.RecordsExtracted.WithLabelValues(strategy).Add(float64(records))
}

// RecordFit observes a fitted R².
func (m *PipelineMetrics) RecordFit(method string, rSquared float64) {
	m.FitRSquared.WithLabelValues(method).Observe(rSquared)
}

// RecordRun observes a completed run.
func (m *PipelineMetrics) RecordRun(cancelled bool, d time.Duration) {
	outcome := "completed"
	if cancelled {
		outcome = "cancelled"
	}
	m.RunDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordCacheAccess counts a cache hit or miss.
func (m *PipelineMetrics) RecordCacheAccess(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccessTotal.WithLabelValues(cache, result).Inc()
}

// RecordHTTPRequest counts one served request.
func (m *PipelineMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestLatency.WithLabelValues(method, path).Observe(d.Seconds())
}

//Personal.AI order the ending
