package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the pipeline and its API expose.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// Pipeline
	PipelineRunsTotal     CounterVec
	PipelineStageDuration HistogramVec
	TaxonomyNodes         GaugeVec
	CategoryMergesTotal   CounterVec
	UnmatchedRecordsTotal CounterVec
	OpportunitiesTotal    CounterVec

	// Infrastructure
	DBQueryDuration  HistogramVec
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	ReportsExported  CounterVec
}

var (
	httpDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	stageDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600}
	dbDurationBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers the full metric catalog.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal: collector.RegisterCounter(
			"http_requests_total", "Total HTTP requests", "method", "path", "status"),
		HTTPRequestDuration: collector.RegisterHistogram(
			"http_request_duration_seconds", "HTTP request duration", httpDurationBuckets, "method", "path"),

		PipelineRunsTotal: collector.RegisterCounter(
			"pipeline_runs_total", "Pipeline runs by outcome", "status"),
		PipelineStageDuration: collector.RegisterHistogram(
			"pipeline_stage_duration_seconds", "Duration of each pipeline stage", stageDurationBuckets, "stage"),
		TaxonomyNodes: collector.RegisterGauge(
			"taxonomy_nodes", "Taxonomy nodes in the latest run", "source"),
		CategoryMergesTotal: collector.RegisterCounter(
			"category_merges_total", "Duplicate categories merged", "rule"),
		UnmatchedRecordsTotal: collector.RegisterCounter(
			"unmatched_records_total", "Metric records dropped for lack of a node match", "source"),
		OpportunitiesTotal: collector.RegisterCounter(
			"opportunities_total", "Scored opportunities by classification", "type"),

		DBQueryDuration: collector.RegisterHistogram(
			"db_query_duration_seconds", "Database query duration", dbDurationBuckets, "operation"),
		CacheHitsTotal: collector.RegisterCounter(
			"cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal: collector.RegisterCounter(
			"cache_misses_total", "Cache misses", "cache"),
		ReportsExported: collector.RegisterCounter(
			"reports_exported_total", "Reports exported to object storage", "format"),
	}
}

// RecordHTTPRequest observes one served request.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStage observes one completed pipeline stage.
func RecordStage(m *AppMetrics, stage string, duration time.Duration) {
	m.PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRun counts a finished run.
func RecordRun(m *AppMetrics, succeeded bool) {
	status := "success"
	if !succeeded {
		status = "failure"
	}
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
}

// RecordCacheAccess counts a cache lookup.
func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}
