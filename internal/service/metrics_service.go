package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sdg-impact-api/internal/models"
)

const metricsNamespace = "sdg"

// timing accumulates a count and a nanosecond total for cheap averages.
type timing struct {
	n     atomic.Uint64
	nanos atomic.Uint64
}

func (t *timing) add(d time.Duration) {
	t.n.Add(1)
	if d > 0 {
		t.nanos.Add(uint64(d))
	}
}

func (t *timing) avgMillis() (uint64, float64) {
	n := t.n.Load()
	if n == 0 {
		return 0, 0
	}
	return n, float64(t.nanos.Load()) / float64(n) / float64(time.Millisecond)
}

// MetricsService owns the Prometheus registry for the API and keeps a few
// in-process totals that back the /analytics/system endpoint.
// A nil *MetricsService is valid and records nothing.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpLatency  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	cacheLatency *prometheus.HistogramVec
	snapshotLoad *prometheus.HistogramVec
	aggregation  *prometheus.HistogramVec
	faults       *prometheus.CounterVec
	exports      *prometheus.CounterVec

	hits, misses atomic.Uint64
	faultTotal   atomic.Uint64
	requests     timing
	snapshots    timing
	passes       timing
}

func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route template.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route template and status.",
	}, []string{"method", "path", "status"})
	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_lookups_total",
		Help:      "Analytics cache lookups by result.",
	}, []string{"result"})
	m.cacheLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "cache_operation_seconds",
		Help:      "Analytics cache round trip latency.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
	}, []string{"op"})
	m.snapshotLoad = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "snapshot_load_seconds",
		Help:      "Participation snapshot load latency by source.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
	m.aggregation = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "aggregation_duration_seconds",
		Help:      "Aggregation pass latency.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	}, []string{"pass"})
	m.faults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "integrity_faults_total",
		Help:      "Input records skipped or corrected during aggregation.",
	}, []string{"kind"})
	m.exports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "exports_total",
		Help:      "Rendered exports by report type, format and outcome.",
	}, []string{"type", "format", "outcome"})

	hitRatio := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "cache_hit_ratio",
		Help:      "Share of analytics cache lookups that hit.",
	}, m.hitRatio)

	m.registry.MustRegister(
		m.httpLatency, m.httpRequests, m.cacheLookups, m.cacheLatency,
		m.snapshotLoad, m.aggregation, m.faults, m.exports, hitRatio,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry lets other components attach collectors, such as the report queue.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpLatency.WithLabelValues(method, path, code).Observe(d.Seconds())
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.requests.add(d)
}

// RecordCacheOperation counts one cache read as a hit or a miss.
func (m *MetricsService) RecordCacheOperation(hit bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	m.cacheLatency.WithLabelValues("get").Observe(d.Seconds())
}

func (m *MetricsService) ObserveCacheWrite(d time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(d.Seconds())
}

func (m *MetricsService) ObserveSnapshotLoad(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.snapshotLoad.WithLabelValues(source).Observe(d.Seconds())
	m.snapshots.add(d)
}

func (m *MetricsService) ObserveAggregation(pass string, d time.Duration) {
	if m == nil {
		return
	}
	m.aggregation.WithLabelValues(pass).Observe(d.Seconds())
	m.passes.add(d)
}

func (m *MetricsService) RecordIntegrityFault(kind string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(kind).Inc()
	m.faultTotal.Add(1)
}

// RecordExport counts a rendered export; a non-nil err marks it failed.
func (m *MetricsService) RecordExport(reportType models.ReportType, format models.ReportFormat, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.exports.WithLabelValues(string(reportType), string(format), outcome).Inc()
}

// Snapshot summarises the in-process totals.
func (m *MetricsService) Snapshot() models.AnalyticsSystemMetrics {
	if m == nil {
		return models.AnalyticsSystemMetrics{}
	}
	requests, reqAvg := m.requests.avgMillis()
	loads, loadAvg := m.snapshots.avgMillis()
	passes, passAvg := m.passes.avgMillis()
	return models.AnalyticsSystemMetrics{
		CacheHitRatio:            m.hitRatio(),
		CacheHits:                m.hits.Load(),
		CacheMisses:              m.misses.Load(),
		RequestsTotal:            requests,
		AverageRequestDurationMs: reqAvg,
		SnapshotLoads:            loads,
		AverageSnapshotLoadMs:    loadAvg,
		AggregationCount:         passes,
		AverageAggregationMs:     passAvg,
		IntegrityFaults:          m.faultTotal.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func (m *MetricsService) hitRatio() float64 {
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
