package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sdg-impact-api/internal/models"
)

func gatheredValue(t *testing.T, m *MetricsService, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestMetricsServiceSnapshotAverages(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/analytics/sdg", 200, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/analytics/sdg", 200, 30*time.Millisecond)
	m.ObserveSnapshotLoad("memory", 4*time.Millisecond)
	m.ObserveAggregation("sdg", time.Millisecond)
	m.RecordCacheOperation(true, 0)
	m.RecordCacheOperation(false, 0)
	m.RecordCacheOperation(false, 0)
	m.RecordIntegrityFault("unknown_event")

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.RequestsTotal)
	assert.InDelta(t, 20, snap.AverageRequestDurationMs, 0.001)
	assert.EqualValues(t, 1, snap.SnapshotLoads)
	assert.InDelta(t, 4, snap.AverageSnapshotLoadMs, 0.001)
	assert.EqualValues(t, 1, snap.AggregationCount)
	assert.EqualValues(t, 1, snap.CacheHits)
	assert.EqualValues(t, 2, snap.CacheMisses)
	assert.InDelta(t, 1.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.EqualValues(t, 1, snap.IntegrityFaults)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsServiceExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordExport(models.ReportTypeSDG, models.ReportFormatCSV, nil)
	m.RecordExport(models.ReportTypeSDG, models.ReportFormatCSV, errors.New("disk full"))

	assert.EqualValues(t, 1, gatheredValue(t, m, "sdg_cache_lookups_total", map[string]string{"result": "hit"}))
	assert.EqualValues(t, 1, gatheredValue(t, m, "sdg_cache_hit_ratio", nil))
	assert.EqualValues(t, 1, gatheredValue(t, m, "sdg_exports_total", map[string]string{"outcome": "error"}))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sdg_exports_total")
}

func TestNilMetricsServiceIsInert(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
	m.RecordCacheOperation(true, 0)
	m.RecordExport(models.ReportTypeSDG, models.ReportFormatCSV, nil)
	assert.Nil(t, m.Registry())
	assert.Equal(t, models.AnalyticsSystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
