package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sdg-impact-api/internal/middleware"
	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

type analyticsServiceMock struct {
	sortBy   string
	cacheHit bool
	err      error
}

func (m *analyticsServiceMock) SDG(ctx context.Context, sortBy string) ([]models.SDGSummary, bool, error) {
	m.sortBy = sortBy
	return []models.SDGSummary{{Number: 13, Name: "Climate Action", Participants: 2}}, m.cacheHit, m.err
}

func (m *analyticsServiceMock) Faculties(ctx context.Context, sortBy string) ([]models.FacultySummary, bool, error) {
	m.sortBy = sortBy
	return []models.FacultySummary{{Faculty: "Engineering", Students: 2}}, m.cacheHit, m.err
}

func (m *analyticsServiceMock) Events(ctx context.Context, sortBy string) ([]models.EventSummary, bool, error) {
	m.sortBy = sortBy
	return []models.EventSummary{}, m.cacheHit, m.err
}

func (m *analyticsServiceMock) Rewards(ctx context.Context, sortBy string) ([]models.RewardSummary, bool, error) {
	m.sortBy = sortBy
	return []models.RewardSummary{}, m.cacheHit, m.err
}

func (m *analyticsServiceMock) RewardCategories(ctx context.Context) ([]models.RewardCategorySummary, bool, error) {
	return []models.RewardCategorySummary{}, m.cacheHit, m.err
}

func (m *analyticsServiceMock) Overview(ctx context.Context) (models.AnalyticsOverview, bool, error) {
	return models.AnalyticsOverview{}, m.cacheHit, m.err
}

func (m *analyticsServiceMock) SystemMetrics() models.AnalyticsSystemMetrics {
	return models.AnalyticsSystemMetrics{Goroutines: 7}
}

func TestAnalyticsHandlerSDGPassesNormalisedSort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &analyticsServiceMock{cacheHit: true}
	handler := NewAnalyticsHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/analytics/sdg?sort=%20Points%20", nil)
	handler.SDG(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "points", mockSvc.sortBy)
	assert.Equal(t, "HIT", w.Header().Get(middleware.CacheHeader))

	payload := decodeEnvelope(t, w)
	meta := payload["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	rows := payload["data"].([]interface{})
	require.Len(t, rows, 1)
}

func TestAnalyticsHandlerFacultiesMiss(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAnalyticsHandler(&analyticsServiceMock{})

	c, w := newGinContext(http.MethodGet, "/analytics/faculties", nil)
	handler.Faculties(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(middleware.CacheHeader))
}

func TestAnalyticsHandlerPropagatesErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]struct {
		err    error
		status int
	}{
		"validation": {err: appErrors.Clone(appErrors.ErrValidation, "unknown sort key"), status: http.StatusBadRequest},
		"internal":   {err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewAnalyticsHandler(&analyticsServiceMock{err: tc.err})
			c, w := newGinContext(http.MethodGet, "/analytics/events?sort=nope", nil)
			handler.Events(c)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestAnalyticsHandlerWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAnalyticsHandler(nil)

	c, w := newGinContext(http.MethodGet, "/analytics/overview", nil)
	handler.Overview(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAnalyticsHandlerSystem(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAnalyticsHandler(&analyticsServiceMock{})

	c, w := newGinContext(http.MethodGet, "/analytics/system", nil)
	handler.System(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 7, data["goroutines"])
}
