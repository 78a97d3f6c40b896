package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sdg-impact-api/internal/middleware"
	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
	"github.com/noah-isme/sdg-impact-api/pkg/response"
)

type analyticsService interface {
	SDG(ctx context.Context, sortBy string) ([]models.SDGSummary, bool, error)
	Faculties(ctx context.Context, sortBy string) ([]models.FacultySummary, bool, error)
	Events(ctx context.Context, sortBy string) ([]models.EventSummary, bool, error)
	Rewards(ctx context.Context, sortBy string) ([]models.RewardSummary, bool, error)
	RewardCategories(ctx context.Context) ([]models.RewardCategorySummary, bool, error)
	Overview(ctx context.Context) (models.AnalyticsOverview, bool, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// SDG godoc
// @Summary Participation per Sustainable Development Goal
// @Tags Analytics
// @Produce json
// @Param sort query string false "participants | points | activities"
// @Success 200 {object} response.Envelope
// @Router /analytics/sdg [get]
func (h *AnalyticsHandler) SDG(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summaries, cacheHit, err := h.analytics.SDG(c.Request.Context(), sortParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, summaries, cacheHit)
}

// Faculties godoc
// @Summary Engagement per faculty
// @Tags Analytics
// @Produce json
// @Param sort query string false "points | students | average | activities"
// @Success 200 {object} response.Envelope
// @Router /analytics/faculties [get]
func (h *AnalyticsHandler) Faculties(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summaries, cacheHit, err := h.analytics.Faculties(c.Request.Context(), sortParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, summaries, cacheHit)
}

// Events godoc
// @Summary Registrations, attendance and feedback per event
// @Tags Analytics
// @Produce json
// @Param sort query string false "attendance | registered | rating | favorites"
// @Success 200 {object} response.Envelope
// @Router /analytics/events [get]
func (h *AnalyticsHandler) Events(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summaries, cacheHit, err := h.analytics.Events(c.Request.Context(), sortParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, summaries, cacheHit)
}

// Rewards godoc
// @Summary Redemptions per reward
// @Tags Analytics
// @Produce json
// @Param sort query string false "redemptions | rate | points"
// @Success 200 {object} response.Envelope
// @Router /analytics/rewards [get]
func (h *AnalyticsHandler) Rewards(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summaries, cacheHit, err := h.analytics.Rewards(c.Request.Context(), sortParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, summaries, cacheHit)
}

// RewardCategories godoc
// @Summary Redemptions pooled by reward category
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/rewards/categories [get]
func (h *AnalyticsHandler) RewardCategories(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summaries, cacheHit, err := h.analytics.RewardCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, summaries, cacheHit)
}

// Overview godoc
// @Summary Programme-wide totals
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	overview, cacheHit, err := h.analytics.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, overview, cacheHit)
}

// System returns instrumentation metrics snapshots.
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	respondWithMeta(c, start, h.analytics.SystemMetrics(), false)
}

func sortParam(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Query("sort")))
}

func respondWithMeta(c *gin.Context, start time.Time, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}
