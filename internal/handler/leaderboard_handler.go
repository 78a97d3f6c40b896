package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
	"github.com/noah-isme/sdg-impact-api/pkg/response"
)

type leaderboardService interface {
	Leaderboard(ctx context.Context, period models.LeaderboardPeriod, anonymize bool, limit int) ([]models.LeaderboardEntry, error)
}

// LeaderboardHandler serves the points leaderboard.
type LeaderboardHandler struct {
	points           leaderboardService
	anonymizeDefault bool
}

// NewLeaderboardHandler constructs the handler. anonymizeDefault applies when the
// request does not set the anonymize parameter.
func NewLeaderboardHandler(points leaderboardService, anonymizeDefault bool) *LeaderboardHandler {
	return &LeaderboardHandler{points: points, anonymizeDefault: anonymizeDefault}
}

// Leaderboard godoc
// @Summary Students ranked by points
// @Tags Leaderboard
// @Produce json
// @Param period query string false "total (default) | weekly | monthly"
// @Param anonymize query bool false "Replace names with pseudonyms"
// @Param limit query int false "Maximum entries, capped at 100"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Leaderboard(c *gin.Context) {
	if h.points == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	period := models.LeaderboardPeriod(strings.ToLower(strings.TrimSpace(c.Query("period"))))
	anonymize := h.anonymizeDefault
	if raw := c.Query("anonymize"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "anonymize must be true or false"))
			return
		}
		anonymize = parsed
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	start := time.Now()
	entries, err := h.points.Leaderboard(c.Request.Context(), period, anonymize, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, entries, false)
}
