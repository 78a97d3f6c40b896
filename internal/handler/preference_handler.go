package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sdg-impact-api/internal/dto"
	"github.com/noah-isme/sdg-impact-api/internal/service"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
	"github.com/noah-isme/sdg-impact-api/pkg/response"
)

type preferenceService interface {
	AddFavorite(ctx context.Context, userID string, kind service.FavoriteKind, itemID string) error
	RemoveFavorite(ctx context.Context, userID string, kind service.FavoriteKind, itemID string) error
	Favorites(ctx context.Context, userID string, kind service.FavoriteKind) ([]string, error)
	Follow(ctx context.Context, userID, targetID string) error
	Unfollow(ctx context.Context, userID, targetID string) error
	Follows(ctx context.Context, userID string) ([]string, error)
	SetConsent(ctx context.Context, userID string, input service.ConsentInput) (*service.Consent, error)
	GetConsent(ctx context.Context, userID string) (*service.Consent, error)
}

type analyticsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// PreferenceHandler manages per-user favorites, follows and consent.
type PreferenceHandler struct {
	prefs     preferenceService
	analytics analyticsInvalidator
}

// NewPreferenceHandler constructs the handler. analytics may be nil.
func NewPreferenceHandler(prefs preferenceService, analytics analyticsInvalidator) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs, analytics: analytics}
}

// ListFavorites godoc
// @Summary Items a user favorited
// @Tags Preferences
// @Produce json
// @Param userId path string true "User ID"
// @Param kind path string true "event | reward"
// @Success 200 {object} response.Envelope
// @Router /users/{userId}/favorites/{kind} [get]
func (h *PreferenceHandler) ListFavorites(c *gin.Context) {
	userID, kind := c.Param("userId"), c.Param("kind")
	items, err := h.prefs.Favorites(c.Request.Context(), userID, service.FavoriteKind(kind))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.IDListResponse{UserID: userID, Kind: kind, IDs: items}, nil)
}

// AddFavorite godoc
// @Summary Favorite an event or reward
// @Tags Preferences
// @Param userId path string true "User ID"
// @Param kind path string true "event | reward"
// @Param id path string true "Item ID"
// @Success 204
// @Router /users/{userId}/favorites/{kind}/{id} [put]
func (h *PreferenceHandler) AddFavorite(c *gin.Context) {
	if err := h.prefs.AddFavorite(c.Request.Context(), c.Param("userId"), service.FavoriteKind(c.Param("kind")), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c)
	response.NoContent(c)
}

// RemoveFavorite godoc
// @Summary Remove a favorite
// @Tags Preferences
// @Param userId path string true "User ID"
// @Param kind path string true "event | reward"
// @Param id path string true "Item ID"
// @Success 204
// @Router /users/{userId}/favorites/{kind}/{id} [delete]
func (h *PreferenceHandler) RemoveFavorite(c *gin.Context) {
	if err := h.prefs.RemoveFavorite(c.Request.Context(), c.Param("userId"), service.FavoriteKind(c.Param("kind")), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c)
	response.NoContent(c)
}

// ListFollows godoc
// @Summary Users a user follows
// @Tags Preferences
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{userId}/follows [get]
func (h *PreferenceHandler) ListFollows(c *gin.Context) {
	userID := c.Param("userId")
	ids, err := h.prefs.Follows(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.IDListResponse{UserID: userID, IDs: ids}, nil)
}

// Follow godoc
// @Summary Follow another user
// @Tags Preferences
// @Param userId path string true "User ID"
// @Param targetId path string true "Followed user ID"
// @Success 204
// @Router /users/{userId}/follows/{targetId} [put]
func (h *PreferenceHandler) Follow(c *gin.Context) {
	if err := h.prefs.Follow(c.Request.Context(), c.Param("userId"), c.Param("targetId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unfollow godoc
// @Summary Stop following a user
// @Tags Preferences
// @Param userId path string true "User ID"
// @Param targetId path string true "Followed user ID"
// @Success 204
// @Router /users/{userId}/follows/{targetId} [delete]
func (h *PreferenceHandler) Unfollow(c *gin.Context) {
	if err := h.prefs.Unfollow(c.Request.Context(), c.Param("userId"), c.Param("targetId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetConsent godoc
// @Summary Stored consent choices
// @Tags Preferences
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{userId}/consent [get]
func (h *PreferenceHandler) GetConsent(c *gin.Context) {
	consent, err := h.prefs.GetConsent(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, consent, nil)
}

// SetConsent godoc
// @Summary Record consent choices
// @Tags Preferences
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param payload body service.ConsentInput true "Consent"
// @Success 200 {object} response.Envelope
// @Router /users/{userId}/consent [put]
func (h *PreferenceHandler) SetConsent(c *gin.Context) {
	var input service.ConsentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	consent, err := h.prefs.SetConsent(c.Request.Context(), c.Param("userId"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, consent, nil)
}

// invalidate drops cached aggregates that embed favorite counts.
func (h *PreferenceHandler) invalidate(c *gin.Context) {
	if h.analytics == nil {
		return
	}
	_ = h.analytics.Invalidate(c.Request.Context())
}
