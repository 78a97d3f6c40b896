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

type rewardService interface {
	Redeem(ctx context.Context, rewardID, studentID string) (*service.Redemption, error)
}

// RewardHandler records reward redemptions.
type RewardHandler struct {
	rewards rewardService
}

// NewRewardHandler constructs the handler.
func NewRewardHandler(rewards rewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

// Redeem godoc
// @Summary Redeem a reward for a student
// @Tags Rewards
// @Accept json
// @Produce json
// @Param id path string true "Reward ID"
// @Param payload body dto.RedemptionRequest true "Redemption"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rewards/{id}/redemptions [post]
func (h *RewardHandler) Redeem(c *gin.Context) {
	var req dto.RedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}
	redemption, err := h.rewards.Redeem(c.Request.Context(), c.Param("id"), req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, redemption, nil)
}
