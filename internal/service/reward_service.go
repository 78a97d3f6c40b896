package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	"github.com/noah-isme/sdg-impact-api/internal/repository"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

type stockStore interface {
	DecrementStock(ctx context.Context, rewardID string) error
	IncrementStock(ctx context.Context, rewardID string) error
}

// Redemption is the outcome of a successful reward redemption.
type Redemption struct {
	RewardID    string `json:"reward_id"`
	StudentID   string `json:"student_id"`
	Redemptions int    `json:"redemptions"`
}

// RewardService records redemptions against reward stock and the redemption counters.
type RewardService struct {
	store  repository.KVStore
	stock  stockStore
	cache  *CacheService
	logger *zap.Logger
}

// NewRewardService constructs the service.
func NewRewardService(store repository.KVStore, stock stockStore, cache *CacheService, logger *zap.Logger) *RewardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewardService{store: store, stock: stock, cache: cache, logger: logger}
}

func redemptionKey(rewardID string) string { return "redemptions:reward:" + rewardID }

// Redeem takes one unit out of stock and bumps the reward's redemption counter.
// When the counter cannot be written the unit is put back, so stock and
// recorded redemptions stay in step.
func (s *RewardService) Redeem(ctx context.Context, rewardID, studentID string) (*Redemption, error) {
	if rewardID == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reward id and student id are required")
	}
	if err := s.stock.DecrementStock(ctx, rewardID); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reward stock")
	}
	count, err := s.store.Incr(ctx, redemptionKey(rewardID))
	if err != nil {
		if rerr := s.stock.IncrementStock(context.WithoutCancel(ctx), rewardID); rerr != nil {
			s.logger.Error("restoring stock after failed redemption", zap.String("reward_id", rewardID), zap.Error(rerr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record redemption")
	}
	if err := s.cache.Invalidate(ctx, AnalyticsCachePattern); err != nil {
		s.logger.Warn("invalidate analytics after redemption", zap.Error(err))
	}
	s.logger.Info("reward redeemed", zap.String("reward_id", rewardID), zap.String("student_id", studentID), zap.Int64("redemptions", count))
	return &Redemption{RewardID: rewardID, StudentID: studentID, Redemptions: int(count)}, nil
}

// Counts returns the recorded redemption count per reward id. Rewards without a counter map to zero.
func (s *RewardService) Counts(ctx context.Context, rewardIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(rewardIDs))
	for _, id := range rewardIDs {
		raw, err := s.store.Get(ctx, redemptionKey(id))
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load redemptions for %s: %w", id, err)
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redemptions for %s: %w", id, err)
		}
		counts[id] = n
	}
	return counts, nil
}

// SeedCounts initialises missing counters with the redemptions implied by the catalog,
// initial stock minus current stock.
func (s *RewardService) SeedCounts(ctx context.Context, rewards []models.Reward) error {
	for _, r := range rewards {
		if _, err := s.store.Get(ctx, redemptionKey(r.ID)); err == nil {
			continue
		} else if !errors.Is(err, appErrors.ErrNotFound) {
			return fmt.Errorf("check redemptions for %s: %w", r.ID, err)
		}
		implied := r.InitialStock - r.Stock
		if implied < 0 {
			implied = 0
		}
		if err := s.store.Set(ctx, redemptionKey(r.ID), strconv.Itoa(implied)); err != nil {
			return fmt.Errorf("seed redemptions for %s: %w", r.ID, err)
		}
	}
	return nil
}
