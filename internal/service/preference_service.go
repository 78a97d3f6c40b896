package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/repository"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

// FavoriteKind names what a user can favorite.
type FavoriteKind string

const (
	FavoriteEvent  FavoriteKind = "event"
	FavoriteReward FavoriteKind = "reward"
)

// Consent records what a user agreed to share.
type Consent struct {
	Leaderboard bool      `json:"leaderboard"`
	Analytics   bool      `json:"analytics"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConsentInput is the payload accepted by SetConsent.
type ConsentInput struct {
	Leaderboard *bool `json:"leaderboard" validate:"required"`
	Analytics   *bool `json:"analytics" validate:"required"`
}

// PreferenceService keeps favorites, follows and consent in a key-value store.
type PreferenceService struct {
	store     repository.KVStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPreferenceService constructs the service.
func NewPreferenceService(store repository.KVStore, validate *validator.Validate, logger *zap.Logger) *PreferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceService{store: store, validator: validate, logger: logger, now: time.Now}
}

func userFavoritesKey(userID string, kind FavoriteKind) string {
	return fmt.Sprintf("favorites:user:%s:%s", userID, kind)
}

func itemFavoritesKey(kind FavoriteKind, itemID string) string {
	return fmt.Sprintf("favorites:%s:%s", kind, itemID)
}

func followsKey(userID string) string { return "follows:user:" + userID }
func followersKey(userID string) string { return "followers:user:" + userID }
func consentKey(userID string) string { return "consent:user:" + userID }

func (s *PreferenceService) validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := s.validator.Var(id, "required,max=64,printascii"); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "invalid identifier")
		}
	}
	return nil
}

func (s *PreferenceService) validateKind(kind FavoriteKind) error {
	if err := s.validator.Var(string(kind), "required,oneof=event reward"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "favorite kind must be event or reward")
	}
	return nil
}

// AddFavorite marks an item as a favorite of the user. Repeating the call is a no-op.
func (s *PreferenceService) AddFavorite(ctx context.Context, userID string, kind FavoriteKind, itemID string) error {
	if err := s.validateKind(kind); err != nil {
		return err
	}
	if err := s.validateIDs(userID, itemID); err != nil {
		return err
	}
	if err := s.store.AddToSet(ctx, userFavoritesKey(userID, kind), itemID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save favorite")
	}
	if err := s.store.AddToSet(ctx, itemFavoritesKey(kind, itemID), userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save favorite")
	}
	return nil
}

// RemoveFavorite clears a favorite. Removing an absent favorite is a no-op.
func (s *PreferenceService) RemoveFavorite(ctx context.Context, userID string, kind FavoriteKind, itemID string) error {
	if err := s.validateKind(kind); err != nil {
		return err
	}
	if err := s.validateIDs(userID, itemID); err != nil {
		return err
	}
	if err := s.store.RemoveFromSet(ctx, userFavoritesKey(userID, kind), itemID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove favorite")
	}
	if err := s.store.RemoveFromSet(ctx, itemFavoritesKey(kind, itemID), userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove favorite")
	}
	return nil
}

// Favorites lists the item ids a user favorited, sorted.
func (s *PreferenceService) Favorites(ctx context.Context, userID string, kind FavoriteKind) ([]string, error) {
	if err := s.validateKind(kind); err != nil {
		return nil, err
	}
	if err := s.validateIDs(userID); err != nil {
		return nil, err
	}
	items, err := s.store.SetMembers(ctx, userFavoritesKey(userID, kind))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load favorites")
	}
	return items, nil
}

// FavoriteCounts returns how many users favorited each item. Items nobody favorited are omitted.
func (s *PreferenceService) FavoriteCounts(ctx context.Context, kind FavoriteKind, itemIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(itemIDs))
	for _, id := range itemIDs {
		n, err := s.store.SetSize(ctx, itemFavoritesKey(kind, id))
		if err != nil {
			return nil, fmt.Errorf("count favorites for %s: %w", id, err)
		}
		if n > 0 {
			counts[id] = int(n)
		}
	}
	return counts, nil
}

// Follow records that userID follows targetID.
func (s *PreferenceService) Follow(ctx context.Context, userID, targetID string) error {
	if err := s.validateIDs(userID, targetID); err != nil {
		return err
	}
	if userID == targetID {
		return appErrors.Clone(appErrors.ErrValidation, "users cannot follow themselves")
	}
	if err := s.store.AddToSet(ctx, followsKey(userID), targetID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to follow user")
	}
	if err := s.store.AddToSet(ctx, followersKey(targetID), userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to follow user")
	}
	return nil
}

// Unfollow removes a follow edge.
func (s *PreferenceService) Unfollow(ctx context.Context, userID, targetID string) error {
	if err := s.validateIDs(userID, targetID); err != nil {
		return err
	}
	if err := s.store.RemoveFromSet(ctx, followsKey(userID), targetID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unfollow user")
	}
	if err := s.store.RemoveFromSet(ctx, followersKey(targetID), userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unfollow user")
	}
	return nil
}

// Follows lists who userID follows, sorted.
func (s *PreferenceService) Follows(ctx context.Context, userID string) ([]string, error) {
	if err := s.validateIDs(userID); err != nil {
		return nil, err
	}
	ids, err := s.store.SetMembers(ctx, followsKey(userID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load follows")
	}
	return ids, nil
}

// FollowerCount returns how many users follow userID.
func (s *PreferenceService) FollowerCount(ctx context.Context, userID string) (int, error) {
	n, err := s.store.SetSize(ctx, followersKey(userID))
	if err != nil {
		return 0, fmt.Errorf("count followers: %w", err)
	}
	return int(n), nil
}

// SetConsent stores the user's consent choices.
func (s *PreferenceService) SetConsent(ctx context.Context, userID string, input ConsentInput) (*Consent, error) {
	if err := s.validateIDs(userID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "leaderboard and analytics consent are required")
	}
	consent := &Consent{Leaderboard: *input.Leaderboard, Analytics: *input.Analytics, UpdatedAt: s.now().UTC()}
	raw, err := json.Marshal(consent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode consent")
	}
	if err := s.store.Set(ctx, consentKey(userID), string(raw)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save consent")
	}
	return consent, nil
}

// GetConsent returns the stored consent, or ErrNotFound when the user never answered.
func (s *PreferenceService) GetConsent(ctx context.Context, userID string) (*Consent, error) {
	if err := s.validateIDs(userID); err != nil {
		return nil, err
	}
	raw, err := s.store.Get(ctx, consentKey(userID))
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consent not recorded")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load consent")
	}
	var consent Consent
	if err := json.Unmarshal([]byte(raw), &consent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode consent")
	}
	return &consent, nil
}

// LeaderboardOptOut reports whether the user explicitly declined leaderboard visibility.
// Users without a consent record are visible.
func (s *PreferenceService) LeaderboardOptOut(ctx context.Context, userID string) bool {
	consent, err := s.GetConsent(ctx, userID)
	if err != nil {
		if !errors.Is(err, appErrors.ErrNotFound) {
			s.logger.Warn("consent lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return false
	}
	return !consent.Leaderboard
}
