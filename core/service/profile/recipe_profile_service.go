// Package profile implements reads and mutations of the satellite
// profile documents.
package profile

import (
	"context"
	"fmt"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"
	"recipe_server/pkg/apperr"
	"recipe_server/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Every 5th follower produces a milestone notification.
const milestoneStep = 5

// Service orchestrates profile reads and the follow graph. A follow
// touches two social documents through two independent atomic updates;
// there is no cross-document transaction, so the second update is
// attempted even when state is already half-applied, which makes
// repeats converge.
type Service struct {
	accountRepo out.AccountRepository
	profileRepo out.ProfileRepository
	cache       out.Cache
	cacheTTL    time.Duration
	viewMax     int
}

// NewService creates a new profile service. cache may be nil, in which
// case reads always hit the store.
func NewService(accountRepo out.AccountRepository, profileRepo out.ProfileRepository, cache out.Cache, cacheTTL time.Duration, viewMax int) *Service {
	if viewMax <= 0 {
		viewMax = 50
	}
	return &Service{
		accountRepo: accountRepo,
		profileRepo: profileRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		viewMax:     viewMax,
	}
}

// =============================================================================
// Reads
// =============================================================================

// Social returns the social profile, cache-aside. A missing document
// yields empty defaults rather than an error.
func (s *Service) Social(ctx context.Context, accountID primitive.ObjectID) (*domain.SocialProfile, error) {
	key := socialCacheKey(accountID)
	if s.cache != nil {
		var cached domain.SocialProfile
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	p, err := s.profileRepo.Social(ctx, accountID)
	if err != nil {
		return nil, apperr.StoreUnavailable("get social profile", err)
	}
	if p == nil {
		p = domain.DefaultSocialProfile(accountID)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, p, s.cacheTTL); err != nil {
			logger.WithContext(ctx).WithError(err).Debug("social profile cache write failed")
		}
	}
	return p, nil
}

// Activity returns the activity profile, defaulting when absent.
func (s *Service) Activity(ctx context.Context, accountID primitive.ObjectID) (*domain.ActivityProfile, error) {
	p, err := s.profileRepo.Activity(ctx, accountID)
	if err != nil {
		return nil, apperr.StoreUnavailable("get activity profile", err)
	}
	if p == nil {
		p = domain.DefaultActivityProfile(accountID)
	}
	return p, nil
}

// Notifications returns the notification inbox, defaulting when absent.
func (s *Service) Notifications(ctx context.Context, accountID primitive.ObjectID) (*domain.NotificationProfile, error) {
	p, err := s.profileRepo.Notifications(ctx, accountID)
	if err != nil {
		return nil, apperr.StoreUnavailable("get notifications", err)
	}
	if p == nil {
		p = domain.DefaultNotificationProfile(accountID)
	}
	return p, nil
}

// Preferences returns the preference profile, defaulting when absent.
func (s *Service) Preferences(ctx context.Context, accountID primitive.ObjectID) (*domain.PreferenceProfile, error) {
	p, err := s.profileRepo.Preferences(ctx, accountID)
	if err != nil {
		return nil, apperr.StoreUnavailable("get preferences", err)
	}
	if p == nil {
		p = domain.DefaultPreferenceProfile(accountID)
	}
	return p, nil
}

// =============================================================================
// Follow Graph
// =============================================================================

// Follow makes follower follow followee. The followee's follower set
// and the follower's following set live in different documents and are
// updated independently; each side is a conditional no-op when already
// applied, so a repeat after a partial failure completes the pair.
func (s *Service) Follow(ctx context.Context, followerID, followeeID primitive.ObjectID) error {
	if followerID == followeeID {
		return apperr.BadRequest("cannot follow yourself")
	}

	followee, err := s.accountRepo.GetByID(ctx, followeeID)
	if err != nil {
		return apperr.StoreUnavailable("get followee", err)
	}
	if followee == nil {
		return apperr.NotFound("account")
	}

	added, err := s.profileRepo.AddFollower(ctx, followeeID, followerID)
	if err != nil {
		return apperr.StoreUnavailable("add follower", err)
	}
	if _, err := s.profileRepo.AddFollowing(ctx, followerID, followeeID); err != nil {
		return apperr.StoreUnavailable("add following", err)
	}

	s.invalidateSocial(ctx, followerID, followeeID)

	if added {
		s.maybeNotifyMilestone(ctx, followeeID)
	}
	return nil
}

// Unfollow reverses Follow with the same per-side convergence.
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID primitive.ObjectID) error {
	if followerID == followeeID {
		return apperr.BadRequest("cannot unfollow yourself")
	}

	if _, err := s.profileRepo.RemoveFollower(ctx, followeeID, followerID); err != nil {
		return apperr.StoreUnavailable("remove follower", err)
	}
	if _, err := s.profileRepo.RemoveFollowing(ctx, followerID, followeeID); err != nil {
		return apperr.StoreUnavailable("remove following", err)
	}

	s.invalidateSocial(ctx, followerID, followeeID)
	return nil
}

// maybeNotifyMilestone pushes a milestone notification when the
// follower count just crossed a multiple of the step. The count is
// read after the increment, so concurrent follows may skip or double a
// milestone; notifications are best-effort.
func (s *Service) maybeNotifyMilestone(ctx context.Context, accountID primitive.ObjectID) {
	social, err := s.profileRepo.Social(ctx, accountID)
	if err != nil || social == nil {
		return
	}
	if social.FollowerCount == 0 || social.FollowerCount%milestoneStep != 0 {
		return
	}

	n := domain.Notification{
		Type:      domain.NotificationMilestone,
		Message:   fmt.Sprintf("You reached %d followers!", social.FollowerCount),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.profileRepo.PushNotification(ctx, accountID, n); err != nil {
		logger.WithContext(ctx).WithField("account_id", accountID.Hex()).
			WithError(err).Warn("milestone notification failed")
	}
}

// =============================================================================
// Activity
// =============================================================================

// AddFavorite adds a dish to the favorites set.
func (s *Service) AddFavorite(ctx context.Context, accountID, dishID primitive.ObjectID) error {
	if _, err := s.profileRepo.AddFavorite(ctx, accountID, dishID); err != nil {
		return apperr.StoreUnavailable("add favorite", err)
	}
	return nil
}

// RemoveFavorite removes a dish from the favorites set.
func (s *Service) RemoveFavorite(ctx context.Context, accountID, dishID primitive.ObjectID) error {
	if _, err := s.profileRepo.RemoveFavorite(ctx, accountID, dishID); err != nil {
		return apperr.StoreUnavailable("remove favorite", err)
	}
	return nil
}

// AddCooked records a cooked dish.
func (s *Service) AddCooked(ctx context.Context, accountID, dishID primitive.ObjectID) error {
	if _, err := s.profileRepo.AddCooked(ctx, accountID, dishID, s.viewMax); err != nil {
		return apperr.StoreUnavailable("add cooked dish", err)
	}
	return nil
}

// RecordView records a view event in the bounded, deduplicated
// history.
func (s *Service) RecordView(ctx context.Context, accountID primitive.ObjectID, viewType string, refID primitive.ObjectID, name, imageURL string) error {
	if viewType != domain.ViewTypeDish && viewType != domain.ViewTypeAccount {
		return apperr.InvalidInput("type", "must be dish or account")
	}

	event := domain.ViewEvent{
		Type:     viewType,
		RefID:    refID,
		Name:     name,
		ImageURL: imageURL,
		ViewedAt: time.Now().UTC(),
	}
	if err := s.profileRepo.RecordView(ctx, accountID, event, s.viewMax); err != nil {
		return apperr.StoreUnavailable("record view", err)
	}
	return nil
}

// =============================================================================
// Notifications and Preferences
// =============================================================================

// MarkNotificationsRead marks the whole inbox read.
func (s *Service) MarkNotificationsRead(ctx context.Context, accountID primitive.ObjectID) error {
	if err := s.profileRepo.MarkNotificationsRead(ctx, accountID); err != nil {
		return apperr.StoreUnavailable("mark notifications read", err)
	}
	return nil
}

// UpdatePreferences applies whitelisted preference fields.
func (s *Service) UpdatePreferences(ctx context.Context, accountID primitive.ObjectID, updates map[string]any) (*domain.PreferenceProfile, error) {
	fields := map[string]any{}
	if v, ok := toStringSlice(updates["reminders"]); ok {
		fields["reminders"] = v
	}
	if v, ok := toStringSlice(updates["dietary_restrictions"]); ok {
		fields["dietary_restrictions"] = v
	}
	if v, ok := toStringSlice(updates["cuisine_preferences"]); ok {
		fields["cuisine_preferences"] = v
	}
	if v, ok := updates["difficulty_preference"].(string); ok && v != "" {
		switch v {
		case "all", "easy", "medium", "hard":
			fields["difficulty_preference"] = v
		default:
			return nil, apperr.InvalidInput("difficulty_preference", "must be all, easy, medium or hard")
		}
	}
	if len(fields) == 0 {
		return nil, apperr.BadRequest("no updatable fields supplied")
	}

	if err := s.profileRepo.SetPreferenceFields(ctx, accountID, fields); err != nil {
		return nil, apperr.StoreUnavailable("update preferences", err)
	}
	return s.Preferences(ctx, accountID)
}

// =============================================================================
// Internal Helpers
// =============================================================================

func (s *Service) invalidateSocial(ctx context.Context, ids ...primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = socialCacheKey(id)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logger.WithContext(ctx).WithError(err).Debug("social profile cache invalidation failed")
	}
}

func socialCacheKey(accountID primitive.ObjectID) string {
	return "profile:social:" + accountID.Hex()
}

// toStringSlice accepts both []string and the []any produced by JSON
// decoding.
func toStringSlice(v any) ([]string, bool) {
	switch vv := v.(type) {
	case []string:
		return vv, true
	case []any:
		result := make([]string, 0, len(vv))
		for _, item := range vv {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, str)
		}
		return result, true
	default:
		return nil, false
	}
}
