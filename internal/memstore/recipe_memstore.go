// Package memstore provides in-memory implementations of the outbound
// ports with the same atomicity semantics as the MongoDB adapters.
// Used by service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// =============================================================================
// Account Store
// =============================================================================

type legacyRecord struct {
	account domain.LegacyAccount
	legacy  bool
}

// AccountStore is an in-memory out.AccountRepository.
type AccountStore struct {
	mu       sync.Mutex
	byID     map[primitive.ObjectID]*legacyRecord
	FailWith error
}

func NewAccountStore() *AccountStore {
	return &AccountStore{byID: make(map[primitive.ObjectID]*legacyRecord)}
}

// SeedLegacy inserts an account that still carries the embedded legacy
// arrays.
func (s *AccountStore) SeedLegacy(acc domain.LegacyAccount) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID.IsZero() {
		acc.ID = primitive.NewObjectID()
	}
	acc.Legacy = true
	s.byID[acc.ID] = &legacyRecord{account: acc, legacy: true}
	return acc.ID
}

// Seed inserts an already-migrated account.
func (s *AccountStore) Seed(acc domain.Account) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID.IsZero() {
		acc.ID = primitive.NewObjectID()
	}
	s.byID[acc.ID] = &legacyRecord{account: domain.LegacyAccount{Account: acc}}
	return acc.ID
}

func (s *AccountStore) EnsureIndexes(ctx context.Context) error { return nil }

func (s *AccountStore) UpsertByEmail(ctx context.Context, acc *domain.Account) (*domain.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, false, s.FailWith
	}

	for _, rec := range s.byID {
		if rec.account.Email == acc.Email {
			rec.account.LastLoginAt = time.Now().UTC()
			stored := rec.account.Account
			return &stored, false, nil
		}
	}

	for _, rec := range s.byID {
		if rec.account.Handle == acc.Handle {
			return nil, false, out.ErrHandleTaken
		}
	}

	stored := *acc
	stored.ID = primitive.NewObjectID()
	stored.Role = domain.RoleUser
	stored.CreatedAt = time.Now().UTC()
	stored.LastLoginAt = stored.CreatedAt
	s.byID[stored.ID] = &legacyRecord{account: domain.LegacyAccount{Account: stored}}
	return &stored, true, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	rec, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	acc := rec.account.Account
	return &acc, nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.byID {
		if rec.account.Email == email {
			acc := rec.account.Account
			return &acc, nil
		}
	}
	return nil, nil
}

func (s *AccountStore) UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return out.ErrNotFound
	}
	if handle, ok := fields["handle"].(string); ok {
		for otherID, other := range s.byID {
			if otherID != id && other.account.Handle == handle {
				return out.ErrHandleTaken
			}
		}
		rec.account.Handle = handle
	}
	if v, ok := fields["name"].(string); ok {
		rec.account.Name = v
	}
	if v, ok := fields["bio"].(string); ok {
		rec.account.Bio = v
	}
	if v, ok := fields["avatar_url"].(string); ok {
		rec.account.AvatarURL = v
	}
	return nil
}

func (s *AccountStore) LegacyByID(ctx context.Context, id primitive.ObjectID) (*domain.LegacyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	acc := rec.account
	acc.Legacy = rec.legacy
	return &acc, nil
}

func (s *AccountStore) ListLegacy(ctx context.Context) ([]*domain.LegacyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.LegacyAccount
	for _, rec := range s.byID {
		if rec.legacy {
			acc := rec.account
			acc.Legacy = true
			result = append(result, &acc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.Compare(result[i].ID.Hex(), result[j].ID.Hex()) < 0
	})
	return result, nil
}

func (s *AccountStore) StripLegacyFields(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	rec, ok := s.byID[id]
	if !ok {
		return out.ErrNotFound
	}
	rec.legacy = false
	rec.account.Followers = nil
	rec.account.Following = nil
	rec.account.Recipes = nil
	rec.account.FavoriteDishes = nil
	rec.account.CookedDishes = nil
	rec.account.ViewedDishes = nil
	rec.account.Notifications = nil
	rec.account.Reminders = nil
	return nil
}

func (s *AccountStore) CountAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.byID)), nil
}

func (s *AccountStore) CountUnmigrated(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, rec := range s.byID {
		if rec.legacy {
			n++
		}
	}
	return n, nil
}

var _ out.AccountRepository = (*AccountStore)(nil)

// =============================================================================
// Profile Store
// =============================================================================

// ProfileStore is an in-memory out.ProfileRepository. Every mutation
// holds the store lock for its whole duration, mirroring the
// single-document atomicity of the real adapter.
type ProfileStore struct {
	mu            sync.Mutex
	social        map[primitive.ObjectID]*domain.SocialProfile
	activity      map[primitive.ObjectID]*domain.ActivityProfile
	notifications map[primitive.ObjectID]*domain.NotificationProfile
	preferences   map[primitive.ObjectID]*domain.PreferenceProfile

	InitCalls int
	FailWith  error
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		social:        make(map[primitive.ObjectID]*domain.SocialProfile),
		activity:      make(map[primitive.ObjectID]*domain.ActivityProfile),
		notifications: make(map[primitive.ObjectID]*domain.NotificationProfile),
		preferences:   make(map[primitive.ObjectID]*domain.PreferenceProfile),
	}
}

func (s *ProfileStore) EnsureIndexes(ctx context.Context) error { return nil }

func (s *ProfileStore) Init(ctx context.Context, accountID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.InitCalls++
	if _, ok := s.social[accountID]; !ok {
		s.social[accountID] = domain.DefaultSocialProfile(accountID)
	}
	if _, ok := s.activity[accountID]; !ok {
		s.activity[accountID] = domain.DefaultActivityProfile(accountID)
	}
	if _, ok := s.notifications[accountID]; !ok {
		s.notifications[accountID] = domain.DefaultNotificationProfile(accountID)
	}
	if _, ok := s.preferences[accountID]; !ok {
		s.preferences[accountID] = domain.DefaultPreferenceProfile(accountID)
	}
	return nil
}

func (s *ProfileStore) Social(ctx context.Context, accountID primitive.ObjectID) (*domain.SocialProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	p, ok := s.social[accountID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Followers = append(p.Followers[:0:0], p.Followers...)
	cp.Following = append(p.Following[:0:0], p.Following...)
	return &cp, nil
}

func (s *ProfileStore) Activity(ctx context.Context, accountID primitive.ObjectID) (*domain.ActivityProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.activity[accountID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.ViewHistory = append(p.ViewHistory[:0:0], p.ViewHistory...)
	cp.FavoriteDishes = append(p.FavoriteDishes[:0:0], p.FavoriteDishes...)
	cp.CookedDishes = append(p.CookedDishes[:0:0], p.CookedDishes...)
	return &cp, nil
}

func (s *ProfileStore) Notifications(ctx context.Context, accountID primitive.ObjectID) (*domain.NotificationProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.notifications[accountID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Notifications = append([]domain.Notification(nil), p.Notifications...)
	return &cp, nil
}

func (s *ProfileStore) Preferences(ctx context.Context, accountID primitive.ObjectID) (*domain.PreferenceProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preferences[accountID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *ProfileStore) socialOf(accountID primitive.ObjectID) *domain.SocialProfile {
	p, ok := s.social[accountID]
	if !ok {
		p = domain.DefaultSocialProfile(accountID)
		s.social[accountID] = p
	}
	return p
}

func (s *ProfileStore) AddFollower(ctx context.Context, accountID, followerID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return false, s.FailWith
	}
	p := s.socialOf(accountID)
	if containsID(p.Followers, followerID) {
		return false, nil
	}
	p.Followers = append(p.Followers, followerID)
	p.FollowerCount++
	return true, nil
}

func (s *ProfileStore) RemoveFollower(ctx context.Context, accountID, followerID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.socialOf(accountID)
	if !containsID(p.Followers, followerID) {
		return false, nil
	}
	p.Followers = removeID(p.Followers, followerID)
	p.FollowerCount--
	return true, nil
}

func (s *ProfileStore) AddFollowing(ctx context.Context, accountID, followeeID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.socialOf(accountID)
	if containsID(p.Following, followeeID) {
		return false, nil
	}
	p.Following = append(p.Following, followeeID)
	p.FollowingCount++
	return true, nil
}

func (s *ProfileStore) RemoveFollowing(ctx context.Context, accountID, followeeID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.socialOf(accountID)
	if !containsID(p.Following, followeeID) {
		return false, nil
	}
	p.Following = removeID(p.Following, followeeID)
	p.FollowingCount--
	return true, nil
}

func (s *ProfileStore) activityOf(accountID primitive.ObjectID) *domain.ActivityProfile {
	p, ok := s.activity[accountID]
	if !ok {
		p = domain.DefaultActivityProfile(accountID)
		s.activity[accountID] = p
	}
	return p
}

func (s *ProfileStore) AddFavorite(ctx context.Context, accountID, dishID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.activityOf(accountID)
	if containsID(p.FavoriteDishes, dishID) {
		return false, nil
	}
	p.FavoriteDishes = append(p.FavoriteDishes, dishID)
	return true, nil
}

func (s *ProfileStore) RemoveFavorite(ctx context.Context, accountID, dishID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.activityOf(accountID)
	if !containsID(p.FavoriteDishes, dishID) {
		return false, nil
	}
	p.FavoriteDishes = removeID(p.FavoriteDishes, dishID)
	return true, nil
}

func (s *ProfileStore) AddCooked(ctx context.Context, accountID, dishID primitive.ObjectID, max int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.activityOf(accountID)
	if containsID(p.CookedDishes, dishID) {
		return false, nil
	}
	p.CookedDishes = append(p.CookedDishes, dishID)
	if len(p.CookedDishes) > max {
		p.CookedDishes = p.CookedDishes[len(p.CookedDishes)-max:]
	}
	return true, nil
}

func (s *ProfileStore) RecordView(ctx context.Context, accountID primitive.ObjectID, event domain.ViewEvent, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	p := s.activityOf(accountID)

	kept := p.ViewHistory[:0]
	for _, v := range p.ViewHistory {
		if v.Type == event.Type && v.RefID == event.RefID {
			continue
		}
		kept = append(kept, v)
	}
	p.ViewHistory = append([]domain.ViewEvent{event}, kept...)
	if len(p.ViewHistory) > max {
		p.ViewHistory = p.ViewHistory[:max]
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *ProfileStore) TrackCreatedDish(ctx context.Context, accountID, dishID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.activityOf(accountID)
	if !containsID(p.CreatedDishes, dishID) {
		p.CreatedDishes = append(p.CreatedDishes, dishID)
	}
	return nil
}

func (s *ProfileStore) TrackCreatedRecipe(ctx context.Context, accountID, recipeID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.activityOf(accountID)
	if !containsID(p.CreatedRecipes, recipeID) {
		p.CreatedRecipes = append(p.CreatedRecipes, recipeID)
	}
	return nil
}

func (s *ProfileStore) PullDishRefs(ctx context.Context, dishID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	var modified int64
	for _, p := range s.activity {
		before := len(p.FavoriteDishes) + len(p.CookedDishes) + len(p.CreatedDishes) + len(p.ViewHistory)
		p.FavoriteDishes = removeID(p.FavoriteDishes, dishID)
		p.CookedDishes = removeID(p.CookedDishes, dishID)
		p.CreatedDishes = removeID(p.CreatedDishes, dishID)
		kept := p.ViewHistory[:0]
		for _, v := range p.ViewHistory {
			if v.Type == domain.ViewTypeDish && v.RefID == dishID {
				continue
			}
			kept = append(kept, v)
		}
		p.ViewHistory = kept
		after := len(p.FavoriteDishes) + len(p.CookedDishes) + len(p.CreatedDishes) + len(p.ViewHistory)
		if after != before {
			modified++
		}
	}
	return modified, nil
}

func (s *ProfileStore) PushNotification(ctx context.Context, accountID primitive.ObjectID, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	p, ok := s.notifications[accountID]
	if !ok {
		p = domain.DefaultNotificationProfile(accountID)
		s.notifications[accountID] = p
	}
	p.Notifications = append(p.Notifications, n)
	p.UnreadCount++
	return nil
}

func (s *ProfileStore) MarkNotificationsRead(ctx context.Context, accountID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.notifications[accountID]
	if !ok {
		return nil
	}
	for i := range p.Notifications {
		p.Notifications[i].Read = true
	}
	p.UnreadCount = 0
	return nil
}

func (s *ProfileStore) SetPreferenceFields(ctx context.Context, accountID primitive.ObjectID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preferences[accountID]
	if !ok {
		p = domain.DefaultPreferenceProfile(accountID)
		s.preferences[accountID] = p
	}
	if v, ok := fields["reminders"].([]string); ok {
		p.Reminders = v
	}
	if v, ok := fields["dietary_restrictions"].([]string); ok {
		p.DietaryRestrictions = v
	}
	if v, ok := fields["cuisine_preferences"].([]string); ok {
		p.CuisinePreferences = v
	}
	if v, ok := fields["difficulty_preference"].(string); ok {
		p.DifficultyPreference = v
	}
	return nil
}

func (s *ProfileStore) UpsertSocial(ctx context.Context, p *domain.SocialProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	cp := *p
	s.social[p.AccountID] = &cp
	return nil
}

func (s *ProfileStore) UpsertActivity(ctx context.Context, p *domain.ActivityProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	cp := *p
	s.activity[p.AccountID] = &cp
	return nil
}

func (s *ProfileStore) UpsertNotifications(ctx context.Context, p *domain.NotificationProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	cp := *p
	s.notifications[p.AccountID] = &cp
	return nil
}

func (s *ProfileStore) UpsertPreferences(ctx context.Context, p *domain.PreferenceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	cp := *p
	s.preferences[p.AccountID] = &cp
	return nil
}

var _ out.ProfileRepository = (*ProfileStore)(nil)

// =============================================================================
// Content Stores
// =============================================================================

// DishStore is an in-memory out.DishRepository.
type DishStore struct {
	mu     sync.Mutex
	dishes map[primitive.ObjectID]*domain.Dish

	DeleteErr error
}

func NewDishStore() *DishStore {
	return &DishStore{dishes: make(map[primitive.ObjectID]*domain.Dish)}
}

func (s *DishStore) EnsureIndexes(ctx context.Context) error { return nil }

func (s *DishStore) Create(ctx context.Context, dish *domain.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dish.ID = primitive.NewObjectID()
	if dish.Ratings == nil {
		dish.Ratings = []int{}
	}
	if dish.LikedBy == nil {
		dish.LikedBy = []primitive.ObjectID{}
	}
	dish.CreatedAt = time.Now().UTC()
	cp := *dish
	s.dishes[dish.ID] = &cp
	return nil
}

func (s *DishStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	cp.Ratings = append([]int(nil), d.Ratings...)
	cp.LikedBy = append([]primitive.ObjectID(nil), d.LikedBy...)
	return &cp, nil
}

func (s *DishStore) ListByCreator(ctx context.Context, creatorID primitive.ObjectID, limit int) ([]*domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Dish
	for _, d := range s.dishes {
		if d.CreatorID == creatorID {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *DishStore) ListActive(ctx context.Context, limit, offset int) ([]*domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Dish
	for _, d := range s.dishes {
		if d.DeletedAt == nil {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *DishStore) AppendRating(ctx context.Context, id primitive.ObjectID, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok {
		return out.ErrNotFound
	}
	d.Ratings = append(d.Ratings, value)
	return nil
}

func (s *DishStore) RecomputeRating(ctx context.Context, id primitive.ObjectID) (float64, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok {
		return 0, 0, out.ErrNotFound
	}
	sum := 0
	for _, r := range d.Ratings {
		sum += r
	}
	count := len(d.Ratings)
	avg := 0.0
	if count > 0 {
		avg = float64(sum) / float64(count)
	}
	d.AverageRating = avg
	d.RatingCount = count
	return avg, count, nil
}

func (s *DishStore) AddLike(ctx context.Context, id, accountID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok {
		return false, nil
	}
	if containsID(d.LikedBy, accountID) {
		return false, nil
	}
	d.LikedBy = append(d.LikedBy, accountID)
	d.LikeCount++
	return true, nil
}

func (s *DishStore) RemoveLike(ctx context.Context, id, accountID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok {
		return false, nil
	}
	if !containsID(d.LikedBy, accountID) {
		return false, nil
	}
	d.LikedBy = removeID(d.LikedBy, accountID)
	d.LikeCount--
	return true, nil
}

func (s *DishStore) SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok || d.DeletedAt != nil {
		return false, nil
	}
	d.DeletedAt = &at
	return true, nil
}

func (s *DishStore) ListExpired(ctx context.Context, cutoff time.Time) ([]*domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Dish
	for _, d := range s.dishes {
		if d.DeletedAt != nil && d.DeletedAt.Before(cutoff) {
			cp := *d
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DeletedAt.Before(*result[j].DeletedAt)
	})
	return result, nil
}

func (s *DishStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.dishes, id)
	return nil
}

// Has reports whether a dish document still exists.
func (s *DishStore) Has(id primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dishes[id]
	return ok
}

var _ out.DishRepository = (*DishStore)(nil)

// RecipeStore is an in-memory out.RecipeRepository.
type RecipeStore struct {
	mu      sync.Mutex
	recipes map[primitive.ObjectID]*domain.Recipe
}

func NewRecipeStore() *RecipeStore {
	return &RecipeStore{recipes: make(map[primitive.ObjectID]*domain.Recipe)}
}

func (s *RecipeStore) Create(ctx context.Context, recipe *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recipe.ID = primitive.NewObjectID()
	recipe.CreatedAt = time.Now().UTC()
	cp := *recipe
	s.recipes[recipe.ID] = &cp
	return nil
}

func (s *RecipeStore) GetByDish(ctx context.Context, dishID primitive.ObjectID) (*domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recipes {
		if r.DishID == dishID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *RecipeStore) DeleteByDish(ctx context.Context, dishID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.recipes {
		if r.DishID == dishID {
			delete(s.recipes, id)
			n++
		}
	}
	return n, nil
}

var _ out.RecipeRepository = (*RecipeStore)(nil)

// CommentStore is an in-memory out.CommentRepository.
type CommentStore struct {
	mu       sync.Mutex
	comments map[primitive.ObjectID]*domain.Comment

	DeleteErr error
}

func NewCommentStore() *CommentStore {
	return &CommentStore{comments: make(map[primitive.ObjectID]*domain.Comment)}
}

func (s *CommentStore) Create(ctx context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = time.Now().UTC()
	cp := *comment
	s.comments[comment.ID] = &cp
	return nil
}

func (s *CommentStore) ListByDish(ctx context.Context, dishID primitive.ObjectID, limit int) ([]*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Comment
	for _, c := range s.comments {
		if c.DishID == dishID {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *CommentStore) DeleteByDish(ctx context.Context, dishID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	var n int64
	for id, c := range s.comments {
		if c.DishID == dishID {
			delete(s.comments, id)
			n++
		}
	}
	return n, nil
}

var _ out.CommentRepository = (*CommentStore)(nil)

// =============================================================================
// Asset Store
// =============================================================================

// AssetStore is an in-memory out.AssetStore with failure injection.
type AssetStore struct {
	mu      sync.Mutex
	assets  map[string][]byte
	counter int

	// FailDelete lists asset ids whose Delete should fail.
	FailDelete map[string]error
	Deleted    []string
}

func NewAssetStore() *AssetStore {
	return &AssetStore{
		assets:     make(map[string][]byte),
		FailDelete: make(map[string]error),
	}
}

func (s *AssetStore) Upload(ctx context.Context, data []byte, folder string) (*domain.AssetRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	id := fmt.Sprintf("%s/asset-%d", folder, s.counter)
	s.assets[id] = data
	return &domain.AssetRef{URL: "https://assets.test/" + id, ID: id}, nil
}

func (s *AssetStore) Delete(ctx context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailDelete[assetID]; ok {
		return err
	}
	delete(s.assets, assetID)
	s.Deleted = append(s.Deleted, assetID)
	return nil
}

var _ out.AssetStore = (*AssetStore)(nil)

// =============================================================================
// Helpers
// =============================================================================

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	kept := ids[:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	return kept
}
