package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// =============================================================================
// Satellite profile documents
// =============================================================================
//
// Each account owns exactly one document of each kind, created once at
// account creation and mutated only through single atomic update
// operations. The follower/following counters are maintained in the
// same atomic update that mutates the set, so they can never drift
// from set cardinality.

// SocialProfile holds the follow graph facet of an account.
type SocialProfile struct {
	AccountID      primitive.ObjectID   `json:"account_id" bson:"account_id"`
	Followers      []primitive.ObjectID `json:"followers" bson:"followers"`
	Following      []primitive.ObjectID `json:"following" bson:"following"`
	FollowerCount  int                  `json:"follower_count" bson:"follower_count"`
	FollowingCount int                  `json:"following_count" bson:"following_count"`
}

// DefaultSocialProfile returns the empty shape created at init.
func DefaultSocialProfile(accountID primitive.ObjectID) *SocialProfile {
	return &SocialProfile{
		AccountID: accountID,
		Followers: []primitive.ObjectID{},
		Following: []primitive.ObjectID{},
	}
}

// ViewEvent is one entry of the bounded view history. Events are
// deduplicated by (Type, RefID); the list keeps the most recent N.
type ViewEvent struct {
	Type     string             `json:"type" bson:"type"`
	RefID    primitive.ObjectID `json:"id" bson:"id"`
	Name     string             `json:"name" bson:"name"`
	ImageURL string             `json:"image_url,omitempty" bson:"image_url,omitempty"`
	ViewedAt time.Time          `json:"viewed_at" bson:"viewed_at"`
}

// View event types.
const (
	ViewTypeDish    = "dish"
	ViewTypeAccount = "account"
)

// ActivityProfile holds the engagement history facet of an account.
type ActivityProfile struct {
	AccountID      primitive.ObjectID   `json:"account_id" bson:"account_id"`
	FavoriteDishes []primitive.ObjectID `json:"favorite_dishes" bson:"favorite_dishes"`
	CookedDishes   []primitive.ObjectID `json:"cooked_dishes" bson:"cooked_dishes"`
	CreatedDishes  []primitive.ObjectID `json:"created_dishes" bson:"created_dishes"`
	CreatedRecipes []primitive.ObjectID `json:"created_recipes" bson:"created_recipes"`
	ViewHistory    []ViewEvent          `json:"view_history" bson:"view_history"`
	UpdatedAt      time.Time            `json:"updated_at" bson:"updated_at"`
}

// DefaultActivityProfile returns the empty shape created at init.
func DefaultActivityProfile(accountID primitive.ObjectID) *ActivityProfile {
	return &ActivityProfile{
		AccountID:      accountID,
		FavoriteDishes: []primitive.ObjectID{},
		CookedDishes:   []primitive.ObjectID{},
		CreatedDishes:  []primitive.ObjectID{},
		CreatedRecipes: []primitive.ObjectID{},
		ViewHistory:    []ViewEvent{},
	}
}

// Notification is one entry of the notification inbox.
type Notification struct {
	Type      string    `json:"type" bson:"type"`
	Message   string    `json:"message" bson:"message"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Notification types.
const (
	NotificationMilestone = "milestone"
	NotificationFollow    = "follow"
)

// NotificationProfile holds the notification inbox facet.
type NotificationProfile struct {
	AccountID     primitive.ObjectID `json:"account_id" bson:"account_id"`
	Notifications []Notification     `json:"notifications" bson:"notifications"`
	UnreadCount   int                `json:"unread_count" bson:"unread_count"`
}

// DefaultNotificationProfile returns the empty shape created at init.
func DefaultNotificationProfile(accountID primitive.ObjectID) *NotificationProfile {
	return &NotificationProfile{
		AccountID:     accountID,
		Notifications: []Notification{},
	}
}

// PreferenceProfile holds the settings facet of an account.
type PreferenceProfile struct {
	AccountID            primitive.ObjectID `json:"account_id" bson:"account_id"`
	Reminders            []string           `json:"reminders" bson:"reminders"`
	DietaryRestrictions  []string           `json:"dietary_restrictions" bson:"dietary_restrictions"`
	CuisinePreferences   []string           `json:"cuisine_preferences" bson:"cuisine_preferences"`
	DifficultyPreference string             `json:"difficulty_preference" bson:"difficulty_preference"`
}

// DefaultPreferenceProfile returns the empty shape created at init.
func DefaultPreferenceProfile(accountID primitive.ObjectID) *PreferenceProfile {
	return &PreferenceProfile{
		AccountID:            accountID,
		Reminders:            []string{},
		DietaryRestrictions:  []string{},
		CuisinePreferences:   []string{},
		DifficultyPreference: "all",
	}
}
