package out

import (
	"context"

	"recipe_server/core/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileRepository persists the four satellite documents of an
// account. Every mutation is a single atomic document update; the
// boolean results of the set operations report whether the document
// was actually modified, so a stale repeat toggle surfaces as a
// detectable no-op instead of an error.
type ProfileRepository interface {
	EnsureIndexes(ctx context.Context) error

	// Init creates all four satellite documents with empty defaults.
	// Calling it again never overwrites existing data: an existing
	// document of a kind is skipped.
	Init(ctx context.Context, accountID primitive.ObjectID) error

	// Point lookups. A missing document yields (nil, nil); callers
	// substitute defaults.
	Social(ctx context.Context, accountID primitive.ObjectID) (*domain.SocialProfile, error)
	Activity(ctx context.Context, accountID primitive.ObjectID) (*domain.ActivityProfile, error)
	Notifications(ctx context.Context, accountID primitive.ObjectID) (*domain.NotificationProfile, error)
	Preferences(ctx context.Context, accountID primitive.ObjectID) (*domain.PreferenceProfile, error)

	// Follow-graph set operations. Each call is one conditional update
	// that mutates the set and its counter together, gated on current
	// membership.
	AddFollower(ctx context.Context, accountID, followerID primitive.ObjectID) (bool, error)
	RemoveFollower(ctx context.Context, accountID, followerID primitive.ObjectID) (bool, error)
	AddFollowing(ctx context.Context, accountID, followeeID primitive.ObjectID) (bool, error)
	RemoveFollowing(ctx context.Context, accountID, followeeID primitive.ObjectID) (bool, error)

	// Activity operations.
	AddFavorite(ctx context.Context, accountID, dishID primitive.ObjectID) (bool, error)
	RemoveFavorite(ctx context.Context, accountID, dishID primitive.ObjectID) (bool, error)
	AddCooked(ctx context.Context, accountID, dishID primitive.ObjectID, max int) (bool, error)
	RecordView(ctx context.Context, accountID primitive.ObjectID, event domain.ViewEvent, max int) error
	TrackCreatedDish(ctx context.Context, accountID, dishID primitive.ObjectID) error
	TrackCreatedRecipe(ctx context.Context, accountID, recipeID primitive.ObjectID) error

	// PullDishRefs removes every reference to a dish from all activity
	// documents; used by the retention cleanup. Returns the number of
	// documents modified.
	PullDishRefs(ctx context.Context, dishID primitive.ObjectID) (int64, error)

	// Notification operations.
	PushNotification(ctx context.Context, accountID primitive.ObjectID, n domain.Notification) error
	MarkNotificationsRead(ctx context.Context, accountID primitive.ObjectID) error

	// Preference operations.
	SetPreferenceFields(ctx context.Context, accountID primitive.ObjectID, fields map[string]any) error

	// Migration upserts: idempotent create-or-replace of one satellite
	// payload, keyed by account id.
	UpsertSocial(ctx context.Context, p *domain.SocialProfile) error
	UpsertActivity(ctx context.Context, p *domain.ActivityProfile) error
	UpsertNotifications(ctx context.Context, p *domain.NotificationProfile) error
	UpsertPreferences(ctx context.Context, p *domain.PreferenceProfile) error
}
