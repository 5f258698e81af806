package mongodb

import (
	"context"
	"fmt"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"
	"recipe_server/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Profile Adapter
// =============================================================================
//
// Four satellite collections, each document keyed 1:1 by account id.
// Satellite documents are exclusively owned by their account, except
// the follow-graph operations, which touch another account's social
// document through narrow conditional updates only.

const (
	collectionSocial        = "account_social"
	collectionActivity      = "account_activity"
	collectionNotifications = "account_notifications"
	collectionPreferences   = "account_preferences"
)

// ProfileAdapter implements out.ProfileRepository using MongoDB.
type ProfileAdapter struct {
	social        *mongo.Collection
	activity      *mongo.Collection
	notifications *mongo.Collection
	preferences   *mongo.Collection
}

// NewProfileAdapter creates a new MongoDB profile adapter.
func NewProfileAdapter(db *mongo.Database) *ProfileAdapter {
	return &ProfileAdapter{
		social:        db.Collection(collectionSocial),
		activity:      db.Collection(collectionActivity),
		notifications: db.Collection(collectionNotifications),
		preferences:   db.Collection(collectionPreferences),
	}
}

// EnsureIndexes creates the unique account_id index on each satellite
// collection. These indexes are what makes Init create-once.
func (a *ProfileAdapter) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "account_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	for _, coll := range []*mongo.Collection{a.social, a.activity, a.notifications, a.preferences} {
		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to index %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// =============================================================================
// Initialization
// =============================================================================

// Init creates all four satellite documents with empty defaults. A
// duplicate-key rejection means the document already exists and is
// skipped, so a second Init never overwrites data.
func (a *ProfileAdapter) Init(ctx context.Context, accountID primitive.ObjectID) error {
	inserts := []struct {
		coll *mongo.Collection
		doc  any
	}{
		{a.social, domain.DefaultSocialProfile(accountID)},
		{a.activity, domain.DefaultActivityProfile(accountID)},
		{a.notifications, domain.DefaultNotificationProfile(accountID)},
		{a.preferences, domain.DefaultPreferenceProfile(accountID)},
	}

	for _, ins := range inserts {
		if _, err := ins.coll.InsertOne(ctx, ins.doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.WithField("collection", ins.coll.Name()).
					Debug("satellite document already exists, skipping init")
				continue
			}
			return fmt.Errorf("failed to init %s: %w", ins.coll.Name(), err)
		}
	}
	return nil
}

// =============================================================================
// Point Lookups
// =============================================================================

// Social returns the social profile, or (nil, nil) when absent.
func (a *ProfileAdapter) Social(ctx context.Context, accountID primitive.ObjectID) (*domain.SocialProfile, error) {
	var p domain.SocialProfile
	if err := a.social.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get social profile: %w", err)
	}
	return &p, nil
}

// Activity returns the activity profile, or (nil, nil) when absent.
func (a *ProfileAdapter) Activity(ctx context.Context, accountID primitive.ObjectID) (*domain.ActivityProfile, error) {
	var p domain.ActivityProfile
	if err := a.activity.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get activity profile: %w", err)
	}
	return &p, nil
}

// Notifications returns the notification profile, or (nil, nil) when absent.
func (a *ProfileAdapter) Notifications(ctx context.Context, accountID primitive.ObjectID) (*domain.NotificationProfile, error) {
	var p domain.NotificationProfile
	if err := a.notifications.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification profile: %w", err)
	}
	return &p, nil
}

// Preferences returns the preference profile, or (nil, nil) when absent.
func (a *ProfileAdapter) Preferences(ctx context.Context, accountID primitive.ObjectID) (*domain.PreferenceProfile, error) {
	var p domain.PreferenceProfile
	if err := a.preferences.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preference profile: %w", err)
	}
	return &p, nil
}

// =============================================================================
// Follow Graph
// =============================================================================
//
// Set mutation and counter change travel in one conditional update:
// the filter asserts current membership, so the counter is incremented
// only when the set actually changes and can never drift from set
// cardinality. ModifiedCount == 0 marks a stale repeat toggle.

func (a *ProfileAdapter) AddFollower(ctx context.Context, accountID, followerID primitive.ObjectID) (bool, error) {
	return a.addToSet(ctx, a.social, accountID, "followers", "follower_count", followerID)
}

func (a *ProfileAdapter) RemoveFollower(ctx context.Context, accountID, followerID primitive.ObjectID) (bool, error) {
	return a.pullFromSet(ctx, a.social, accountID, "followers", "follower_count", followerID)
}

func (a *ProfileAdapter) AddFollowing(ctx context.Context, accountID, followeeID primitive.ObjectID) (bool, error) {
	return a.addToSet(ctx, a.social, accountID, "following", "following_count", followeeID)
}

func (a *ProfileAdapter) RemoveFollowing(ctx context.Context, accountID, followeeID primitive.ObjectID) (bool, error) {
	return a.pullFromSet(ctx, a.social, accountID, "following", "following_count", followeeID)
}

func (a *ProfileAdapter) addToSet(ctx context.Context, coll *mongo.Collection, accountID primitive.ObjectID, field, counter string, member primitive.ObjectID) (bool, error) {
	res, err := coll.UpdateOne(ctx,
		bson.M{"account_id": accountID, field: bson.M{"$ne": member}},
		bson.M{
			"$addToSet": bson.M{field: member},
			"$inc":      bson.M{counter: 1},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to add to %s: %w", field, err)
	}
	return res.ModifiedCount > 0, nil
}

func (a *ProfileAdapter) pullFromSet(ctx context.Context, coll *mongo.Collection, accountID primitive.ObjectID, field, counter string, member primitive.ObjectID) (bool, error) {
	res, err := coll.UpdateOne(ctx,
		bson.M{"account_id": accountID, field: member},
		bson.M{
			"$pull": bson.M{field: member},
			"$inc":  bson.M{counter: -1},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to pull from %s: %w", field, err)
	}
	return res.ModifiedCount > 0, nil
}

// =============================================================================
// Activity
// =============================================================================

func (a *ProfileAdapter) AddFavorite(ctx context.Context, accountID, dishID primitive.ObjectID) (bool, error) {
	res, err := a.activity.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$addToSet": bson.M{"favorite_dishes": dishID}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (a *ProfileAdapter) RemoveFavorite(ctx context.Context, accountID, dishID primitive.ObjectID) (bool, error) {
	res, err := a.activity.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$pull": bson.M{"favorite_dishes": dishID}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// AddCooked appends to the cooked history, deduplicated and capped at
// max entries (oldest dropped first).
func (a *ProfileAdapter) AddCooked(ctx context.Context, accountID, dishID primitive.ObjectID, max int) (bool, error) {
	res, err := a.activity.UpdateOne(ctx,
		bson.M{"account_id": accountID, "cooked_dishes": bson.M{"$ne": dishID}},
		bson.M{"$push": bson.M{"cooked_dishes": bson.M{
			"$each":  bson.A{dishID},
			"$slice": -max,
		}}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to add cooked dish: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// RecordView maintains the bounded, deduplicated view history: remove
// any entry with the same (type, id), then prepend the new entry and
// trim to the most recent max. Under heavy concurrency exact ordering
// is best-effort, but the list always converges to the most recent max
// distinct events, each present at most once.
func (a *ProfileAdapter) RecordView(ctx context.Context, accountID primitive.ObjectID, event domain.ViewEvent, max int) error {
	filter := bson.M{"account_id": accountID}
	upsert := options.Update().SetUpsert(true)

	_, err := a.activity.UpdateOne(ctx, filter,
		bson.M{"$pull": bson.M{"view_history": bson.M{"type": event.Type, "id": event.RefID}}},
		upsert,
	)
	if err != nil {
		return fmt.Errorf("failed to dedupe view history: %w", err)
	}

	_, err = a.activity.UpdateOne(ctx, filter,
		bson.M{
			"$push": bson.M{"view_history": bson.M{
				"$each":     bson.A{event},
				"$position": 0,
				"$slice":    max,
			}},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		upsert,
	)
	if err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

func (a *ProfileAdapter) TrackCreatedDish(ctx context.Context, accountID, dishID primitive.ObjectID) error {
	_, err := a.activity.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$addToSet": bson.M{"created_dishes": dishID}},
	)
	if err != nil {
		return fmt.Errorf("failed to track created dish: %w", err)
	}
	return nil
}

func (a *ProfileAdapter) TrackCreatedRecipe(ctx context.Context, accountID, recipeID primitive.ObjectID) error {
	_, err := a.activity.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$addToSet": bson.M{"created_recipes": recipeID}},
	)
	if err != nil {
		return fmt.Errorf("failed to track created recipe: %w", err)
	}
	return nil
}

// PullDishRefs scrubs every reference to a dish out of all activity
// documents. Used by the retention cleanup before the dish itself is
// permanently deleted.
func (a *ProfileAdapter) PullDishRefs(ctx context.Context, dishID primitive.ObjectID) (int64, error) {
	res, err := a.activity.UpdateMany(ctx,
		bson.M{},
		bson.M{"$pull": bson.M{
			"favorite_dishes": dishID,
			"cooked_dishes":   dishID,
			"created_dishes":  dishID,
			"view_history":    bson.M{"type": domain.ViewTypeDish, "id": dishID},
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to pull dish references: %w", err)
	}
	return res.ModifiedCount, nil
}

// =============================================================================
// Notifications
// =============================================================================

// PushNotification appends to the inbox and bumps the unread counter
// in one atomic update.
func (a *ProfileAdapter) PushNotification(ctx context.Context, accountID primitive.ObjectID, n domain.Notification) error {
	_, err := a.notifications.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{
			"$push": bson.M{"notifications": n},
			"$inc":  bson.M{"unread_count": 1},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

// MarkNotificationsRead marks every inbox entry read and resets the
// unread counter.
func (a *ProfileAdapter) MarkNotificationsRead(ctx context.Context, accountID primitive.ObjectID) error {
	_, err := a.notifications.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{
			"$set": bson.M{"notifications.$[].read": true, "unread_count": 0},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// =============================================================================
// Preferences
// =============================================================================

// SetPreferenceFields sets named preference fields in one update.
func (a *ProfileAdapter) SetPreferenceFields(ctx context.Context, accountID primitive.ObjectID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}

	_, err := a.preferences.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set preferences: %w", err)
	}
	return nil
}

// =============================================================================
// Migration Upserts
// =============================================================================
//
// Idempotent $set upserts keyed by account id: safe to repeat, and a
// re-run of the migration writes the same payload.

func (a *ProfileAdapter) UpsertSocial(ctx context.Context, p *domain.SocialProfile) error {
	return a.upsertSatellite(ctx, a.social, p.AccountID, p)
}

func (a *ProfileAdapter) UpsertActivity(ctx context.Context, p *domain.ActivityProfile) error {
	return a.upsertSatellite(ctx, a.activity, p.AccountID, p)
}

func (a *ProfileAdapter) UpsertNotifications(ctx context.Context, p *domain.NotificationProfile) error {
	return a.upsertSatellite(ctx, a.notifications, p.AccountID, p)
}

func (a *ProfileAdapter) UpsertPreferences(ctx context.Context, p *domain.PreferenceProfile) error {
	return a.upsertSatellite(ctx, a.preferences, p.AccountID, p)
}

func (a *ProfileAdapter) upsertSatellite(ctx context.Context, coll *mongo.Collection, accountID primitive.ObjectID, payload any) error {
	doc, err := bson.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal satellite payload: %w", err)
	}
	var set bson.M
	if err := bson.Unmarshal(doc, &set); err != nil {
		return fmt.Errorf("failed to unmarshal satellite payload: %w", err)
	}

	_, err = coll.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", coll.Name(), err)
	}
	return nil
}

// Interface compliance
var _ out.ProfileRepository = (*ProfileAdapter)(nil)
