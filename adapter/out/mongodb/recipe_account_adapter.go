package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Account Adapter
// =============================================================================

const collectionAccounts = "accounts"

// AccountAdapter implements out.AccountRepository using MongoDB.
type AccountAdapter struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewAccountAdapter creates a new MongoDB account adapter.
func NewAccountAdapter(db *mongo.Database) *AccountAdapter {
	return &AccountAdapter{
		db:         db,
		collection: db.Collection(collectionAccounts),
	}
}

// EnsureIndexes creates the unique indexes the identity resolver
// relies on. Handle collisions are detected by the store rejecting a
// write against these indexes, never by a prior existence check.
func (a *AccountAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "handle", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("handle_unique"),
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// =============================================================================
// Identity Resolution
// =============================================================================

// UpsertByEmail is one atomic insert-if-absent, else touch-last-login
// operation keyed by email. At most one account is ever created per
// email: a concurrent duplicate upsert loses the insert race on the
// unique email index and is retried once as a plain update.
func (a *AccountAdapter) UpsertByEmail(ctx context.Context, acc *domain.Account) (*domain.Account, bool, error) {
	now := time.Now().UTC()

	update := bson.M{
		"$setOnInsert": bson.M{
			"email":      acc.Email,
			"handle":     acc.Handle,
			"name":       acc.Name,
			"avatar_url": acc.AvatarURL,
			"bio":        "",
			"subject_id": acc.SubjectID,
			"role":       domain.RoleUser,
			"created_at": now,
		},
		"$set": bson.M{"last_login_at": now},
	}

	created := false
	for attempt := 0; attempt < 2; attempt++ {
		res, err := a.collection.UpdateOne(ctx,
			bson.M{"email": acc.Email},
			update,
			options.Update().SetUpsert(true),
		)
		if err != nil {
			if isDuplicateOf(err, "handle") {
				return nil, false, out.ErrHandleTaken
			}
			if mongo.IsDuplicateKeyError(err) {
				// Lost the insert race on email; the retry matches the
				// now-existing document and becomes an update.
				continue
			}
			return nil, false, fmt.Errorf("failed to upsert account: %w", err)
		}
		created = res.UpsertedCount == 1
		break
	}

	stored, err := a.GetByEmail(ctx, acc.Email)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("account vanished after upsert: %s", acc.Email)
	}
	return stored, created, nil
}

// =============================================================================
// Lookups
// =============================================================================

// GetByID retrieves an account by id. Absence yields (nil, nil).
func (a *AccountAdapter) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Account, error) {
	var acc domain.Account
	err := a.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&acc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acc, nil
}

// GetByEmail retrieves an account by email. Absence yields (nil, nil).
func (a *AccountAdapter) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var acc domain.Account
	err := a.collection.FindOne(ctx, bson.M{"email": email}).Decode(&acc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &acc, nil
}

// UpdateFields applies a partial profile update as one $set.
func (a *AccountAdapter) UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}

	_, err := a.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if isDuplicateOf(err, "handle") {
			return out.ErrHandleTaken
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// =============================================================================
// Legacy Schema (migration engine)
// =============================================================================

// legacyFilter matches documents still carrying any embedded legacy
// array on the account document.
func legacyFilter() bson.M {
	or := make([]bson.M, 0, len(domain.LegacyFieldNames))
	for _, field := range domain.LegacyFieldNames {
		or = append(or, bson.M{field: bson.M{"$exists": true}})
	}
	return bson.M{"$or": or}
}

// LegacyByID loads one account with its raw legacy fields, flagging
// key presence so an empty legacy array still counts as unmigrated.
func (a *AccountAdapter) LegacyByID(ctx context.Context, id primitive.ObjectID) (*domain.LegacyAccount, error) {
	var raw bson.Raw
	err := a.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get legacy account: %w", err)
	}
	return decodeLegacy(raw)
}

// ListLegacy iterates every account document, with no artificial page
// limit, for the bulk migration.
func (a *AccountAdapter) ListLegacy(ctx context.Context) ([]*domain.LegacyAccount, error) {
	cursor, err := a.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []*domain.LegacyAccount
	for cursor.Next(ctx) {
		acc, err := decodeLegacy(cursor.Current)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("account cursor failed: %w", err)
	}
	return accounts, nil
}

// StripLegacyFields reduces the account document to the split schema
// by unsetting every legacy array in one atomic update. $unset touches
// only the named fields, so it cannot race with concurrent profile
// writes the way a whole-document replace would.
func (a *AccountAdapter) StripLegacyFields(ctx context.Context, id primitive.ObjectID) error {
	unset := bson.M{}
	for _, field := range domain.LegacyFieldNames {
		unset[field] = ""
	}

	_, err := a.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": unset})
	if err != nil {
		return fmt.Errorf("failed to strip legacy fields: %w", err)
	}
	return nil
}

// CountAll counts every account.
func (a *AccountAdapter) CountAll(ctx context.Context) (int64, error) {
	count, err := a.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// CountUnmigrated counts accounts still carrying the legacy shape.
func (a *AccountAdapter) CountUnmigrated(ctx context.Context) (int64, error) {
	count, err := a.collection.CountDocuments(ctx, legacyFilter())
	if err != nil {
		return 0, fmt.Errorf("failed to count unmigrated accounts: %w", err)
	}
	return count, nil
}

// =============================================================================
// Helpers
// =============================================================================

func decodeLegacy(raw bson.Raw) (*domain.LegacyAccount, error) {
	var acc domain.LegacyAccount
	if err := bson.Unmarshal(raw, &acc); err != nil {
		return nil, fmt.Errorf("failed to decode legacy account: %w", err)
	}

	for _, field := range domain.LegacyFieldNames {
		if _, err := raw.LookupErr(field); err == nil {
			acc.Legacy = true
			break
		}
	}
	return &acc, nil
}

// isDuplicateOf reports whether err is a duplicate-key rejection on an
// index whose name contains the given fragment.
func isDuplicateOf(err error, index string) bool {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return false
	}
	return strings.Contains(err.Error(), index)
}

// Interface compliance
var _ out.AccountRepository = (*AccountAdapter)(nil)
