package mongodb

import (
	"context"
	"fmt"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Dish Adapter
// =============================================================================

const collectionDishes = "dishes"

// DishAdapter implements out.DishRepository using MongoDB.
type DishAdapter struct {
	coll *mongo.Collection
}

// NewDishAdapter creates a new MongoDB dish adapter.
func NewDishAdapter(db *mongo.Database) *DishAdapter {
	return &DishAdapter{coll: db.Collection(collectionDishes)}
}

// EnsureIndexes creates the dish collection indexes.
func (a *DishAdapter) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "creator_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("creator_created"),
		},
		{
			Keys:    bson.D{{Key: "deleted_at", Value: 1}},
			Options: options.Index().SetName("deleted_at").SetSparse(true),
		},
	}
	if _, err := a.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create dish indexes: %w", err)
	}
	return nil
}

// Create inserts a new dish document and backfills the generated id.
func (a *DishAdapter) Create(ctx context.Context, dish *domain.Dish) error {
	if dish.Ratings == nil {
		dish.Ratings = []int{}
	}
	if dish.LikedBy == nil {
		dish.LikedBy = []primitive.ObjectID{}
	}
	dish.CreatedAt = time.Now().UTC()

	res, err := a.coll.InsertOne(ctx, dish)
	if err != nil {
		return fmt.Errorf("failed to create dish: %w", err)
	}
	dish.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID returns the dish, or (nil, nil) when absent.
func (a *DishAdapter) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Dish, error) {
	var d domain.Dish
	if err := a.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dish: %w", err)
	}
	return &d, nil
}

// ListByCreator returns the creator's dishes, soft-deleted ones
// included so the owner can still see what is pending deletion.
func (a *DishAdapter) ListByCreator(ctx context.Context, creatorID primitive.ObjectID, limit int) ([]*domain.Dish, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return a.list(ctx, bson.M{"creator_id": creatorID}, opts)
}

// ListActive returns non-deleted dishes, newest first.
func (a *DishAdapter) ListActive(ctx context.Context, limit, offset int) ([]*domain.Dish, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	return a.list(ctx, bson.M{"deleted_at": bson.M{"$exists": false}}, opts)
}

func (a *DishAdapter) list(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Dish, error) {
	cursor, err := a.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	defer cursor.Close(ctx)

	dishes := []*domain.Dish{}
	for cursor.Next(ctx) {
		var d domain.Dish
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode dish: %w", err)
		}
		dishes = append(dishes, &d)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("dish cursor failed: %w", err)
	}
	return dishes, nil
}

// =============================================================================
// Ratings
// =============================================================================

// AppendRating pushes one value onto the authoritative rating list.
func (a *DishAdapter) AppendRating(ctx context.Context, id primitive.ObjectID, value int) error {
	res, err := a.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"ratings": value}},
	)
	if err != nil {
		return fmt.Errorf("failed to append rating: %w", err)
	}
	if res.MatchedCount == 0 {
		return out.ErrNotFound
	}
	return nil
}

// RecomputeRating derives the average and count from the rating list
// with a store-side aggregation, then sets the scalar fields. A
// concurrent append between the read and the set only delays
// convergence: that append's own recompute sees the full list.
func (a *DishAdapter) RecomputeRating(ctx context.Context, id primitive.ObjectID) (float64, int, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"_id": id}}},
		bson.D{{Key: "$project", Value: bson.M{
			"avg":   bson.M{"$avg": "$ratings"},
			"count": bson.M{"$size": "$ratings"},
		}}},
	}

	cursor, err := a.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var row struct {
		Avg   *float64 `bson:"avg"`
		Count int      `bson:"count"`
	}
	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return 0, 0, fmt.Errorf("rating aggregation cursor failed: %w", err)
		}
		return 0, 0, out.ErrNotFound
	}
	if err := cursor.Decode(&row); err != nil {
		return 0, 0, fmt.Errorf("failed to decode rating aggregation: %w", err)
	}

	avg := 0.0
	if row.Avg != nil {
		avg = *row.Avg
	}

	_, err = a.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"average_rating": avg, "rating_count": row.Count}},
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to set rating scalars: %w", err)
	}
	return avg, row.Count, nil
}

// =============================================================================
// Likes
// =============================================================================
//
// Membership check, set mutation and counter change in one conditional
// update, so like_count always equals len(liked_by).

func (a *DishAdapter) AddLike(ctx context.Context, id, accountID primitive.ObjectID) (bool, error) {
	res, err := a.coll.UpdateOne(ctx,
		bson.M{"_id": id, "liked_by": bson.M{"$ne": accountID}},
		bson.M{
			"$addToSet": bson.M{"liked_by": accountID},
			"$inc":      bson.M{"like_count": 1},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to add like: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (a *DishAdapter) RemoveLike(ctx context.Context, id, accountID primitive.ObjectID) (bool, error) {
	res, err := a.coll.UpdateOne(ctx,
		bson.M{"_id": id, "liked_by": accountID},
		bson.M{
			"$pull": bson.M{"liked_by": accountID},
			"$inc":  bson.M{"like_count": -1},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove like: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// =============================================================================
// Retention
// =============================================================================

// SoftDelete stamps the dish deleted. Conditional on not already being
// deleted so a repeat delete does not push the retention horizon out.
func (a *DishAdapter) SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := a.coll.UpdateOne(ctx,
		bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"deleted_at": at}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete dish: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// ListExpired selects dishes soft-deleted strictly before the cutoff.
func (a *DishAdapter) ListExpired(ctx context.Context, cutoff time.Time) ([]*domain.Dish, error) {
	return a.list(ctx, bson.M{"deleted_at": bson.M{"$lt": cutoff}}, options.Find())
}

// Delete permanently removes the dish document.
func (a *DishAdapter) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := a.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete dish: %w", err)
	}
	return nil
}

// Interface compliance
var _ out.DishRepository = (*DishAdapter)(nil)
