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

const collectionComments = "comments"

// CommentAdapter implements out.CommentRepository using MongoDB.
type CommentAdapter struct {
	coll *mongo.Collection
}

// NewCommentAdapter creates a new MongoDB comment adapter.
func NewCommentAdapter(db *mongo.Database) *CommentAdapter {
	return &CommentAdapter{coll: db.Collection(collectionComments)}
}

// Create inserts a new comment document and backfills the generated id.
func (a *CommentAdapter) Create(ctx context.Context, comment *domain.Comment) error {
	comment.CreatedAt = time.Now().UTC()

	res, err := a.coll.InsertOne(ctx, comment)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	comment.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// ListByDish returns the dish's comments, newest first.
func (a *CommentAdapter) ListByDish(ctx context.Context, dishID primitive.ObjectID, limit int) ([]*domain.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := a.coll.Find(ctx, bson.M{"dish_id": dishID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []*domain.Comment{}
	for cursor.Next(ctx) {
		var c domain.Comment
		if err := cursor.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode comment: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("comment cursor failed: %w", err)
	}
	return comments, nil
}

// DeleteByDish removes all comments belonging to a dish.
func (a *CommentAdapter) DeleteByDish(ctx context.Context, dishID primitive.ObjectID) (int64, error) {
	res, err := a.coll.DeleteMany(ctx, bson.M{"dish_id": dishID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments: %w", err)
	}
	return res.DeletedCount, nil
}

// Interface compliance
var _ out.CommentRepository = (*CommentAdapter)(nil)
