package out

import (
	"context"
	"time"

	"recipe_server/core/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DishRepository persists dish documents and carries the engagement
// primitives of the aggregation engine.
type DishRepository interface {
	EnsureIndexes(ctx context.Context) error

	Create(ctx context.Context, dish *domain.Dish) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Dish, error)
	ListByCreator(ctx context.Context, creatorID primitive.ObjectID, limit int) ([]*domain.Dish, error)
	ListActive(ctx context.Context, limit, offset int) ([]*domain.Dish, error)

	// AppendRating atomically appends one value to the dish's rating
	// list. The derived scalars are set separately by RecomputeRating.
	AppendRating(ctx context.Context, id primitive.ObjectID, value int) error

	// RecomputeRating derives average and count from the authoritative,
	// just-updated rating list via a store-side aggregation over the
	// document, then atomically sets the two scalar fields.
	RecomputeRating(ctx context.Context, id primitive.ObjectID) (avg float64, count int, err error)

	// AddLike/RemoveLike are single conditional updates combining the
	// set mutation with the counter change, gated on membership. The
	// boolean reports whether the document was modified.
	AddLike(ctx context.Context, id, accountID primitive.ObjectID) (bool, error)
	RemoveLike(ctx context.Context, id, accountID primitive.ObjectID) (bool, error)

	// SoftDelete marks the dish deleted; it stays owner-visible until
	// the retention horizon passes.
	SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)

	// ListExpired selects dishes whose soft-delete timestamp is strictly
	// older than the cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]*domain.Dish, error)

	// Delete permanently removes the dish document.
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// RecipeRepository persists the preparation documents of dishes.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *domain.Recipe) error
	GetByDish(ctx context.Context, dishID primitive.ObjectID) (*domain.Recipe, error)
	DeleteByDish(ctx context.Context, dishID primitive.ObjectID) (int64, error)
}

// CommentRepository persists dish comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByDish(ctx context.Context, dishID primitive.ObjectID, limit int) ([]*domain.Comment, error)
	DeleteByDish(ctx context.Context, dishID primitive.ObjectID) (int64, error)
}
