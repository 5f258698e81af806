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
)

const collectionRecipes = "recipes"

// RecipeAdapter implements out.RecipeRepository using MongoDB.
type RecipeAdapter struct {
	coll *mongo.Collection
}

// NewRecipeAdapter creates a new MongoDB recipe adapter.
func NewRecipeAdapter(db *mongo.Database) *RecipeAdapter {
	return &RecipeAdapter{coll: db.Collection(collectionRecipes)}
}

// Create inserts a new recipe document and backfills the generated id.
func (a *RecipeAdapter) Create(ctx context.Context, recipe *domain.Recipe) error {
	if recipe.Ingredients == nil {
		recipe.Ingredients = []string{}
	}
	if recipe.Steps == nil {
		recipe.Steps = []string{}
	}
	recipe.CreatedAt = time.Now().UTC()

	res, err := a.coll.InsertOne(ctx, recipe)
	if err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	recipe.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByDish returns the dish's recipe, or (nil, nil) when absent.
func (a *RecipeAdapter) GetByDish(ctx context.Context, dishID primitive.ObjectID) (*domain.Recipe, error) {
	var r domain.Recipe
	if err := a.coll.FindOne(ctx, bson.M{"dish_id": dishID}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &r, nil
}

// DeleteByDish removes all recipes belonging to a dish.
func (a *RecipeAdapter) DeleteByDish(ctx context.Context, dishID primitive.ObjectID) (int64, error) {
	res, err := a.coll.DeleteMany(ctx, bson.M{"dish_id": dishID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete recipes: %w", err)
	}
	return res.DeletedCount, nil
}

// Interface compliance
var _ out.RecipeRepository = (*RecipeAdapter)(nil)
