package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dish is the primary content item. Ratings live as the full value
// list on the document; AverageRating and RatingCount are derived
// scalars recomputed from that list after every append. LikedBy is the
// authoritative like set; LikeCount equals its cardinality at all
// times because both are mutated in one conditional update.
type Dish struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	CreatorID     primitive.ObjectID   `json:"creator_id" bson:"creator_id"`
	Name          string               `json:"name" bson:"name"`
	Description   string               `json:"description" bson:"description"`
	CookingTime   int                  `json:"cooking_time" bson:"cooking_time"`
	Difficulty    string               `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	ImageURL      string               `json:"image_url,omitempty" bson:"image_url,omitempty"`
	AssetID       string               `json:"-" bson:"asset_id,omitempty"`
	Ratings       []int                `json:"-" bson:"ratings"`
	AverageRating float64              `json:"average_rating" bson:"average_rating"`
	RatingCount   int                  `json:"rating_count" bson:"rating_count"`
	LikedBy       []primitive.ObjectID `json:"-" bson:"liked_by"`
	LikeCount     int                  `json:"like_count" bson:"like_count"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	DeletedAt     *time.Time           `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
}

// SoftDeleted reports whether the dish is pending permanent deletion.
func (d *Dish) SoftDeleted() bool {
	return d.DeletedAt != nil
}

// Recipe is the preparation steps document belonging to a dish.
type Recipe struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DishID      primitive.ObjectID `json:"dish_id" bson:"dish_id"`
	CreatorID   primitive.ObjectID `json:"creator_id" bson:"creator_id"`
	Ingredients []string           `json:"ingredients" bson:"ingredients"`
	Steps       []string           `json:"steps" bson:"steps"`
	Difficulty  string             `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

// Comment is a dependent document of a dish, removed with it by the
// retention cleanup.
type Comment struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DishID    primitive.ObjectID `json:"dish_id" bson:"dish_id"`
	AuthorID  primitive.ObjectID `json:"author_id" bson:"author_id"`
	Body      string             `json:"body" bson:"body"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// AssetRef identifies an uploaded asset in the external store.
type AssetRef struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}
