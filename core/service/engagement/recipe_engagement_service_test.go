package engagement

import (
	"context"
	"math"
	"sync"
	"testing"

	"recipe_server/internal/memstore"
	"recipe_server/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	svc      *Service
	dishes   *memstore.DishStore
	recipes  *memstore.RecipeStore
	comments *memstore.CommentStore
	profiles *memstore.ProfileStore
	assets   *memstore.AssetStore
}

func newFixture() *fixture {
	f := &fixture{
		dishes:   memstore.NewDishStore(),
		recipes:  memstore.NewRecipeStore(),
		comments: memstore.NewCommentStore(),
		profiles: memstore.NewProfileStore(),
		assets:   memstore.NewAssetStore(),
	}
	f.svc = NewService(f.dishes, f.recipes, f.comments, f.profiles, f.assets)
	return f
}

func TestCreateDishWithRecipeAndImage(t *testing.T) {
	f := newFixture()
	creator := primitive.NewObjectID()

	dish, err := f.svc.CreateDish(context.Background(), creator, CreateDishInput{
		Name:        "Bibimbap",
		Description: "Mixed rice bowl",
		CookingTime: 30,
		Difficulty:  "medium",
		Image:       []byte("fake-image-bytes"),
		Ingredients: []string{"rice", "vegetables", "gochujang"},
		Steps:       []string{"cook rice", "mix everything"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if dish.ID.IsZero() {
		t.Error("expected dish id to be assigned")
	}
	if dish.ImageURL == "" || dish.AssetID == "" {
		t.Errorf("expected image upload to populate asset fields, got url=%q id=%q", dish.ImageURL, dish.AssetID)
	}

	recipe, err := f.svc.GetRecipe(context.Background(), dish.ID)
	if err != nil {
		t.Fatalf("get recipe failed: %v", err)
	}
	if len(recipe.Ingredients) != 3 || len(recipe.Steps) != 2 {
		t.Errorf("unexpected recipe contents: %+v", recipe)
	}

	activity, _ := f.profiles.Activity(context.Background(), creator)
	if activity == nil || len(activity.CreatedDishes) != 1 || len(activity.CreatedRecipes) != 1 {
		t.Errorf("expected created dish and recipe tracked on activity profile, got %+v", activity)
	}
}

func TestCreateDishValidation(t *testing.T) {
	f := newFixture()
	creator := primitive.NewObjectID()

	_, err := f.svc.CreateDish(context.Background(), creator, CreateDishInput{Name: ""})
	if !apperr.IsCode(err, apperr.CodeInvalidInput) {
		t.Errorf("expected code %s for empty name, got %v", apperr.CodeInvalidInput, err)
	}

	_, err = f.svc.CreateDish(context.Background(), creator, CreateDishInput{Name: "x", CookingTime: -1})
	if !apperr.IsCode(err, apperr.CodeInvalidInput) {
		t.Errorf("expected code %s for negative cooking time, got %v", apperr.CodeInvalidInput, err)
	}
}

func TestRateRecomputesFromFullList(t *testing.T) {
	f := newFixture()
	dish, _ := f.svc.CreateDish(context.Background(), primitive.NewObjectID(), CreateDishInput{Name: "Soup"})

	values := []int{5, 3, 4}
	var avg float64
	var count int
	var err error
	for _, v := range values {
		avg, count, err = f.svc.Rate(context.Background(), dish.ID, v)
		if err != nil {
			t.Fatalf("rate %d failed: %v", v, err)
		}
	}

	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
	if math.Abs(avg-4.0) > 1e-9 {
		t.Errorf("expected average 4.0, got %f", avg)
	}
}

func TestRateConcurrent(t *testing.T) {
	f := newFixture()
	dish, _ := f.svc.CreateDish(context.Background(), primitive.NewObjectID(), CreateDishInput{Name: "Curry"})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, _, err := f.svc.Rate(context.Background(), dish.ID, 1+i%5); err != nil {
				t.Errorf("concurrent rate failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	avg, count, err := f.dishes.RecomputeRating(context.Background(), dish.ID)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if count != n {
		t.Errorf("expected %d ratings, got %d", n, count)
	}
	// 4 full cycles of 1..5 mean exactly 3.0.
	if math.Abs(avg-3.0) > 1e-9 {
		t.Errorf("expected converged average 3.0, got %f", avg)
	}
}

func TestRateValidation(t *testing.T) {
	f := newFixture()
	dish, _ := f.svc.CreateDish(context.Background(), primitive.NewObjectID(), CreateDishInput{Name: "Stew"})

	for _, v := range []int{0, 6, -1} {
		if _, _, err := f.svc.Rate(context.Background(), dish.ID, v); !apperr.IsCode(err, apperr.CodeInvalidInput) {
			t.Errorf("rating %d: expected code %s, got %v", v, apperr.CodeInvalidInput, err)
		}
	}

	_, _, err := f.svc.Rate(context.Background(), primitive.NewObjectID(), 3)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected code %s for unknown dish, got %v", apperr.CodeNotFound, err)
	}
}

func TestLikeIsIdempotent(t *testing.T) {
	f := newFixture()
	dish, _ := f.svc.CreateDish(context.Background(), primitive.NewObjectID(), CreateDishInput{Name: "Tacos"})
	account := primitive.NewObjectID()

	changed, err := f.svc.Like(context.Background(), dish.ID, account)
	if err != nil || !changed {
		t.Fatalf("first like: changed=%v err=%v", changed, err)
	}
	changed, err = f.svc.Like(context.Background(), dish.ID, account)
	if err != nil {
		t.Fatalf("second like failed: %v", err)
	}
	if changed {
		t.Error("second like must report no change")
	}

	stored, _ := f.dishes.GetByID(context.Background(), dish.ID)
	if stored.LikeCount != 1 || len(stored.LikedBy) != 1 {
		t.Errorf("counter must match set cardinality, got count=%d len=%d", stored.LikeCount, len(stored.LikedBy))
	}

	changed, err = f.svc.Unlike(context.Background(), dish.ID, account)
	if err != nil || !changed {
		t.Fatalf("unlike: changed=%v err=%v", changed, err)
	}
	changed, _ = f.svc.Unlike(context.Background(), dish.ID, account)
	if changed {
		t.Error("repeat unlike must report no change")
	}

	stored, _ = f.dishes.GetByID(context.Background(), dish.ID)
	if stored.LikeCount != 0 {
		t.Errorf("expected like count 0, got %d", stored.LikeCount)
	}
}

func TestDeleteDishCreatorOnly(t *testing.T) {
	f := newFixture()
	creator := primitive.NewObjectID()
	dish, _ := f.svc.CreateDish(context.Background(), creator, CreateDishInput{Name: "Pho"})

	err := f.svc.DeleteDish(context.Background(), dish.ID, primitive.NewObjectID())
	if !apperr.IsCode(err, apperr.CodePermissionDenied) {
		t.Errorf("expected code %s, got %v", apperr.CodePermissionDenied, err)
	}

	if err := f.svc.DeleteDish(context.Background(), dish.ID, creator); err != nil {
		t.Fatalf("creator delete failed: %v", err)
	}
	// Deleting again is a no-op, not an error.
	if err := f.svc.DeleteDish(context.Background(), dish.ID, creator); err != nil {
		t.Errorf("repeat delete failed: %v", err)
	}
}

func TestSoftDeletedDishVisibility(t *testing.T) {
	f := newFixture()
	creator := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	dish, _ := f.svc.CreateDish(context.Background(), creator, CreateDishInput{Name: "Ramen"})

	if err := f.svc.DeleteDish(context.Background(), dish.ID, creator); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := f.svc.GetDish(context.Background(), dish.ID, creator); err != nil {
		t.Errorf("creator must still see the soft-deleted dish: %v", err)
	}
	if _, err := f.svc.GetDish(context.Background(), dish.ID, stranger); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("stranger must get %s, got %v", apperr.CodeNotFound, err)
	}

	active, _ := f.svc.ListDishes(context.Background(), 20, 0)
	for _, d := range active {
		if d.ID == dish.ID {
			t.Error("soft-deleted dish must not appear in the active list")
		}
	}

	own, _ := f.svc.ListByCreator(context.Background(), creator, creator, 20)
	if len(own) != 1 {
		t.Errorf("creator listing must include soft-deleted, got %d dishes", len(own))
	}
	others, _ := f.svc.ListByCreator(context.Background(), creator, stranger, 20)
	if len(others) != 0 {
		t.Errorf("stranger listing must hide soft-deleted, got %d dishes", len(others))
	}
}

func TestAddCommentRequiresActiveDish(t *testing.T) {
	f := newFixture()
	creator := primitive.NewObjectID()
	author := primitive.NewObjectID()
	dish, _ := f.svc.CreateDish(context.Background(), creator, CreateDishInput{Name: "Salad"})

	comment, err := f.svc.AddComment(context.Background(), dish.ID, author, "looks great")
	if err != nil {
		t.Fatalf("comment failed: %v", err)
	}
	if comment.ID.IsZero() {
		t.Error("expected comment id to be assigned")
	}

	if _, err := f.svc.AddComment(context.Background(), dish.ID, author, ""); !apperr.IsCode(err, apperr.CodeInvalidInput) {
		t.Errorf("expected code %s for empty body, got %v", apperr.CodeInvalidInput, err)
	}

	_ = f.svc.DeleteDish(context.Background(), dish.ID, creator)
	if _, err := f.svc.AddComment(context.Background(), dish.ID, author, "too late"); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected code %s on soft-deleted dish, got %v", apperr.CodeNotFound, err)
	}
}
