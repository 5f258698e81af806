package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipe_server/core/domain"
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

func newFixture(retention time.Duration) *fixture {
	f := &fixture{
		dishes:   memstore.NewDishStore(),
		recipes:  memstore.NewRecipeStore(),
		comments: memstore.NewCommentStore(),
		profiles: memstore.NewProfileStore(),
		assets:   memstore.NewAssetStore(),
	}
	f.svc = NewService(f.dishes, f.recipes, f.comments, f.profiles, f.assets, retention, 0)
	return f
}

// seedExpiredDish creates a dish soft-deleted `age` ago, with a
// comment, a recipe, a stored asset and a profile reference.
func (f *fixture) seedExpiredDish(t *testing.T, age time.Duration) *domain.Dish {
	t.Helper()
	ctx := context.Background()

	ref, err := f.assets.Upload(ctx, []byte("img"), "dishes")
	if err != nil {
		t.Fatalf("asset upload failed: %v", err)
	}

	dish := &domain.Dish{
		CreatorID: primitive.NewObjectID(),
		Name:      "expired",
		AssetID:   ref.ID,
		ImageURL:  ref.URL,
	}
	if err := f.dishes.Create(ctx, dish); err != nil {
		t.Fatalf("dish create failed: %v", err)
	}
	deletedAt := time.Now().UTC().Add(-age)
	dish.DeletedAt = &deletedAt
	if _, err := f.dishes.SoftDelete(ctx, dish.ID, deletedAt); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	if err := f.comments.Create(ctx, &domain.Comment{DishID: dish.ID, Body: "tasty"}); err != nil {
		t.Fatalf("comment create failed: %v", err)
	}
	if err := f.recipes.Create(ctx, &domain.Recipe{DishID: dish.ID, Steps: []string{"cook"}}); err != nil {
		t.Fatalf("recipe create failed: %v", err)
	}

	fan := primitive.NewObjectID()
	if _, err := f.profiles.AddFavorite(ctx, fan, dish.ID); err != nil {
		t.Fatalf("add favorite failed: %v", err)
	}
	return dish
}

func TestRunPurgesExpiredDishes(t *testing.T) {
	f := newFixture(7 * 24 * time.Hour)
	dish := f.seedExpiredDish(t, 8*24*time.Hour)

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.DishesDeleted != 1 {
		t.Errorf("expected 1 dish deleted, got %d", report.DishesDeleted)
	}
	if report.AssetsDeleted != 1 {
		t.Errorf("expected 1 asset deleted, got %d", report.AssetsDeleted)
	}
	if report.CommentsDeleted != 1 || report.RecipesDeleted != 1 {
		t.Errorf("expected 1 comment and 1 recipe deleted, got %d/%d", report.CommentsDeleted, report.RecipesDeleted)
	}
	if len(report.Errors) != 0 {
		t.Errorf("expected no errors, got %v", report.Errors)
	}
	if f.dishes.Has(dish.ID) {
		t.Error("dish document must be gone")
	}

	comments, _ := f.comments.ListByDish(context.Background(), dish.ID, 10)
	if len(comments) != 0 {
		t.Errorf("expected comments gone, got %d", len(comments))
	}
}

func TestRunRespectsRetentionBoundary(t *testing.T) {
	f := newFixture(7 * 24 * time.Hour)
	fresh := f.seedExpiredDish(t, 6*24*time.Hour)
	expired := f.seedExpiredDish(t, 8*24*time.Hour)

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.DishesDeleted != 1 {
		t.Errorf("expected only the expired dish deleted, got %d", report.DishesDeleted)
	}
	if !f.dishes.Has(fresh.ID) {
		t.Error("dish inside the retention window must survive")
	}
	if f.dishes.Has(expired.ID) {
		t.Error("dish past the retention window must be deleted")
	}
}

func TestRunAssetFailureStillDeletesDish(t *testing.T) {
	f := newFixture(time.Hour)
	dish := f.seedExpiredDish(t, 2*time.Hour)
	f.assets.FailDelete[dish.AssetID] = errors.New("asset store down")

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.DishesDeleted != 1 {
		t.Errorf("asset failure must not block the dish delete, got %d deleted", report.DishesDeleted)
	}
	if report.AssetsDeleted != 0 {
		t.Errorf("expected 0 assets deleted, got %d", report.AssetsDeleted)
	}
	if len(report.Errors) != 1 {
		t.Errorf("expected the asset failure recorded, got %v", report.Errors)
	}
	if f.dishes.Has(dish.ID) {
		t.Error("dish must be deleted despite the asset failure")
	}
}

func TestRunDependentFailureKeepsDish(t *testing.T) {
	f := newFixture(time.Hour)
	dish := f.seedExpiredDish(t, 2*time.Hour)
	f.comments.DeleteErr = errors.New("comments collection down")

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.DishesDeleted != 0 {
		t.Errorf("expected 0 dishes deleted, got %d", report.DishesDeleted)
	}
	if len(report.Errors) != 1 {
		t.Errorf("expected 1 error recorded, got %v", report.Errors)
	}
	if !f.dishes.Has(dish.ID) {
		t.Error("dish must stay selectable for the next run")
	}

	// Next healthy run finishes the job.
	f.comments.DeleteErr = nil
	report, err = f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if report.DishesDeleted != 1 {
		t.Errorf("expected the retried dish deleted, got %d", report.DishesDeleted)
	}
}

func TestRunScrubsProfileReferences(t *testing.T) {
	f := newFixture(time.Hour)
	dish := f.seedExpiredDish(t, 2*time.Hour)

	fan := primitive.NewObjectID()
	_, _ = f.profiles.AddCooked(context.Background(), fan, dish.ID, 50)

	if _, err := f.svc.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	activity, _ := f.profiles.Activity(context.Background(), fan)
	if len(activity.CookedDishes) != 0 {
		t.Errorf("expected cooked reference scrubbed, got %v", activity.CookedDishes)
	}
}

func TestRunGuardsAgainstOverlap(t *testing.T) {
	f := newFixture(time.Hour)
	for i := 0; i < 3; i++ {
		f.seedExpiredDish(t, 2*time.Hour)
	}
	f.svc.batchWait = 50 * time.Millisecond

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := f.svc.Run(context.Background())
		done <- err
	}()

	<-started
	time.Sleep(20 * time.Millisecond)
	_, err := f.svc.Run(context.Background())
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("expected code %s for overlapping run, got %v", apperr.CodeConflict, err)
	}

	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// The guard clears once the run finishes.
	if _, err := f.svc.Run(context.Background()); err != nil {
		t.Errorf("run after completion failed: %v", err)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	f := newFixture(time.Hour)
	for i := 0; i < 5; i++ {
		f.seedExpiredDish(t, 2*time.Hour)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.svc.Run(ctx)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.DishesDeleted != 0 {
		t.Errorf("cancelled run must not purge, got %d deleted", report.DishesDeleted)
	}
	if len(report.Errors) == 0 {
		t.Error("expected the interruption recorded in the report")
	}
}
