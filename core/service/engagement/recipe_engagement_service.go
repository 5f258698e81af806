// Package engagement implements dish content and the aggregation
// engine for ratings and likes.
package engagement

import (
	"context"
	"errors"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"
	"recipe_server/pkg/apperr"
	"recipe_server/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service implements dish lifecycle and engagement aggregation. Rating
// appends go to the authoritative value list first; the derived
// average and count are then recomputed store-side from the full list,
// so concurrent ratings converge to the true mean instead of drifting
// through read-modify-write interleavings.
type Service struct {
	dishRepo    out.DishRepository
	recipeRepo  out.RecipeRepository
	commentRepo out.CommentRepository
	profileRepo out.ProfileRepository
	assetStore  out.AssetStore
}

// NewService creates a new engagement service.
func NewService(
	dishRepo out.DishRepository,
	recipeRepo out.RecipeRepository,
	commentRepo out.CommentRepository,
	profileRepo out.ProfileRepository,
	assetStore out.AssetStore,
) *Service {
	return &Service{
		dishRepo:    dishRepo,
		recipeRepo:  recipeRepo,
		commentRepo: commentRepo,
		profileRepo: profileRepo,
		assetStore:  assetStore,
	}
}

// =============================================================================
// Dish Lifecycle
// =============================================================================

// CreateDishInput carries dish creation parameters.
type CreateDishInput struct {
	Name        string
	Description string
	CookingTime int
	Difficulty  string
	Image       []byte
	Ingredients []string
	Steps       []string
}

// CreateDish creates a dish, optionally uploading its image and
// creating the preparation recipe, then tracks it on the creator's
// activity profile.
func (s *Service) CreateDish(ctx context.Context, creatorID primitive.ObjectID, input CreateDishInput) (*domain.Dish, error) {
	if input.Name == "" {
		return nil, apperr.InvalidInput("name", "must not be empty")
	}
	if input.CookingTime < 0 {
		return nil, apperr.InvalidInput("cooking_time", "must not be negative")
	}

	dish := &domain.Dish{
		CreatorID:   creatorID,
		Name:        input.Name,
		Description: input.Description,
		CookingTime: input.CookingTime,
		Difficulty:  input.Difficulty,
	}

	if len(input.Image) > 0 && s.assetStore != nil {
		ref, err := s.assetStore.Upload(ctx, input.Image, "dishes")
		if err != nil {
			return nil, apperr.StoreUnavailable("upload dish image", err)
		}
		dish.ImageURL = ref.URL
		dish.AssetID = ref.ID
	}

	if err := s.dishRepo.Create(ctx, dish); err != nil {
		return nil, apperr.StoreUnavailable("create dish", err)
	}

	if len(input.Ingredients) > 0 || len(input.Steps) > 0 {
		recipe := &domain.Recipe{
			DishID:      dish.ID,
			CreatorID:   creatorID,
			Ingredients: input.Ingredients,
			Steps:       input.Steps,
			Difficulty:  input.Difficulty,
		}
		if err := s.recipeRepo.Create(ctx, recipe); err != nil {
			return nil, apperr.StoreUnavailable("create recipe", err)
		}
		if err := s.profileRepo.TrackCreatedRecipe(ctx, creatorID, recipe.ID); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("failed to track created recipe")
		}
	}

	if err := s.profileRepo.TrackCreatedDish(ctx, creatorID, dish.ID); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("failed to track created dish")
	}
	return dish, nil
}

// GetDish returns a dish. Soft-deleted dishes stay visible to their
// creator only.
func (s *Service) GetDish(ctx context.Context, id, viewerID primitive.ObjectID) (*domain.Dish, error) {
	dish, err := s.dishRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.StoreUnavailable("get dish", err)
	}
	if dish == nil {
		return nil, apperr.NotFound("dish")
	}
	if dish.SoftDeleted() && dish.CreatorID != viewerID {
		return nil, apperr.NotFound("dish")
	}
	return dish, nil
}

// GetRecipe returns the preparation recipe of a dish.
func (s *Service) GetRecipe(ctx context.Context, dishID primitive.ObjectID) (*domain.Recipe, error) {
	recipe, err := s.recipeRepo.GetByDish(ctx, dishID)
	if err != nil {
		return nil, apperr.StoreUnavailable("get recipe", err)
	}
	if recipe == nil {
		return nil, apperr.NotFound("recipe")
	}
	return recipe, nil
}

// ListDishes returns active dishes, newest first.
func (s *Service) ListDishes(ctx context.Context, limit, offset int) ([]*domain.Dish, error) {
	dishes, err := s.dishRepo.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, apperr.StoreUnavailable("list dishes", err)
	}
	return dishes, nil
}

// ListByCreator returns a creator's dishes including soft-deleted ones
// when the viewer is the creator.
func (s *Service) ListByCreator(ctx context.Context, creatorID, viewerID primitive.ObjectID, limit int) ([]*domain.Dish, error) {
	dishes, err := s.dishRepo.ListByCreator(ctx, creatorID, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable("list dishes", err)
	}
	if creatorID == viewerID {
		return dishes, nil
	}
	visible := make([]*domain.Dish, 0, len(dishes))
	for _, d := range dishes {
		if !d.SoftDeleted() {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// DeleteDish soft-deletes a dish. Only the creator may delete; the
// document survives until the retention horizon passes.
func (s *Service) DeleteDish(ctx context.Context, id, callerID primitive.ObjectID) error {
	dish, err := s.dishRepo.GetByID(ctx, id)
	if err != nil {
		return apperr.StoreUnavailable("get dish", err)
	}
	if dish == nil {
		return apperr.NotFound("dish")
	}
	if dish.CreatorID != callerID {
		return apperr.PermissionDenied("only the creator may delete a dish")
	}
	if dish.SoftDeleted() {
		return nil
	}

	if _, err := s.dishRepo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		return apperr.StoreUnavailable("delete dish", err)
	}
	return nil
}

// =============================================================================
// Ratings
// =============================================================================

// Rate appends a rating value to the dish and recomputes the derived
// average and count from the full list.
func (s *Service) Rate(ctx context.Context, dishID primitive.ObjectID, value int) (float64, int, error) {
	if value < 1 || value > 5 {
		return 0, 0, apperr.InvalidInput("rating", "must be between 1 and 5")
	}

	if err := s.dishRepo.AppendRating(ctx, dishID, value); err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return 0, 0, apperr.NotFound("dish")
		}
		return 0, 0, apperr.StoreUnavailable("append rating", err)
	}

	avg, count, err := s.dishRepo.RecomputeRating(ctx, dishID)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return 0, 0, apperr.NotFound("dish")
		}
		return 0, 0, apperr.StoreUnavailable("recompute rating", err)
	}
	return avg, count, nil
}

// =============================================================================
// Likes
// =============================================================================

// Like adds the account to the dish's like set. Already-liked is a
// reported no-op, never a double count.
func (s *Service) Like(ctx context.Context, dishID, accountID primitive.ObjectID) (bool, error) {
	changed, err := s.dishRepo.AddLike(ctx, dishID, accountID)
	if err != nil {
		return false, apperr.StoreUnavailable("like dish", err)
	}
	return changed, nil
}

// Unlike removes the account from the dish's like set.
func (s *Service) Unlike(ctx context.Context, dishID, accountID primitive.ObjectID) (bool, error) {
	changed, err := s.dishRepo.RemoveLike(ctx, dishID, accountID)
	if err != nil {
		return false, apperr.StoreUnavailable("unlike dish", err)
	}
	return changed, nil
}

// =============================================================================
// Comments
// =============================================================================

// AddComment creates a comment on an active dish.
func (s *Service) AddComment(ctx context.Context, dishID, authorID primitive.ObjectID, body string) (*domain.Comment, error) {
	if body == "" {
		return nil, apperr.InvalidInput("body", "must not be empty")
	}

	dish, err := s.dishRepo.GetByID(ctx, dishID)
	if err != nil {
		return nil, apperr.StoreUnavailable("get dish", err)
	}
	if dish == nil || dish.SoftDeleted() {
		return nil, apperr.NotFound("dish")
	}

	comment := &domain.Comment{
		DishID:   dishID,
		AuthorID: authorID,
		Body:     body,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, apperr.StoreUnavailable("create comment", err)
	}
	return comment, nil
}

// ListComments returns a dish's comments, newest first.
func (s *Service) ListComments(ctx context.Context, dishID primitive.ObjectID, limit int) ([]*domain.Comment, error) {
	comments, err := s.commentRepo.ListByDish(ctx, dishID, limit)
	if err != nil {
		return nil, apperr.StoreUnavailable("list comments", err)
	}
	return comments, nil
}
