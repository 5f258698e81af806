// Package cleanup implements the retention cleanup over soft-deleted
// dishes.
package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"
	"recipe_server/pkg/apperr"
	"recipe_server/pkg/logger"
)

// Service permanently removes dishes whose soft-delete timestamp has
// passed the retention horizon, together with their dependent
// documents and stored assets. Per-dish ordering is fixed: asset,
// comments, recipes, profile references, then the dish document
// itself, so a crash mid-dish leaves the dish selectable by the next
// run. Failures are accumulated in the report and never abort the run.
//
// The running guard is in-process only. Overlap between instances is
// harmless because every step is idempotent, just wasteful.
type Service struct {
	dishRepo    out.DishRepository
	recipeRepo  out.RecipeRepository
	commentRepo out.CommentRepository
	profileRepo out.ProfileRepository
	assetStore  out.AssetStore

	retention time.Duration
	batchWait time.Duration

	mu      sync.Mutex
	running bool
}

// NewService creates a new retention cleanup service.
func NewService(
	dishRepo out.DishRepository,
	recipeRepo out.RecipeRepository,
	commentRepo out.CommentRepository,
	profileRepo out.ProfileRepository,
	assetStore out.AssetStore,
	retention time.Duration,
	batchWait time.Duration,
) *Service {
	return &Service{
		dishRepo:    dishRepo,
		recipeRepo:  recipeRepo,
		commentRepo: commentRepo,
		profileRepo: profileRepo,
		assetStore:  assetStore,
		retention:   retention,
		batchWait:   batchWait,
	}
}

// Run performs one cleanup pass. A second Run while one is in flight
// returns Conflict instead of overlapping.
func (s *Service) Run(ctx context.Context) (*domain.CleanupReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, apperr.Conflict("cleanup already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	report := &domain.CleanupReport{
		Errors:    []string{},
		Cutoff:    time.Now().UTC().Add(-s.retention),
		StartedAt: time.Now().UTC(),
	}

	dishes, err := s.dishRepo.ListExpired(ctx, report.Cutoff)
	if err != nil {
		return nil, apperr.StoreUnavailable("list expired dishes", err)
	}

	for _, dish := range dishes {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("run interrupted: %v", err))
			break
		}
		s.purgeDish(ctx, dish, report)
		if s.batchWait > 0 {
			time.Sleep(s.batchWait)
		}
	}

	report.FinishedAt = time.Now().UTC()
	logger.WithFields(map[string]any{
		"dishes_deleted":   report.DishesDeleted,
		"assets_deleted":   report.AssetsDeleted,
		"comments_deleted": report.CommentsDeleted,
		"recipes_deleted":  report.RecipesDeleted,
		"errors":           len(report.Errors),
	}).Info("retention cleanup finished")
	return report, nil
}

// purgeDish removes one expired dish and its dependents. The asset
// delete is best-effort: an orphaned asset is recoverable offline, an
// orphaned dish document is user-visible, so the dish is removed even
// when its asset is not.
func (s *Service) purgeDish(ctx context.Context, dish *domain.Dish, report *domain.CleanupReport) {
	dishID := dish.ID.Hex()

	if dish.AssetID != "" && s.assetStore != nil {
		if err := s.assetStore.Delete(ctx, dish.AssetID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("dish %s: asset delete: %v", dishID, err))
		} else {
			report.AssetsDeleted++
		}
	}

	comments, err := s.commentRepo.DeleteByDish(ctx, dish.ID)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("dish %s: comment delete: %v", dishID, err))
		return
	}
	report.CommentsDeleted += comments

	recipes, err := s.recipeRepo.DeleteByDish(ctx, dish.ID)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("dish %s: recipe delete: %v", dishID, err))
		return
	}
	report.RecipesDeleted += recipes

	if _, err := s.profileRepo.PullDishRefs(ctx, dish.ID); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("dish %s: profile scrub: %v", dishID, err))
		return
	}

	if err := s.dishRepo.Delete(ctx, dish.ID); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("dish %s: dish delete: %v", dishID, err))
		return
	}
	report.DishesDeleted++
}
