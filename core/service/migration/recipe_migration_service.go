// Package migration implements the legacy-schema to split-schema
// conversion of account documents.
package migration

import (
	"context"
	"fmt"
	"time"

	"recipe_server/core/domain"
	"recipe_server/core/port/out"
	"recipe_server/pkg/apperr"
	"recipe_server/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service converts legacy account documents, which still embed the
// social and activity arrays, into the split satellite schema. The
// order is fixed: build all four satellite payloads, upsert each, and
// only then strip the legacy fields off the account document. A crash
// between the upserts and the strip leaves the account migratable
// again, and the upserts are idempotent, so a re-run converges.
type Service struct {
	accountRepo out.AccountRepository
	profileRepo out.ProfileRepository
}

// NewService creates a new migration service.
func NewService(accountRepo out.AccountRepository, profileRepo out.ProfileRepository) *Service {
	return &Service{
		accountRepo: accountRepo,
		profileRepo: profileRepo,
	}
}

// MigrateAccount migrates one account. An already-migrated account is
// a reported no-op.
func (s *Service) MigrateAccount(ctx context.Context, accountID primitive.ObjectID) (bool, error) {
	legacy, err := s.accountRepo.LegacyByID(ctx, accountID)
	if err != nil {
		return false, apperr.StoreUnavailable("read account", err)
	}
	if legacy == nil {
		return false, apperr.NotFound("account")
	}
	if !legacy.NeedsMigration() {
		return false, nil
	}

	if err := s.migrate(ctx, legacy); err != nil {
		return false, err
	}
	return true, nil
}

// MigrateAll migrates every unmigrated account. One account's failure
// is recorded and never blocks the rest; the report carries the
// outcome of the whole run.
func (s *Service) MigrateAll(ctx context.Context) (*domain.MigrationReport, error) {
	accounts, err := s.accountRepo.ListLegacy(ctx)
	if err != nil {
		return nil, apperr.StoreUnavailable("list legacy accounts", err)
	}

	report := &domain.MigrationReport{
		Total:  len(accounts),
		Failed: []domain.MigrationFailure{},
	}

	for _, legacy := range accounts {
		if err := ctx.Err(); err != nil {
			return report, apperr.StoreUnavailable("migration interrupted", err)
		}
		if !legacy.NeedsMigration() {
			report.Skipped++
			continue
		}
		if err := s.migrate(ctx, legacy); err != nil {
			report.Failed = append(report.Failed, domain.MigrationFailure{
				AccountID: legacy.ID.Hex(),
				Reason:    err.Error(),
			})
			continue
		}
		report.Migrated++
	}

	logger.WithFields(map[string]any{
		"total":    report.Total,
		"migrated": report.Migrated,
		"skipped":  report.Skipped,
		"failed":   len(report.Failed),
	}).Info("bulk migration finished")
	return report, nil
}

// Status reports how much of the population still carries the legacy
// shape.
func (s *Service) Status(ctx context.Context) (*domain.MigrationStatus, error) {
	total, err := s.accountRepo.CountAll(ctx)
	if err != nil {
		return nil, apperr.StoreUnavailable("count accounts", err)
	}
	pending, err := s.accountRepo.CountUnmigrated(ctx)
	if err != nil {
		return nil, apperr.StoreUnavailable("count unmigrated accounts", err)
	}
	return &domain.MigrationStatus{
		Total:    total,
		Migrated: total - pending,
		Pending:  pending,
	}, nil
}

// migrate upserts the four satellite payloads for one legacy account,
// then strips the legacy fields.
func (s *Service) migrate(ctx context.Context, legacy *domain.LegacyAccount) error {
	accountID := legacy.ID

	social := &domain.SocialProfile{
		AccountID:      accountID,
		Followers:      orEmpty(legacy.Followers),
		Following:      orEmpty(legacy.Following),
		FollowerCount:  len(legacy.Followers),
		FollowingCount: len(legacy.Following),
	}
	if err := s.profileRepo.UpsertSocial(ctx, social); err != nil {
		return fmt.Errorf("social: %w", err)
	}

	activity := &domain.ActivityProfile{
		AccountID:      accountID,
		FavoriteDishes: orEmpty(legacy.FavoriteDishes),
		CookedDishes:   orEmpty(legacy.CookedDishes),
		CreatedDishes:  []primitive.ObjectID{},
		CreatedRecipes: orEmpty(legacy.Recipes),
		ViewHistory:    viewsFromLegacy(legacy.ViewedDishes),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.profileRepo.UpsertActivity(ctx, activity); err != nil {
		return fmt.Errorf("activity: %w", err)
	}

	notifications := &domain.NotificationProfile{
		AccountID:     accountID,
		Notifications: legacy.Notifications,
		UnreadCount:   countUnread(legacy.Notifications),
	}
	if notifications.Notifications == nil {
		notifications.Notifications = []domain.Notification{}
	}
	if err := s.profileRepo.UpsertNotifications(ctx, notifications); err != nil {
		return fmt.Errorf("notifications: %w", err)
	}

	preferences := domain.DefaultPreferenceProfile(accountID)
	if legacy.Reminders != nil {
		preferences.Reminders = legacy.Reminders
	}
	if err := s.profileRepo.UpsertPreferences(ctx, preferences); err != nil {
		return fmt.Errorf("preferences: %w", err)
	}

	// Strip last: until this succeeds the account still reads as
	// unmigrated and a re-run repeats the idempotent upserts above.
	if err := s.accountRepo.StripLegacyFields(ctx, accountID); err != nil {
		return fmt.Errorf("strip legacy fields: %w", err)
	}

	logger.WithField("account_id", accountID.Hex()).Info("account migrated")
	return nil
}

// viewsFromLegacy converts the legacy flat viewed-dish id list into
// typed view events. Names and timestamps were not stored in the
// legacy shape, so events carry the migration time.
func viewsFromLegacy(viewed []primitive.ObjectID) []domain.ViewEvent {
	events := make([]domain.ViewEvent, 0, len(viewed))
	now := time.Now().UTC()
	for _, id := range viewed {
		events = append(events, domain.ViewEvent{
			Type:     domain.ViewTypeDish,
			RefID:    id,
			ViewedAt: now,
		})
	}
	return events
}

func countUnread(notifications []domain.Notification) int {
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	return unread
}

func orEmpty(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
