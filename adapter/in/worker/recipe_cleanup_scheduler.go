// Package worker implements background schedulers.
package worker

import (
	"context"
	"os"
	"time"

	"recipe_server/core/service/cleanup"

	"github.com/rs/zerolog"
)

// =============================================================================
// CleanupScheduler
// =============================================================================
//
// Runs the retention cleanup once per day at the configured local
// hour. The first pass fires immediately on start so dishes that
// expired while the process was down are not left waiting a full day.

type CleanupScheduler struct {
	cleanupService *cleanup.Service
	hour           int
	runOnStart     bool
	log            zerolog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	now            func() time.Time
}

// NewCleanupScheduler creates a new cleanup scheduler firing daily at
// the given hour (0-23).
func NewCleanupScheduler(cleanupService *cleanup.Service, hour int) *CleanupScheduler {
	if hour < 0 || hour > 23 {
		hour = 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupScheduler{
		cleanupService: cleanupService,
		hour:           hour,
		runOnStart:     true,
		log:            zerolog.New(os.Stdout).With().Timestamp().Str("component", "cleanup-scheduler").Logger(),
		ctx:            ctx,
		cancel:         cancel,
		now:            time.Now,
	}
}

// Start starts the scheduler loop.
func (s *CleanupScheduler) Start() {
	s.log.Info().Int("hour", s.hour).Msg("starting cleanup scheduler")
	go s.run()
}

// Stop stops the scheduler.
func (s *CleanupScheduler) Stop() {
	s.log.Info().Msg("stopping cleanup scheduler")
	s.cancel()
}

func (s *CleanupScheduler) run() {
	if s.runOnStart {
		s.runOnce()
	}

	for {
		wait := time.Until(s.nextRun(s.now()))
		timer := time.NewTimer(wait)

		select {
		case <-s.ctx.Done():
			timer.Stop()
			s.log.Info().Msg("cleanup scheduler stopped")
			return
		case <-timer.C:
			s.runOnce()
		}
	}
}

// nextRun returns the next occurrence of the configured hour strictly
// after now.
func (s *CleanupScheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func (s *CleanupScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	report, err := s.cleanupService.Run(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("cleanup run failed")
		return
	}

	event := s.log.Info().
		Int("dishes_deleted", report.DishesDeleted).
		Int("assets_deleted", report.AssetsDeleted).
		Int64("comments_deleted", report.CommentsDeleted).
		Int64("recipes_deleted", report.RecipesDeleted).
		Int("errors", len(report.Errors))
	if len(report.Errors) > 0 {
		event.Strs("error_samples", sample(report.Errors, 5))
	}
	event.Msg("cleanup run complete")
}

func sample(errs []string, n int) []string {
	if len(errs) <= n {
		return errs
	}
	return errs[:n]
}
