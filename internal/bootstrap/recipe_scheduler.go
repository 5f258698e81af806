package bootstrap

import (
	"recipe_server/adapter/in/worker"
	"recipe_server/config"
	"recipe_server/pkg/logger"
)

// Scheduler bundles the background workers of the service.
type Scheduler struct {
	cleanup *worker.CleanupScheduler
}

// NewScheduler builds the background scheduler from fresh
// dependencies.
func NewScheduler(cfg *config.Config) (*Scheduler, func(), error) {
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "recipeshare-scheduler",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	s := &Scheduler{}
	if cfg.CleanupEnabled {
		s.cleanup = worker.NewCleanupScheduler(deps.Cleanup, cfg.CleanupHour)
	} else {
		logger.Info("retention cleanup disabled by configuration")
	}

	return s, cleanup, nil
}

// Start starts all enabled workers.
func (s *Scheduler) Start() {
	if s.cleanup != nil {
		s.cleanup.Start()
	}
}

// Stop stops all workers.
func (s *Scheduler) Stop() {
	if s.cleanup != nil {
		s.cleanup.Stop()
	}
}
