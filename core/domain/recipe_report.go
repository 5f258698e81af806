package domain

import "time"

// MigrationFailure records one account the bulk migration could not
// convert. One account's failure never blocks another's migration.
type MigrationFailure struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
}

// MigrationReport is the aggregate result of a bulk migration run.
type MigrationReport struct {
	Total    int                `json:"total"`
	Migrated int                `json:"migrated"`
	Skipped  int                `json:"skipped"`
	Failed   []MigrationFailure `json:"failed"`
}

// MigrationStatus summarizes how much of the population still carries
// the legacy embedded shape.
type MigrationStatus struct {
	Total    int64 `json:"total"`
	Migrated int64 `json:"migrated"`
	Pending  int64 `json:"pending"`
}

// CleanupReport is the aggregate result of one retention cleanup run.
// Counts reflect only successes; every per-item failure is recorded in
// Errors instead of aborting the run.
type CleanupReport struct {
	DishesDeleted   int       `json:"dishes_deleted"`
	AssetsDeleted   int       `json:"assets_deleted"`
	CommentsDeleted int64     `json:"comments_deleted"`
	RecipesDeleted  int64     `json:"recipes_deleted"`
	Errors          []string  `json:"errors"`
	Cutoff          time.Time `json:"cutoff"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
