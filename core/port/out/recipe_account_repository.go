// Package out defines the outbound ports of the application core.
// Every port method that touches the store is a potentially blocking
// call; implementations must honor context cancellation.
package out

import (
	"context"
	"errors"

	"recipe_server/core/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sentinel errors surfaced by repositories. Services translate these
// into the application error taxonomy.
var (
	ErrNotFound    = errors.New("not found")
	ErrHandleTaken = errors.New("handle already taken")
	ErrDuplicate   = errors.New("duplicate entry")
)

// AccountRepository persists canonical account documents.
type AccountRepository interface {
	EnsureIndexes(ctx context.Context) error

	// UpsertByEmail performs the insert-if-absent, else touch-last-login
	// operation keyed by email as one atomic update. It returns the
	// stored account and whether this call performed the insert. A
	// uniqueness rejection of the candidate handle is reported as
	// ErrHandleTaken; the caller retries with a different handle rather
	// than pre-checking existence.
	UpsertByEmail(ctx context.Context, acc *domain.Account) (*domain.Account, bool, error)

	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// UpdateFields applies a partial profile update. A handle collision
	// with another account is reported as ErrHandleTaken.
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error

	// Legacy-schema access for the migration engine.
	LegacyByID(ctx context.Context, id primitive.ObjectID) (*domain.LegacyAccount, error)
	ListLegacy(ctx context.Context) ([]*domain.LegacyAccount, error)
	StripLegacyFields(ctx context.Context, id primitive.ObjectID) error
	CountAll(ctx context.Context) (int64, error)
	CountUnmigrated(ctx context.Context) (int64, error)
}
