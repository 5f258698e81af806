package out

import (
	"context"

	"recipe_server/core/domain"
)

// AssetStore is the external asset storage contract. Only the
// upload/delete surface matters here; delivery is out of scope.
// Deletion failures during cleanup are recorded, never fatal.
type AssetStore interface {
	Upload(ctx context.Context, data []byte, folder string) (*domain.AssetRef, error)
	Delete(ctx context.Context, assetID string) error
}
