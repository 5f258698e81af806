package out

import (
	"context"
	"time"
)

// Cache is a read-through cache for satellite profiles. The store is
// always authoritative; a cache failure degrades to a store read.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
