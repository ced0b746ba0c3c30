package cache

import (
	"context"
	"time"
)

// Cache is the read-through layer in front of derived video data, such as
// serialized timelines and metadata lookups. A miss is never an error.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
