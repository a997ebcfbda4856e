package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	// SetVersionedJSON stores val unless the cached entry carries a higher
	// "version" field. It reports whether val was stored.
	SetVersionedJSON(ctx context.Context, key string, version int64, val any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// SessionKey is the snapshot key for one interview session.
func SessionKey(sessionID string) string {
	return "interview:" + sessionID + ":snapshot"
}

// Nop never hits. Used when Redis is not configured.
type Nop struct{}

func (Nop) GetJSON(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (Nop) SetVersionedJSON(context.Context, string, int64, any, time.Duration) (bool, error) {
	return false, nil
}
func (Nop) Del(context.Context, ...string) error { return nil }
