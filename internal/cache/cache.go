// Package cache is a read-through JSON cache of single entities in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/freightdesk/freightdesk-backend/pkg/logger"
)

// Entity kinds used in cache keys.
const (
	KindIndent  = "indent"
	KindTrip    = "trip"
	KindPayment = "trip_payment"
)

const defaultTTL = 5 * time.Minute

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	EntityKey(kind, id string) string
}

// Cache stores entities under fd:entity:<kind>:<id>.
type Cache struct {
	store store
	ttl   time.Duration
	logg  *logger.Logger
}

func New(store store, ttl time.Duration, logg *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{store: store, ttl: ttl, logg: logg}
}

// Get decodes the cached entity into dst. A miss returns false with no error.
func (c *Cache) Get(ctx context.Context, kind string, id uuid.UUID, dst any) (bool, error) {
	if c == nil || c.store == nil {
		return false, nil
	}
	raw, err := c.store.Get(ctx, c.store.EntityKey(kind, id.String()))
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		c.warn(ctx, kind, id, "discarding undecodable cache entry")
		_ = c.Invalidate(ctx, kind, id)
		return false, nil
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, kind string, id uuid.UUID, value any) error {
	if c == nil || c.store == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.EntityKey(kind, id.String()), payload, c.ttl)
}

func (c *Cache) Invalidate(ctx context.Context, kind string, id uuid.UUID) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Del(ctx, c.store.EntityKey(kind, id.String()))
}

func (c *Cache) warn(ctx context.Context, kind string, id uuid.UUID, msg string) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"kind": kind, "id": id.String()}), msg)
}
