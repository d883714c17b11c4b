package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	"github.com/yungbote/devjourney-backend/internal/data/tiered"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

const keyPrefix = "devjourney:record:"

// Cache is a shared cache tier. Entries expire after ttl.
type Cache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewCache(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) *Cache {
	return &Cache{log: log.With("service", "RedisCache"), rdb: rdb, ttl: ttl}
}

func recordKey(kind tiered.Kind, id string) string {
	return keyPrefix + string(kind) + ":" + id
}

func (c *Cache) Get(ctx context.Context, kind tiered.Kind, id string) (schemacompat.Record, error) {
	raw, err := c.rdb.Get(ctx, recordKey(kind, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, tiered.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", tiered.ErrUnavailable, err)
	}
	rec, err := schemacompat.Parse(raw)
	if err != nil {
		c.log.Warn("dropping unreadable cache entry", "kind", kind, "id", id, "error", err)
		_ = c.rdb.Del(ctx, recordKey(kind, id)).Err()
		return nil, tiered.ErrNotFound
	}
	return rec, nil
}

func (c *Cache) Put(ctx context.Context, kind tiered.Kind, rec schemacompat.Record) error {
	raw, err := json.Marshal(map[string]any(rec))
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, recordKey(kind, rec.ID()), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", tiered.ErrUnavailable, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, kind tiered.Kind, id string) error {
	n, err := c.rdb.Del(ctx, recordKey(kind, id)).Result()
	if err != nil {
		return fmt.Errorf("%w: redis del: %v", tiered.ErrUnavailable, err)
	}
	if n == 0 {
		return tiered.ErrNotFound
	}
	return nil
}

// Purge deletes every cached record key.
func (c *Cache) Purge(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
