package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	settingsCacheKey = "platform:settings"
	settingsCacheTTL = time.Minute
)

// RedisCache caches the settings row in Redis. All operations are
// best-effort: a cache failure only means the next read hits the database.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

var _ Cache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context) (Settings, bool) {
	raw, err := c.client.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("settings cache read failed", "error", err)
		}
		return Settings{}, false
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		c.logger.Warn("settings cache entry corrupt, dropping", "error", err)
		c.Invalidate(ctx)
		return Settings{}, false
	}
	return s, true
}

func (c *RedisCache) Set(ctx context.Context, s Settings) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, settingsCacheKey, raw, settingsCacheTTL).Err(); err != nil {
		c.logger.Warn("settings cache write failed", "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, settingsCacheKey).Err(); err != nil {
		c.logger.Warn("settings cache invalidate failed", "error", err)
	}
}

// NopCache disables caching; used when Redis is not configured.
type NopCache struct{}

func (NopCache) Get(context.Context) (Settings, bool) { return Settings{}, false }
func (NopCache) Set(context.Context, Settings)        {}
func (NopCache) Invalidate(context.Context)           {}
