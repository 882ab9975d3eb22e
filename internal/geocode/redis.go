package geocode

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-redis/redis/v8"
)

// redisCache stores geocode results in redis so repeated lookups survive
// process restarts and are shared across instances.
type redisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache builds a redis-backed cache. Returns nil (caller falls back
// to in-memory) when addr is empty or the server is unreachable.
func NewRedisCache(ctx context.Context, addr, password string, db int, logger *slog.Logger) cacheBackend {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, geocode cache falls back to memory", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return &redisCache{client: client, logger: logger}
}

func (r *redisCache) get(ctx context.Context, key string) (*Result, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (r *redisCache) set(ctx context.Context, key string, res *Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		r.logger.Warn("redis set failed", "key", key, "error", err)
	}
}
