package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/tg_landing/internal/transport"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
)

const redisKeyPrefix = "tg_landing:channel:"

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, addr, password string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Get treats any redis failure as a miss; the database stays the source of truth.
func (c *Redis) Get(ctx context.Context, uuid string) (*transport.PublicChannel, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+uuid).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.FromContext(ctx).Warn("cache_get_failed", "backend", "redis", "error", err)
		}
		return nil, false
	}
	var ch transport.PublicChannel
	if err := json.Unmarshal(raw, &ch); err != nil {
		c.Invalidate(ctx, uuid)
		return nil, false
	}
	return &ch, true
}

func (c *Redis) Set(ctx context.Context, uuid string, ch *transport.PublicChannel) {
	if ch == nil {
		return
	}
	raw, err := json.Marshal(ch)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+uuid, raw, c.ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("cache_set_failed", "backend", "redis", "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, uuid string) {
	if err := c.client.Del(ctx, redisKeyPrefix+uuid).Err(); err != nil {
		logging.FromContext(ctx).Warn("cache_invalidate_failed", "backend", "redis", "error", err)
	}
}

func (c *Redis) Close() error {
	return c.client.Close()
}
