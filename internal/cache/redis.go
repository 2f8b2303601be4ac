package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"labelscan/internal/workflow"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "labelscan:workflow:"

// Redis backs the cache with a shared store so multiple instances agree on
// terminal results. States are stored as JSON; SetNX keeps puts write-once.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opt), ttl: ttl}, nil
}

func (c *Redis) Get(ctx context.Context, key string) (*workflow.State, error) {
	val, err := c.client.Get(ctx, redisPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st workflow.State
	if err := json.Unmarshal(val, &st); err != nil {
		// Treat a corrupt entry as a miss; the workflow recomputes it.
		return nil, nil
	}
	return &st, nil
}

func (c *Redis) Put(ctx context.Context, key string, st *workflow.State) error {
	js, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, redisPrefix+key, js, c.ttl).Err()
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Close() error { return c.client.Close() }
