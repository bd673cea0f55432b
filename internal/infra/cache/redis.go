package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"timed_trading_server/internal/domain"
)

// RedisQuoteCache stores quote batches in Redis as JSON with a TTL.
type RedisQuoteCache struct {
	client *redis.Client
	prefix string
}

func NewRedisQuoteCache(addr, password string, db int) (*RedisQuoteCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisQuoteCache{
		client: client,
		prefix: "market:",
	}, nil
}

func (c *RedisQuoteCache) Get(ctx context.Context, key string) (map[string]domain.Quote, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var quotes map[string]domain.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, false, fmt.Errorf("decode cached quotes: %w", err)
	}
	return quotes, true, nil
}

func (c *RedisQuoteCache) Set(ctx context.Context, key string, quotes map[string]domain.Quote, ttl time.Duration) error {
	raw, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("encode quotes: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisQuoteCache) Reset(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

func (c *RedisQuoteCache) Close() error {
	return c.client.Close()
}
