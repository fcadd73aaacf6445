package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// RedisQuoteCache stores quotes in Redis so several server processes share one cache.
// Keys have the form "quote:{market}:{symbol}" and never expire; freshness is decided
// by the quote gateway from the stored timestamp.
type RedisQuoteCache struct {
	client *goredis.Client
	prefix string
}

// NewRedisQuoteCache connects to Redis and verifies the connection.
func NewRedisQuoteCache(ctx context.Context, addr, password string, db int) (*RedisQuoteCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisQuoteCache{client: client, prefix: "quote:"}, nil
}

func (c *RedisQuoteCache) key(k model.QuoteKey) string {
	return c.prefix + string(k.Market) + ":" + k.Symbol
}

// GetQuote returns the cached quote for a key.
// Returns ErrQuoteNotCached when the key is absent.
func (c *RedisQuoteCache) GetQuote(ctx context.Context, key model.QuoteKey) (model.Quote, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return model.Quote{}, apperrors.ErrQuoteNotCached
	}
	if err != nil {
		return model.Quote{}, fmt.Errorf("failed to read quote from redis: %w", err)
	}

	var q model.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return model.Quote{}, fmt.Errorf("failed to decode cached quote: %w", err)
	}
	q.Stale = false
	return q, nil
}

// PutQuote overwrites the cache entry for the quote's key.
func (c *RedisQuoteCache) PutQuote(ctx context.Context, q model.Quote) error {
	q.Stale = false
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}
	if err := c.client.Set(ctx, c.key(q.Key()), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write quote to redis: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisQuoteCache) Close() error {
	return c.client.Close()
}
