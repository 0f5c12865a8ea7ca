package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"artlicor/backend/internal/domain"
)

const redisKeyPrefix = "artlicor:catalog"

// RedisCatalogCache namespaces keys by a generation counter; Invalidate bumps
// the generation and stale keys age out through their TTL.
type RedisCatalogCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCatalogCache(addr string, password string, db int) *RedisCatalogCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCatalogCache{client: client, prefix: redisKeyPrefix}
}

func (c *RedisCatalogCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

// Generation reads the current generation; a missing counter is generation 0.
func (c *RedisCatalogCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.prefix+":gen").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCatalogCache) Get(ctx context.Context, gen int64, key string) ([]domain.Product, bool, error) {
	val, err := c.client.Get(ctx, c.key(gen, key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

// Set writes under gen. A write from an invalidated generation lands on a key
// no reader addresses any more and ages out through its TTL.
func (c *RedisCatalogCache) Set(ctx context.Context, gen int64, key string, products []domain.Product, ttl time.Duration) error {
	if products == nil {
		products = []domain.Product{}
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(gen, key), payload, ttl).Err()
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.prefix+":gen").Err()
}

func (c *RedisCatalogCache) key(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key)
}
