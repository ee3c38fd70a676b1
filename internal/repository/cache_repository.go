package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheRepository is a small string cache used for short-lived response
// caching (technician statistics).
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
}

type redisCacheRepository struct {
	client *redis.Client
}

// NewRedisCacheRepository builds a cache over a redis client.
func NewRedisCacheRepository(client *redis.Client) CacheRepository {
	return &redisCacheRepository{client: client}
}

func (r *redisCacheRepository) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *redisCacheRepository) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}
