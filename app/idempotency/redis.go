package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the configured redis.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	var options *redis.Options
	switch {
	case opts.URL != "":
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		options = parsed
	case opts.Addr != "":
		options = &redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
