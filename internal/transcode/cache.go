package transcode

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores delivery results. Keys embed the source size and modification
// time, so a replaced file never serves a stale entry.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, result *Result) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*Result, bool, error) { return nil, false, nil }
func (nopCache) Set(context.Context, string, *Result) error         { return nil }

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

const cachePrefix = "gallery:delivery:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, config CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	fields, err := c.client.HGetAll(ctx, cachePrefix+key).Result()
	if err != nil {
		return nil, false, err
	}
	data, ok := fields["data"]
	if !ok {
		return nil, false, nil
	}

	fallback, _ := strconv.ParseBool(fields["fallback"])
	return &Result{
		Data:      []byte(data),
		MediaType: fields["type"],
		Fallback:  fallback,
	}, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result *Result) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, cachePrefix+key,
			"type", result.MediaType,
			"fallback", strconv.FormatBool(result.Fallback),
			"data", result.Data,
		)
		pipe.Expire(ctx, cachePrefix+key, c.ttl)
		return nil
	})
	return err
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
