package storage

import (
	"context"
	"strings"

	"broadcast-coach/config"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// RedisBackend persists the tracker keys in Redis.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis with the given configuration and fails
// fast if the server is unreachable.
func NewRedisBackend(cfg config.RedisConfig) *RedisBackend {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	log.Info().Str("address", cfg.Address).Msg("Connected to Redis successfully")
	return &RedisBackend{client: rdb}
}

// NewRedisBackendFromClient wraps an existing client (used by tests with
// miniredis).
func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	err := b.client.Set(ctx, key, value, 0).Err()
	if err != nil && isOOMError(err) {
		return ErrQuotaExceeded
	}
	return err
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

// Close releases the underlying connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// isOOMError detects the maxmemory rejection Redis returns when it cannot
// accept more data ("OOM command not allowed when used memory > 'maxmemory'").
func isOOMError(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM")
}
