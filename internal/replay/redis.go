package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "replay:batch:"

// RedisConfig locates the Redis instance shared by all API replicas.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient builds a go-redis client from cfg.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisStore holds fingerprints as expiring Redis keys so replicas share one
// view of recent batches.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps client. The caller keeps ownership until Close.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Claim(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+fingerprint, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim fingerprint: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
