package ssocache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	// RedisKeyPrefix namespaces every key written by RedisStore
	RedisKeyPrefix = "ftl-sso:"

	redisTimeout = 5 * time.Second
)

// RedisStore keeps entries in redis, so several hosts can share one login
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects with opts and pings the server
func NewRedisStore(ctx context.Context, opts *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis ping %s failed", opts.Addr)
	}

	return NewRedisStoreFromClient(client, RedisKeyPrefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Get(id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Put(id string, data []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(id), data, ttl).Err()
}

func (s *RedisStore) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	return s.client.Del(ctx, s.key(id)).Err()
}

// TTL returns the remaining lifetime of id; -1 means no expiry
func (s *RedisStore) TTL(id string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	return s.client.TTL(ctx, s.key(id)).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
