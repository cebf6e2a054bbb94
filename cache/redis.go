package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var deleteIfValue = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisStore struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

// NewRedisStore connects to url (redis://host:port/db) and pings it.
func NewRedisStore(ctx context.Context, url, prefix string, log logrus.FieldLogger) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client, prefix: prefix, log: log}, nil
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.log.WithField("key", key).Debug("redis cache miss")
		return nil, ErrMiss
	}
	if err != nil {
		r.log.WithError(err).WithField("key", key).Error("redis cache get error")
		return nil, err
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		r.log.WithError(err).WithField("key", key).Error("redis cache set error")
		return err
	}
	return nil
}

func (r *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), value, ttl).Result()
	if err != nil {
		r.log.WithError(err).WithField("key", key).Error("redis setnx error")
		return false, err
	}
	return ok, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.log.WithError(err).WithField("key", key).Error("redis cache delete error")
		return err
	}
	return nil
}

func (r *RedisStore) DeleteIfValue(ctx context.Context, key string, value []byte) (bool, error) {
	n, err := deleteIfValue.Run(ctx, r.client, []string{r.key(key)}, value).Int64()
	if err != nil {
		r.log.WithError(err).WithField("key", key).Error("redis cache compare-delete error")
		return false, err
	}
	return n == 1, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
