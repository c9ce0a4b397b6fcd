package cache

import (
	"context"
	"time"

	"github.com/booklook/booklook/pkg/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
)

const scanBatchSize = 100

type Redis struct {
	client *redis.Client
}

// NewRedis connects to the configured Redis server and pings it.
func NewRedis(ctx context.Context, cfg *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.RedisAddr)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithStack(err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(r.client.Set(ctx, key, data, ttl).Err())
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.WithStack(r.client.Del(ctx, keys...).Err())
}

// DeletePrefix walks the keyspace with SCAN so it never blocks the server the
// way KEYS would.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := r.Delete(ctx, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.WithStack(err)
	}
	return r.Delete(ctx, batch...)
}

func (r *Redis) Close() error {
	return errors.WithStack(r.client.Close())
}
