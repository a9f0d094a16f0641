package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"tender_spider/internal/config"
	"tender_spider/internal/models"
)

// RedisBackend keeps one hash per bucket under "<prefix>:<bucket>".
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(ctx context.Context, cfg config.StoreConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return &RedisBackend{client: client, prefix: strings.TrimSuffix(cfg.RedisPrefix, ":")}, nil
}

func (r *RedisBackend) key(bucket string) string {
	return r.prefix + ":" + bucket
}

func (r *RedisBackend) bucketKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s:*: %w", r.prefix, err)
	}
	return keys, nil
}

func (r *RedisBackend) Load(ctx context.Context) (models.SeenState, error) {
	keys, err := r.bucketKeys(ctx)
	if err != nil {
		return nil, err
	}
	state := models.SeenState{}
	for _, key := range keys {
		records, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("hgetall %s: %w", key, err)
		}
		if len(records) > 0 {
			state[strings.TrimPrefix(key, r.prefix+":")] = records
		}
	}
	return state, nil
}

// Save replaces every bucket hash inside one MULTI/EXEC transaction.
func (r *RedisBackend) Save(ctx context.Context, state models.SeenState) error {
	existing, err := r.bucketKeys(ctx)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range existing {
			pipe.Del(ctx, key)
		}
		for bucket, records := range state {
			if len(records) == 0 {
				continue
			}
			values := make(map[string]any, len(records))
			for id, ts := range records {
				values[id] = ts
			}
			pipe.HSet(ctx, r.key(bucket), values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace seen hashes: %w", err)
	}
	return nil
}

func (r *RedisBackend) Close(context.Context) error {
	return r.client.Close()
}
