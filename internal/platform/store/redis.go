package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared between processes. Every key is namespaced.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedis connects to url (redis://...) and verifies the connection.
func NewRedis(ctx context.Context, url, keyPrefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisFromClient(client, keyPrefix), nil
}

func NewRedisFromClient(client redis.UniversalClient, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "medcalc"
	}
	return &Redis{client: client, keyPrefix: keyPrefix + ":"}
}

func (r *Redis) key(k string) string { return r.keyPrefix + k }

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis) scan(ctx context.Context, prefix string) ([]string, error) {
	iter := r.client.Scan(ctx, 0, r.key(prefix)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (r *Redis) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := r.scan(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := r.client.Del(ctx, keys...).Result()
	return int(n), err
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := r.scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, r.keyPrefix)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
