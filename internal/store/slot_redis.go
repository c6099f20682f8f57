package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSlot keeps records as plain redis strings without expiry.
type RedisSlot struct {
	client *redis.Client
	prefix string
}

type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	// Prefix namespaces keys, e.g. "portal:".
	Prefix string
}

func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisSlot, error) {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisSlot{client: client, prefix: opts.Prefix}, nil
}

func (s *RedisSlot) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *RedisSlot) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *RedisSlot) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *RedisSlot) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSlot) Close() error {
	return s.client.Close()
}
