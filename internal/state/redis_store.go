package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

// RedisConfig locates the Redis instance holding bot state
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"-"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
}

// RedisStore keeps the open-position snapshot under a single Redis key
type RedisStore struct {
	client *goredis.Client
	key    string
}

// NewRedisStore connects and pings the server
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.Key), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *goredis.Client, key string) *RedisStore {
	if key == "" {
		key = "signal-bot:positions"
	}
	return &RedisStore{client: client, key: key}
}

// Save replaces the stored snapshot
func (s *RedisStore) Save(ctx context.Context, positions []*position.Position) error {
	data, err := encode(positions, time.Now())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

// Load returns the stored positions; a missing key is an empty set
func (s *RedisStore) Load(ctx context.Context) ([]*position.Position, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decode(data)
}

// Close releases the connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
