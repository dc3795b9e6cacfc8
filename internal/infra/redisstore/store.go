// Package redisstore keeps the khata collection in Redis. Useful when the
// ledger runs in a container without a persistent volume.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/udhar-khata/khata/internal/domain"
)

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // prepended to every key, e.g. "khata:"
}

// Store implements domain.KVStore on a Redis client.
type Store struct {
	client *goredis.Client
	prefix string
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(cfg Config) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(rdb, cfg.Prefix), nil
}

// New wraps an existing client.
func New(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Key returns the Redis key used for a ledger key.
func (s *Store) Key(key string) string { return s.prefix + key }

// Load returns the value stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", s.Key(key), err)
	}
	return v, true, nil
}

// Save replaces the value under key. Keys never expire.
func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.Key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.Key(key), err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

var _ domain.KVStore = (*Store)(nil)
