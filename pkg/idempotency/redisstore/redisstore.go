// Package redisstore implements idempotency.Store on Redis, so every worker
// process shares the same view of published events.
package redisstore

import (
	"bills/pkg/idempotency"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the keys written by the store.
const DefaultKeyPrefix = "bills:published:"

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store is a Redis-backed idempotency.Store.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}

	return NewWithClient(client, opts.KeyPrefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) IsProcessed(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("could not check processed event: %w", err)
	}

	return n > 0, nil
}

// MarkProcessed uses SETNX so concurrent markers agree on a single winner.
func (s *Store) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+id, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("could not mark event processed: %w", err)
	}

	return ok, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ idempotency.Store = (*Store)(nil)
