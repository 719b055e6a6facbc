package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
)

// CartStorage implements cart.Storage using Redis. Every write refreshes the
// key's TTL, so carts of active shoppers never expire.
type CartStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStorage creates a Redis-backed cart storage. A zero ttl keeps carts
// forever.
func NewCartStorage(client *redis.Client, ttl time.Duration) *CartStorage {
	return &CartStorage{client: client, ttl: ttl}
}

// Get returns the serialized cart stored under key.
func (s *CartStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", key)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	return data, nil
}

// Set stores value under key.
func (s *CartStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}
