package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "session:revoked:"

// RevocationRepository implements repository.RevocationRepository using
// Redis keys that expire together with the token they revoke.
type RevocationRepository struct {
	client *redis.Client
}

func NewRevocationRepository(client *redis.Client) *RevocationRepository {
	return &RevocationRepository{client: client}
}

// Revoke marks tokenID as signed out for ttl.
func (r *RevocationRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was signed out.
func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revocation: %w", err)
	}
	return n > 0, nil
}
