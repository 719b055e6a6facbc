package cart

import (
	"context"
	"sync"

	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
)

// StorageKey is the key the cart is persisted under.
const StorageKey = "moz-store-cart"

// SessionKey namespaces StorageKey for one shopper session.
func SessionKey(sessionID string) string {
	return StorageKey + ":" + sessionID
}

// Storage persists serialized carts. Get returns an error wrapping
// apperrors.ErrNotFound when key holds nothing.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStorage is an in-process Storage.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, apperrors.NotFound("cart", key)
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
