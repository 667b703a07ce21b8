package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	appErrors "github.com/itqan-app/itqan-console/pkg/errors"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCacheRepository is the in-process fallback used when no Redis is
// configured. Same contract as CacheRepository.
type MemoryCacheRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCacheRepository constructs an empty in-memory cache.
func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{entries: make(map[string]memoryEntry)}
}

// Get retrieves a live entry or reports a cache miss.
func (r *MemoryCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok && time.Now().After(entry.expiresAt) {
		delete(r.entries, key)
		ok = false
	}
	r.mu.Unlock()

	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(entry.payload, dest)
}

// Set stores the value until the TTL elapses.
func (r *MemoryCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.entries[key] = memoryEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
	r.mu.Unlock()
	return nil
}

// Delete removes an entry.
func (r *MemoryCacheRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}
