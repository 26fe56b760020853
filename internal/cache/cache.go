// Package cache persists the single timestamped report dataset.
//
// A Cache owns the JSON encoding of models.CacheEntry and sits on top of a
// byte-level Backend (Redis, a directory of files, or memory). Reads never
// fail: missing, unreadable or corrupt entries are reported as absent so the
// caller falls through to a refetch. Writes are best effort.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"boss-spawn-board/internal/models"
)

// ErrNotFound is returned by backends when a key has no value.
var ErrNotFound = errors.New("cache: key not found")

// ErrCacheCorrupt marks stored bytes that do not decode to an entry.
var ErrCacheCorrupt = errors.New("cache: corrupt entry")

// StorageWriteError wraps a failed persist of key.
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("cache: write %q: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// Backend is a raw key-value store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Cache reads and writes entries through a Backend.
type Cache struct {
	backend Backend
	logger  *zap.Logger
}

func New(backend Backend, logger *zap.Logger) *Cache {
	return &Cache{backend: backend, logger: logger}
}

// Read returns the entry stored under key regardless of its age.
func (c *Cache) Read(ctx context.Context, key string) (*models.CacheEntry, bool) {
	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	entry, err := decode(raw)
	if err != nil {
		c.logger.Warn("cache entry unreadable, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return entry, true
}

// ReadFresh returns the entry only if it is younger than ttl at now.
func (c *Cache) ReadFresh(ctx context.Context, key string, ttl time.Duration, now time.Time) (*models.CacheEntry, bool) {
	entry, ok := c.Read(ctx, key)
	if !ok || !entry.FreshAt(now, ttl) {
		return nil, false
	}
	return entry, true
}

// Write stores entry under key. A returned error is a *StorageWriteError.
func (c *Cache) Write(ctx context.Context, key string, entry *models.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return &StorageWriteError{Key: key, Err: err}
	}
	if err := c.backend.Set(ctx, key, raw); err != nil {
		return &StorageWriteError{Key: key, Err: err}
	}
	return nil
}

func decode(raw []byte) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if entry.Timestamp <= 0 {
		return nil, fmt.Errorf("%w: missing timestamp", ErrCacheCorrupt)
	}
	return &entry, nil
}
