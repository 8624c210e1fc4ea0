package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/metrics"
)

// MemoryCache is a process-local Cache. Lists are cloned on the way in and
// out so callers never share backing arrays with the cache.
type MemoryCache struct {
	mu       sync.RWMutex
	buckets  map[string]model.List
	migrated map[string]time.Time
	clock    func() time.Time
	closed   bool
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache(opts ...Option) *MemoryCache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryCache{
		buckets:  make(map[string]model.List),
		migrated: make(map[string]time.Time),
		clock:    o.clock,
	}
}

// Load implements Cache.
func (c *MemoryCache) Load(_ context.Context, bucket string) (list model.List, ok bool, err error) {
	start := time.Now()
	defer func() { observe("load", start, err) }()
	if bucket == "" {
		return nil, false, ErrEmptyBucket
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false, ErrClosed
	}
	stored, ok := c.buckets[bucket]
	if !ok {
		return model.List{}, false, nil
	}
	return stored.Clone(), true, nil
}

// Save implements Cache.
func (c *MemoryCache) Save(_ context.Context, bucket string, list model.List) (err error) {
	start := time.Now()
	defer func() { observe("save", start, err) }()
	if bucket == "" {
		return ErrEmptyBucket
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.buckets[bucket] = list.Clone()
	metrics.UpdateCacheBuckets(len(c.buckets))
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, bucket string) (err error) {
	start := time.Now()
	defer func() { observe("delete", start, err) }()
	if bucket == "" {
		return ErrEmptyBucket
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	delete(c.buckets, bucket)
	metrics.UpdateCacheBuckets(len(c.buckets))
	return nil
}

// Migrated implements Cache.
func (c *MemoryCache) Migrated(_ context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, ErrEmptyAccount
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false, ErrClosed
	}
	_, ok := c.migrated[accountID]
	return ok, nil
}

// MarkMigrated implements Cache.
func (c *MemoryCache) MarkMigrated(_ context.Context, accountID string) error {
	if accountID == "" {
		return ErrEmptyAccount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, ok := c.migrated[accountID]; !ok {
		c.migrated[accountID] = c.clock()
	}
	return nil
}

// Count implements Cache.
func (c *MemoryCache) Count(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.buckets), nil
}

// Close implements Cache. A closed cache rejects every call.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
