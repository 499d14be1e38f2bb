package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
	accessed time.Time
}

func (m *memoryItem) expired() bool {
	return time.Now().After(m.expireAt)
}

// MemoryCache implements Service in process memory with LRU eviction.
// Values are stored JSON-encoded, matching the Redis backend, so callers
// get identical semantics whichever backend is configured.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*memoryItem
	maxSize int
	ticker  *time.Ticker
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		items:   make(map[string]*memoryItem),
		maxSize: cfg.MaxSize,
		ticker:  time.NewTicker(cfg.CleanupInterval),
	}
	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = 7 * 24 * time.Hour
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.items) >= mc.maxSize {
		mc.evictOldest()
	}
	now := time.Now()
	mc.items[key] = &memoryItem{data: data, expireAt: now.Add(expiration), accessed: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.items[key]
	if !ok || item.expired() {
		if ok {
			delete(mc.items, key)
		}
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	item.accessed = time.Now()
	data := item.data
	mc.mu.Unlock()

	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.items, key)
	}
	return nil
}

func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key := range mc.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(mc.items, key)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if item, ok := mc.items[key]; ok && !item.expired() {
			return true, nil
		}
	}
	return false, nil
}

// caller holds mu
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	oldest := time.Now()
	for key, item := range mc.items {
		if item.accessed.Before(oldest) {
			oldest = item.accessed
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(mc.items, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for range mc.ticker.C {
		mc.mu.Lock()
		for key, item := range mc.items {
			if item.expired() {
				delete(mc.items, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the cleanup ticker.
func (mc *MemoryCache) Close() error {
	if mc.ticker != nil {
		mc.ticker.Stop()
	}
	return nil
}
