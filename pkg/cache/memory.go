package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key      string
	data     []byte
	expireAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache is an in-process Service with TTLs and LRU eviction.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache creates an in-memory cache and starts its janitor.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxEntries:      1000,
		CleanupInterval: 5 * time.Minute,
		DefaultTTL:      7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: cfg.MaxEntries,
		defaultTTL: cfg.DefaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go mc.janitor(cfg.CleanupInterval)
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.store(key, data, expiration)
	return nil
}

func (mc *MemoryCache) store(key string, data []byte, expiration time.Duration) {
	if expiration <= 0 {
		expiration = mc.defaultTTL
	}
	expireAt := mc.now().Add(expiration)

	if el, ok := mc.items[key]; ok {
		e := el.Value.(*memoryEntry)
		e.data, e.expireAt = data, expireAt
		mc.order.MoveToFront(el)
		return
	}

	if mc.maxEntries > 0 && mc.order.Len() >= mc.maxEntries {
		mc.removeElement(mc.order.Back())
	}
	mc.items[key] = mc.order.PushFront(&memoryEntry{key: key, data: data, expireAt: expireAt})
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	el, ok := mc.live(key)
	if !ok {
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.order.MoveToFront(el)
	data := el.Value.(*memoryEntry).data
	mc.mu.Unlock()

	return decode(data, dest)
}

// live returns the element for key, dropping it when expired. Caller holds mu.
func (mc *MemoryCache) live(key string) (*list.Element, bool) {
	el, ok := mc.items[key]
	if !ok {
		return nil, false
	}
	if el.Value.(*memoryEntry).expired(mc.now()) {
		mc.removeElement(el)
		return nil, false
	}
	return el, true
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if el, ok := mc.items[key]; ok {
			mc.removeElement(el)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if _, ok := mc.live(key); ok {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	el, ok := mc.live(key)
	if !ok {
		return false, nil
	}
	el.Value.(*memoryEntry).expireAt = mc.now().Add(expiration)
	return true, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.live(key); ok {
		return false, nil
	}
	mc.store(key, []byte("locked"), ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len reports the number of stored entries, expired ones included until the
// janitor or a lookup drops them.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.order.Len()
}

func (mc *MemoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	mc.order.Remove(el)
	delete(mc.items, el.Value.(*memoryEntry).key)
}

func (mc *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mc.purgeExpired()
		case <-mc.stop:
			return
		}
	}
}

func (mc *MemoryCache) purgeExpired() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := mc.now()
	for el := mc.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*memoryEntry).expired(now) {
			mc.removeElement(el)
		}
		el = prev
	}
}

// Close stops the janitor.
func (mc *MemoryCache) Close() error {
	mc.stopOnce.Do(func() { close(mc.stop) })
	return nil
}
