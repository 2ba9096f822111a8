package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache is a two-level cache: a bounded in-process L1 in front of a
// shared L2 (redis in production). Writes go through to both levels.
type LayeredCache struct {
	l1    *MemoryCache
	l2    Service
	l1TTL time.Duration
}

// NewLayeredCache wraps l2 with a memory L1. l1TTL caps how long an entry
// promoted from L2 lives in memory.
func NewLayeredCache(l2 Service, l1TTL time.Duration, opts ...MemoryOption) *LayeredCache {
	return &LayeredCache{
		l1:    NewMemoryCache(opts...),
		l2:    l2,
		l1TTL: l1TTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.l2.Set(ctx, key, data, expiration); err != nil {
		return err
	}
	return lc.l1.Set(ctx, key, data, lc.promoteTTL(expiration))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte
	if err := lc.l1.Get(ctx, key, &data); err == nil {
		return decode(data, dest)
	}

	if err := lc.l2.Get(ctx, key, &data); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, data, lc.l1TTL)
	return decode(data, dest)
}

func (lc *LayeredCache) promoteTTL(expiration time.Duration) time.Duration {
	if expiration <= 0 || (lc.l1TTL > 0 && lc.l1TTL < expiration) {
		return lc.l1TTL
	}
	return expiration
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.l1.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

func (lc *LayeredCache) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	_, _ = lc.l1.Expire(ctx, key, lc.promoteTTL(expiration))
	return lc.l2.Expire(ctx, key, expiration)
}

// Locks live only in L2 so every instance sees them.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.l2.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	return errors.Join(lc.l1.Close(), lc.l2.Close())
}
