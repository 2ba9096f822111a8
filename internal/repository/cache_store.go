package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"IEXCast/internal/domain/models"
	domrepo "IEXCast/internal/domain/repository"
	"IEXCast/pkg/cache"
)

// CacheResultStore keeps simulation results in the configured cache. Reads
// extend the entry's lifetime; entries that no longer decode are evicted.
type CacheResultStore struct {
	c   cache.Service
	ttl time.Duration
}

func NewCacheResultStore(c cache.Service, ttl time.Duration) *CacheResultStore {
	return &CacheResultStore{c: c, ttl: ttl}
}

func (s *CacheResultStore) Save(ctx context.Context, key string, r *models.SimulationResult) error {
	if err := s.c.Set(ctx, cache.Key("result", key), r, s.ttl); err != nil {
		return fmt.Errorf("save result %s: %w", key, err)
	}
	return nil
}

func (s *CacheResultStore) Load(ctx context.Context, key string) (*models.SimulationResult, error) {
	var r models.SimulationResult
	ck := cache.Key("result", key)
	if err := s.c.Get(ctx, ck, &r); err != nil {
		if errors.Is(err, cache.ErrDecode) {
			_ = s.c.Delete(ctx, ck)
			return nil, fmt.Errorf("result %s: %w", key, domrepo.ErrNotFound)
		}
		return nil, notFound(err, "result", key)
	}
	if s.ttl > 0 {
		_, _ = s.c.Expire(ctx, ck, s.ttl)
	}
	return &r, nil
}

func (s *CacheResultStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.c.Exists(ctx, cache.Key("result", key))
}

// CacheJobStore keeps job state in the configured cache.
type CacheJobStore struct {
	c   cache.Service
	ttl time.Duration
}

func NewCacheJobStore(c cache.Service, ttl time.Duration) *CacheJobStore {
	return &CacheJobStore{c: c, ttl: ttl}
}

func (s *CacheJobStore) Save(ctx context.Context, job *models.Job) error {
	if err := s.c.Set(ctx, cache.Key("job", job.ID), job, s.ttl); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *CacheJobStore) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.c.Get(ctx, cache.Key("job", id), &job); err != nil {
		return nil, notFound(err, "job", id)
	}
	return &job, nil
}

// CacheLocker takes locks in the "lock" namespace of the cache. With a redis
// or layered cache the locks are shared across instances.
type CacheLocker struct {
	c cache.Service
}

func NewCacheLocker(c cache.Service) *CacheLocker {
	return &CacheLocker{c: c}
}

func (l *CacheLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.c.TryLock(ctx, cache.Key("lock", key), ttl)
}

func (l *CacheLocker) Unlock(ctx context.Context, key string) error {
	return l.c.Unlock(ctx, cache.Key("lock", key))
}

func notFound(err error, kind, key string) error {
	if errors.Is(err, cache.ErrCacheMiss) {
		return fmt.Errorf("%s %s: %w", kind, key, domrepo.ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", kind, key, err)
}

var (
	_ domrepo.ResultStore = (*CacheResultStore)(nil)
	_ domrepo.JobStore    = (*CacheJobStore)(nil)
	_ domrepo.Locker      = (*CacheLocker)(nil)
)
