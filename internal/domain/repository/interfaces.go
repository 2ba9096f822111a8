package repository

import (
	"context"
	"errors"
	"time"

	"IEXCast/internal/domain/models"
)

// ErrNotFound is returned by stores when a key has no value.
var ErrNotFound = errors.New("not found")

// SeriesSource loads archived market data.
type SeriesSource interface {
	LoadSeries(ctx context.Context, from, to time.Time) ([]models.DataPoint, error)
	Health(ctx context.Context) error
}

// SeriesArchive stores uploaded series so they can be sourced later.
type SeriesArchive interface {
	StoreSeries(ctx context.Context, series []models.DataPoint) error
}

// ResultPublisher announces finished runs.
type ResultPublisher interface {
	PublishRun(ctx context.Context, summary models.RunSummary) error
	Close() error
}

// ResultStore keeps complete results by content key.
type ResultStore interface {
	Save(ctx context.Context, key string, r *models.SimulationResult) error
	Load(ctx context.Context, key string) (*models.SimulationResult, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Locker hands out short-lived named locks shared by every instance.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// JobStore keeps job state.
type JobStore interface {
	Save(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
}

// Metrics records service-level observations.
type Metrics interface {
	RecordRun(winner string, points int, rmse float64, took time.Duration)
	RecordCacheLookup(hit bool)
	RecordJob(state string)
	RecordError(kind string)
}
