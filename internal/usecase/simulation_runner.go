package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"IEXCast/internal/domain/models"
	domrepo "IEXCast/internal/domain/repository"
	domsvc "IEXCast/internal/domain/service"
	applogger "IEXCast/pkg/logger"
)

var (
	ErrEmptySeries    = errors.New("usecase: series is empty")
	ErrResultNotFound = errors.New("usecase: result not found")
)

// RunOutput is a finished run and the key it is stored under.
type RunOutput struct {
	Key    string                   `json:"key"`
	Cached bool                     `json:"cached"`
	Result *models.SimulationResult `json:"result"`
}

const (
	runLockTTL  = 2 * time.Minute
	runLockPoll = 50 * time.Millisecond
)

// SimulationRunner runs the engine behind the result store. Identical
// series and configuration are served from the store, and concurrent callers
// with the same key compute it once.
type SimulationRunner struct {
	sim     domsvc.Simulator
	results domrepo.ResultStore
	locker  domrepo.Locker
	pub     domrepo.ResultPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

// NewSimulationRunner wires a runner; locker and pub may be nil.
func NewSimulationRunner(
	sim domsvc.Simulator,
	results domrepo.ResultStore,
	locker domrepo.Locker,
	pub domrepo.ResultPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *SimulationRunner {
	if l == nil {
		l = applogger.Nop()
	}
	return &SimulationRunner{
		sim:     sim,
		results: results,
		locker:  locker,
		pub:     pub,
		metrics: metrics,
		l:       l,
		now:     time.Now,
	}
}

// Run returns the result for series under cfg.
func (r *SimulationRunner) Run(ctx context.Context, series []models.DataPoint, cfg models.SimulationConfig) (*RunOutput, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	key := ResultKey(series, cfg)

	if out := r.cached(ctx, key); out != nil {
		return out, nil
	}
	r.metrics.RecordCacheLookup(false)

	release, out, err := r.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	if out != nil {
		return out, nil
	}
	defer release()

	start := r.now()
	res := r.sim.Run(series, cfg)
	took := r.now().Sub(start)

	winner, _ := res.Winner()
	r.metrics.RecordRun(string(res.BestModel), len(series), winner.Metrics.RMSE, took)
	r.l.Info("simulation finished",
		applogger.String("key", key),
		applogger.Uint32("seed", res.Seed),
		applogger.Int("points", len(series)),
		applogger.String("winner", string(res.BestModel)),
		applogger.Float64("rmse", winner.Metrics.RMSE),
		applogger.Duration("took", took))

	if err := r.results.Save(ctx, key, &res); err != nil {
		r.metrics.RecordError("result_save")
		r.l.Warn("result store save failed", applogger.String("key", key), applogger.Error(err))
	}
	r.announce(ctx, key, &res, cfg)

	return &RunOutput{Key: key, Result: &res}, nil
}

func (r *SimulationRunner) cached(ctx context.Context, key string) *RunOutput {
	res, err := r.results.Load(ctx, key)
	switch {
	case err == nil:
		r.metrics.RecordCacheLookup(true)
		r.l.Debug("simulation served from cache", applogger.String("key", key))
		return &RunOutput{Key: key, Cached: true, Result: res}
	case !errors.Is(err, domrepo.ErrNotFound):
		r.metrics.RecordError("result_load")
		r.l.Warn("result store lookup failed", applogger.String("key", key), applogger.Error(err))
	}
	return nil
}

// acquire takes the run lock for key. While another caller holds it, acquire
// waits for that caller's result instead of computing it again. A lock
// backend failure degrades to an unlocked run.
func (r *SimulationRunner) acquire(ctx context.Context, key string) (func(), *RunOutput, error) {
	noop := func() {}
	if r.locker == nil {
		return noop, nil, nil
	}
	lockKey := "run:" + key
	for {
		ok, err := r.locker.TryLock(ctx, lockKey, runLockTTL)
		if err != nil {
			r.metrics.RecordError("lock")
			r.l.Warn("run lock unavailable", applogger.String("key", key), applogger.Error(err))
			return noop, nil, nil
		}
		if ok {
			release := func() {
				if err := r.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
					r.l.Warn("run unlock failed", applogger.String("key", key), applogger.Error(err))
				}
			}
			// the previous holder may have stored the result just before releasing
			if out := r.cached(ctx, key); out != nil {
				release()
				return nil, out, nil
			}
			return release, nil, nil
		}
		if done, _ := r.results.Exists(ctx, key); done {
			if out := r.cached(ctx, key); out != nil {
				return nil, out, nil
			}
		}
		timer := time.NewTimer(runLockPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *SimulationRunner) announce(ctx context.Context, key string, res *models.SimulationResult, cfg models.SimulationConfig) {
	if r.pub == nil {
		return
	}
	if err := r.pub.PublishRun(ctx, models.Summarize(key, res, cfg, r.now())); err != nil {
		r.metrics.RecordError("publish")
		r.l.Warn("run announcement failed", applogger.String("key", key), applogger.Error(err))
	}
}

// Result loads a stored result by key.
func (r *SimulationRunner) Result(ctx context.Context, key string) (*models.SimulationResult, error) {
	res, err := r.results.Load(ctx, key)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
