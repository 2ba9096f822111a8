package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"IEXCast/internal/domain/models"
	domrepo "IEXCast/internal/domain/repository"
	applogger "IEXCast/pkg/logger"
	"IEXCast/pkg/queue"
)

const (
	simulateJobType = "simulation.run"
	jobLockTTL      = 5 * time.Minute
)

var (
	ErrJobNotFound    = errors.New("usecase: job not found")
	ErrSourceDisabled = errors.New("usecase: no series source configured")
)

// Job sources.
const (
	SourceUpload     = "upload"
	SourceClickHouse = "clickhouse"
)

// dayRange is an inclusive range of delivery days.
type dayRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// simulatePayload travels through the queue. Uploads carry their series;
// sourced jobs carry only the range to load.
type simulatePayload struct {
	JobID  string                  `json:"job_id"`
	Config models.SimulationConfig `json:"config"`
	Series []models.DataPoint      `json:"series,omitempty"`
	Range  *dayRange               `json:"range,omitempty"`
}

// JobService runs simulations in the background.
type JobService struct {
	runner  *SimulationRunner
	jobs    domrepo.JobStore
	locker  domrepo.Locker
	source  domrepo.SeriesSource
	q       queue.Queue
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

// NewJobService registers the simulate job on q. locker and source may be nil.
func NewJobService(
	runner *SimulationRunner,
	jobs domrepo.JobStore,
	locker domrepo.Locker,
	source domrepo.SeriesSource,
	q queue.Queue,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *JobService {
	if l == nil {
		l = applogger.Nop()
	}
	s := &JobService{
		runner:  runner,
		jobs:    jobs,
		locker:  locker,
		source:  source,
		q:       q,
		metrics: metrics,
		l:       l,
		now:     time.Now,
	}
	q.RegisterJob(&simulateJob{svc: s})
	return s
}

// Submit queues a run over an uploaded series.
func (s *JobService) Submit(ctx context.Context, series []models.DataPoint, cfg models.SimulationConfig) (*models.Job, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	job := s.newJob(SourceUpload, len(series), cfg)
	return job, s.enqueue(ctx, job, simulatePayload{JobID: job.ID, Config: cfg, Series: series})
}

// SubmitRange queues a run over archived prices.
func (s *JobService) SubmitRange(ctx context.Context, from, to time.Time, cfg models.SimulationConfig) (*models.Job, error) {
	if s.source == nil {
		return nil, ErrSourceDisabled
	}
	job := s.newJob(SourceClickHouse, 0, cfg)
	return job, s.enqueue(ctx, job, simulatePayload{JobID: job.ID, Config: cfg, Range: &dayRange{From: from, To: to}})
}

func (s *JobService) newJob(source string, points int, cfg models.SimulationConfig) *models.Job {
	now := s.now()
	return &models.Job{
		ID:        uuid.NewString(),
		State:     models.JobQueued,
		Source:    source,
		Points:    points,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *JobService) enqueue(ctx context.Context, job *models.Job, payload simulatePayload) error {
	if err := s.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	if err := s.q.Enqueue(ctx, simulateJobType, payload); err != nil {
		s.fail(ctx, job, err)
		return fmt.Errorf("enqueue job: %w", err)
	}
	s.metrics.RecordJob(string(models.JobQueued))
	s.l.Info("job queued",
		applogger.String("job_id", job.ID),
		applogger.String("source", job.Source),
		applogger.Int("points", job.Points))
	return nil
}

// Get returns the current state of a job.
func (s *JobService) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.jobs.Get(ctx, id)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

// Watch polls a job and emits every state change, starting with the current
// one. The channel closes after a terminal state or when ctx ends.
func (s *JobService) Watch(ctx context.Context, id string, every time.Duration) (<-chan models.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make(chan models.Job, 1)
	go func() {
		defer close(out)
		last := *job
		if !send(ctx, out, last) || last.State.Terminal() {
			return
		}
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			cur, err := s.jobs.Get(ctx, id)
			if err != nil {
				s.l.Warn("job watch poll failed", applogger.String("job_id", id), applogger.Error(err))
				continue
			}
			if cur.State == last.State && cur.UpdatedAt.Equal(last.UpdatedAt) {
				continue
			}
			last = *cur
			if !send(ctx, out, last) || last.State.Terminal() {
				return
			}
		}
	}()
	return out, nil
}

func send(ctx context.Context, out chan<- models.Job, job models.Job) bool {
	select {
	case out <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *JobService) transition(ctx context.Context, job *models.Job, state models.JobState) error {
	job.State = state
	job.UpdatedAt = s.now()
	s.metrics.RecordJob(string(state))
	return s.jobs.Save(ctx, job)
}

func (s *JobService) fail(ctx context.Context, job *models.Job, cause error) {
	job.Error = cause.Error()
	if err := s.transition(ctx, job, models.JobFailed); err != nil {
		s.l.Error("job state save failed", applogger.String("job_id", job.ID), applogger.Error(err))
	}
	s.l.Warn("job failed", applogger.String("job_id", job.ID), applogger.Error(cause))
}

// execute drives one job to a terminal state. Only job store failures are
// returned, so the queue retries infrastructure errors and never reruns a
// job that already reached a terminal state. A delivery of a job another
// worker is executing is dropped.
func (s *JobService) execute(ctx context.Context, p *simulatePayload) error {
	if s.locker != nil {
		lockKey := "job:" + p.JobID
		ok, err := s.locker.TryLock(ctx, lockKey, jobLockTTL)
		switch {
		case err != nil:
			s.metrics.RecordError("lock")
			s.l.Warn("job lock unavailable", applogger.String("job_id", p.JobID), applogger.Error(err))
		case !ok:
			s.l.Info("job already executing elsewhere", applogger.String("job_id", p.JobID))
			return nil
		default:
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
					s.l.Warn("job unlock failed", applogger.String("job_id", p.JobID), applogger.Error(err))
				}
			}()
		}
	}

	job, err := s.jobs.Get(ctx, p.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", p.JobID, err)
	}
	if job.State.Terminal() {
		return nil
	}
	if err := s.transition(ctx, job, models.JobRunning); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	series := p.Series
	if p.Range != nil {
		if s.source == nil {
			s.fail(ctx, job, ErrSourceDisabled)
			return nil
		}
		series, err = s.source.LoadSeries(ctx, p.Range.From, p.Range.To)
		if err != nil {
			s.fail(ctx, job, err)
			return nil
		}
		job.Points = len(series)
	}

	out, err := s.runner.Run(ctx, series, p.Config)
	if err != nil {
		s.fail(ctx, job, err)
		return nil
	}
	job.ResultKey = out.Key
	if err := s.transition(ctx, job, models.JobDone); err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}
	s.l.Info("job done",
		applogger.String("job_id", job.ID),
		applogger.String("result_key", out.Key),
		applogger.Bool("cached", out.Cached))
	return nil
}

type simulateJob struct {
	svc *JobService
}

func (j *simulateJob) Name() string { return "simulate" }
func (j *simulateJob) Type() string { return simulateJobType }

func (j *simulateJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[simulatePayload](payload)
	if err != nil {
		return err
	}
	return j.svc.execute(ctx, p)
}
