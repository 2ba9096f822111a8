package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"IEXCast/internal/domain/models"
	domrepo "IEXCast/internal/domain/repository"
	"IEXCast/internal/repository"
	applogger "IEXCast/pkg/logger"
	"IEXCast/pkg/queue"
)

func newJobService(t *testing.T, f *fixture, source *fakeSource) *JobService {
	t.Helper()
	q := queue.NewLocalQueue(applogger.Nop(), &queue.Config{Workers: 2, RetryDelay: 10 * time.Millisecond})
	var src domrepo.SeriesSource
	if source != nil {
		src = source
	}
	svc := NewJobService(f.runner, repository.NewCacheJobStore(f.cache, time.Hour), repository.NewCacheLocker(f.cache), src, q, f.metrics, nil)
	if err := q.Start(); err != nil {
		t.Fatalf("start queue: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})
	return svc
}

func waitTerminal(t *testing.T, svc *JobService, id string) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.State.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func TestJobLifecycleUpload(t *testing.T) {
	f := newFixture()
	svc := newJobService(t, f, nil)
	ctx := context.Background()

	job, err := svc.Submit(ctx, testSeries(96), testConfig)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.State != models.JobQueued || job.Source != SourceUpload || job.Points != 96 {
		t.Fatalf("unexpected submitted job %+v", job)
	}

	done := waitTerminal(t, svc, job.ID)
	if done.State != models.JobDone || done.ResultKey == "" || done.Error != "" {
		t.Fatalf("expected done job with a result key, got %+v", done)
	}
	if _, err := f.runner.Result(ctx, done.ResultKey); err != nil {
		t.Fatalf("result of finished job: %v", err)
	}
	if done.ResultKey != ResultKey(testSeries(96), testConfig) {
		t.Fatalf("queued series must hash to the same key as the submitted one")
	}
}

func TestJobSubmitEmpty(t *testing.T) {
	svc := newJobService(t, newFixture(), nil)
	if _, err := svc.Submit(context.Background(), nil, testConfig); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestJobSourced(t *testing.T) {
	f := newFixture()
	src := &fakeSource{series: testSeries(192)}
	svc := newJobService(t, f, src)

	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	job, err := svc.SubmitRange(context.Background(), from, from.AddDate(0, 0, 1), testConfig)
	if err != nil {
		t.Fatalf("submit range: %v", err)
	}
	done := waitTerminal(t, svc, job.ID)
	if done.State != models.JobDone || done.Points != 192 || done.Source != SourceClickHouse {
		t.Fatalf("unexpected sourced job %+v", done)
	}
}

func TestJobSourceFailureMarksFailed(t *testing.T) {
	f := newFixture()
	svc := newJobService(t, f, &fakeSource{err: errors.New("clickhouse unavailable")})

	job, err := svc.SubmitRange(context.Background(), time.Now(), time.Now(), testConfig)
	if err != nil {
		t.Fatalf("submit range: %v", err)
	}
	done := waitTerminal(t, svc, job.ID)
	if done.State != models.JobFailed || done.Error != "clickhouse unavailable" {
		t.Fatalf("expected failed job, got %+v", done)
	}
}

func TestJobEmptySourceMarksFailed(t *testing.T) {
	svc := newJobService(t, newFixture(), &fakeSource{})
	job, err := svc.SubmitRange(context.Background(), time.Now(), time.Now(), testConfig)
	if err != nil {
		t.Fatal(err)
	}
	if done := waitTerminal(t, svc, job.ID); done.State != models.JobFailed {
		t.Fatalf("empty range should fail the job, got %+v", done)
	}
}

func TestJobSubmitRangeWithoutSource(t *testing.T) {
	svc := newJobService(t, newFixture(), nil)
	if _, err := svc.SubmitRange(context.Background(), time.Now(), time.Now(), testConfig); !errors.Is(err, ErrSourceDisabled) {
		t.Fatalf("expected ErrSourceDisabled, got %v", err)
	}
}

func TestJobGetUnknown(t *testing.T) {
	svc := newJobService(t, newFixture(), nil)
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobWatch(t *testing.T) {
	f := newFixture()
	svc := newJobService(t, f, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := svc.Submit(ctx, testSeries(96), testConfig)
	if err != nil {
		t.Fatal(err)
	}
	updates, err := svc.Watch(ctx, job.ID, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	var last models.Job
	n := 0
	for u := range updates {
		last = u
		n++
	}
	if n == 0 || last.State != models.JobDone {
		t.Fatalf("watch should end on the terminal state, got %d updates ending in %s", n, last.State)
	}

	if _, err := svc.Watch(ctx, "missing", time.Millisecond); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobExecuteSkipsLockedJob(t *testing.T) {
	f := newFixture()
	svc := newJobService(t, f, nil)
	ctx := context.Background()

	store := repository.NewCacheJobStore(f.cache, time.Hour)
	job := &models.Job{ID: "job-locked", State: models.JobQueued, Source: SourceUpload, Points: 96}
	if err := store.Save(ctx, job); err != nil {
		t.Fatal(err)
	}
	payload := &simulatePayload{JobID: job.ID, Config: testConfig, Series: testSeries(96)}

	locker := repository.NewCacheLocker(f.cache)
	if ok, _ := locker.TryLock(ctx, "job:"+job.ID, time.Minute); !ok {
		t.Fatal("could not take the job lock")
	}
	if err := svc.execute(ctx, payload); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got, _ := svc.Get(ctx, job.ID); got.State != models.JobQueued {
		t.Fatalf("a duplicate delivery must not touch the job, state %s", got.State)
	}
	if f.metrics.runs != 0 {
		t.Fatalf("engine ran for a locked job")
	}

	if err := locker.Unlock(ctx, "job:"+job.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.execute(ctx, payload); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got, _ := svc.Get(ctx, job.ID); got.State != models.JobDone {
		t.Fatalf("state after unlock = %s, want done", got.State)
	}
}

func TestRequestHandler(t *testing.T) {
	f := newFixture()
	svc := newJobService(t, f, &fakeSource{series: testSeries(96)})
	h := NewRequestHandler("iex.simulation.requests", svc, testConfig, nil)
	ctx := context.Background()

	if h.Topic() != "iex.simulation.requests" {
		t.Fatalf("topic = %s", h.Topic())
	}

	bad := map[string]string{
		"json":     `{"from":`,
		"missing":  `{"from":"2024-04-01"}`,
		"layout":   `{"from":"01-04-2024","to":"2024-04-02"}`,
		"reversed": `{"from":"2024-04-05","to":"2024-04-01"}`,
		"days":     `{"from":"2024-04-01","to":"2024-04-02","forecast_days":90}`,
	}
	for name, msg := range bad {
		if err := h.Handle(ctx, nil, []byte(msg)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	if err := h.Handle(ctx, []byte("k"), []byte(`{"from":"2024-04-01","to":"2024-04-01","forecast_days":3}`)); err != nil {
		t.Fatalf("valid request: %v", err)
	}
	if n := f.metrics.jobCount(models.JobQueued); n != 1 {
		t.Fatalf("expected one queued job, got %d", n)
	}
}

func TestSourceService(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	disabled := NewSourceService(nil, nil, f.runner, nil)
	if disabled.Enabled() {
		t.Fatalf("service without a source must report disabled")
	}
	if _, err := disabled.Run(ctx, time.Now(), time.Now(), testConfig); !errors.Is(err, ErrSourceDisabled) {
		t.Fatalf("expected ErrSourceDisabled, got %v", err)
	}
	disabled.Archive(ctx, testSeries(4))

	src := &fakeSource{series: testSeries(96)}
	svc := NewSourceService(src, src, f.runner, nil)
	out, err := svc.Run(ctx, time.Now(), time.Now(), testConfig)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Result.DataCharacteristics.DataLength != 96 {
		t.Fatalf("data length = %d", out.Result.DataCharacteristics.DataLength)
	}
	svc.Archive(ctx, testSeries(10))
	if src.stored != 10 {
		t.Fatalf("archived %d points, want 10", src.stored)
	}

	empty := NewSourceService(&fakeSource{}, nil, f.runner, nil)
	if _, err := empty.Run(ctx, time.Now(), time.Now(), testConfig); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}
