package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"IEXCast/internal/domain/models"
	"IEXCast/internal/repository"
	"IEXCast/internal/services/prediction"
	"IEXCast/pkg/cache"
)

func testSeries(n int) []models.DataPoint {
	start := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.DataPoint, n)
	for i := range out {
		day := start.AddDate(0, 0, i/96)
		b := i % 96
		price := 3000 + float64(i%17)*40
		out[i] = models.DataPoint{
			Date:      day.Format("02-01-2006"),
			DateObj:   day,
			TimeBlock: fmt.Sprintf("%02d:%02d - %02d:%02d", b/4, (b%4)*15, (b+1)/4, ((b+1)%4)*15),
			MCPMWh:    price,
			MCPKWh:    price / 1000,
			Hour:      b / 4,
			Minute:    (b % 4) * 15,
			DayOfWeek: int(day.Weekday()),
			Season:    models.SeasonForMonth(int(day.Month())),
			TimeOfDay: models.TimeOfDayForHour(b / 4),
		}
	}
	return out
}

var testConfig = models.SimulationConfig{ForecastDays: 1, ConfidenceLevel: 95}

type fakeMetrics struct {
	mu     sync.Mutex
	runs   int
	hits   int
	misses int
	jobs   map[string]int
	errs   map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{jobs: map[string]int{}, errs: map[string]int{}}
}

func (m *fakeMetrics) RecordRun(string, int, float64, time.Duration) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordCacheLookup(hit bool) {
	m.mu.Lock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordJob(state string) {
	m.mu.Lock()
	m.jobs[state]++
	m.mu.Unlock()
}

func (m *fakeMetrics) jobCount(state models.JobState) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[string(state)]
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errs[kind]++
	m.mu.Unlock()
}

type fakePublisher struct {
	mu   sync.Mutex
	runs []models.RunSummary
	err  error
}

func (p *fakePublisher) PublishRun(_ context.Context, s models.RunSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.runs = append(p.runs, s)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.runs)
}

type fakeSource struct {
	series []models.DataPoint
	err    error
	stored int
}

func (s *fakeSource) LoadSeries(context.Context, time.Time, time.Time) ([]models.DataPoint, error) {
	return s.series, s.err
}

func (s *fakeSource) Health(context.Context) error { return s.err }

func (s *fakeSource) StoreSeries(_ context.Context, series []models.DataPoint) error {
	if s.err != nil {
		return s.err
	}
	s.stored += len(series)
	return nil
}

type fixture struct {
	cache   *cache.MemoryCache
	metrics *fakeMetrics
	pub     *fakePublisher
	runner  *SimulationRunner
}

func newFixture() *fixture {
	mc := cache.NewMemoryCache()
	f := &fixture{cache: mc, metrics: newFakeMetrics(), pub: &fakePublisher{}}
	f.runner = NewSimulationRunner(
		prediction.NewEngine(),
		repository.NewCacheResultStore(mc, time.Hour),
		repository.NewCacheLocker(mc),
		f.pub,
		f.metrics,
		nil,
	)
	return f
}
