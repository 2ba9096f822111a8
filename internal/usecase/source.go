package usecase

import (
	"context"
	"fmt"
	"time"

	"IEXCast/internal/domain/models"
	domrepo "IEXCast/internal/domain/repository"
	applogger "IEXCast/pkg/logger"
)

// SourceService runs simulations over archived prices and archives uploads.
type SourceService struct {
	source  domrepo.SeriesSource
	archive domrepo.SeriesArchive
	runner  *SimulationRunner
	l       *applogger.Logger
}

// NewSourceService wires the service; source and archive may be nil.
func NewSourceService(source domrepo.SeriesSource, archive domrepo.SeriesArchive, runner *SimulationRunner, l *applogger.Logger) *SourceService {
	if l == nil {
		l = applogger.Nop()
	}
	return &SourceService{source: source, archive: archive, runner: runner, l: l}
}

// Enabled reports whether a series source is configured.
func (s *SourceService) Enabled() bool { return s.source != nil }

// Run loads [from, to] and simulates it.
func (s *SourceService) Run(ctx context.Context, from, to time.Time, cfg models.SimulationConfig) (*RunOutput, error) {
	if s.source == nil {
		return nil, ErrSourceDisabled
	}
	series, err := s.source.LoadSeries(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load %s..%s: %w", from.Format(models.RangeLayout), to.Format(models.RangeLayout), err)
	}
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	return s.runner.Run(ctx, series, cfg)
}

// Archive stores an uploaded series when an archive is configured. Failures
// are logged and never fail the upload.
func (s *SourceService) Archive(ctx context.Context, series []models.DataPoint) {
	if s.archive == nil || len(series) == 0 {
		return
	}
	if err := s.archive.StoreSeries(ctx, series); err != nil {
		s.l.Warn("series archive failed", applogger.Int("points", len(series)), applogger.Error(err))
		return
	}
	s.l.Debug("series archived", applogger.Int("points", len(series)))
}

// Health pings the source.
func (s *SourceService) Health(ctx context.Context) error {
	if s.source == nil {
		return nil
	}
	return s.source.Health(ctx)
}
