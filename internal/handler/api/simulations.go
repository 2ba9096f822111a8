package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"IEXCast/internal/domain/models"
	domsvc "IEXCast/internal/domain/service"
	"IEXCast/internal/service/ratelimit"
	"IEXCast/internal/services/ingest"
	"IEXCast/internal/services/report"
	"IEXCast/internal/usecase"
	xhttp "IEXCast/pkg/http"
	xlogger "IEXCast/pkg/logger"
)

// Config tunes the simulation endpoints.
type Config struct {
	Defaults       models.SimulationConfig
	MaxUploadBytes int64
	WatchInterval  time.Duration
}

// SimulationHandler serves uploads, sourced runs, jobs and reports.
type SimulationHandler struct {
	logger  *xlogger.Logger
	parser  domsvc.SeriesParser
	runner  *usecase.SimulationRunner
	jobs    *usecase.JobService
	sources *usecase.SourceService
	limiter *ratelimit.Limiter
	cfg     Config
}

func NewSimulationHandler(
	logger *xlogger.Logger,
	parser domsvc.SeriesParser,
	runner *usecase.SimulationRunner,
	jobs *usecase.JobService,
	sources *usecase.SourceService,
	limiter *ratelimit.Limiter,
	cfg Config,
) *SimulationHandler {
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = 500 * time.Millisecond
	}
	return &SimulationHandler{
		logger:  logger,
		parser:  parser,
		runner:  runner,
		jobs:    jobs,
		sources: sources,
		limiter: limiter,
		cfg:     cfg,
	}
}

func (h *SimulationHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	var limited []echo.MiddlewareFunc
	if h.limiter != nil {
		limited = append(limited, h.limiter.Middleware())
	}

	g := e.Group("/api")
	g.POST("/simulations", h.Simulate, limited...)
	g.POST("/simulations/source", h.SimulateSource, limited...)
	g.GET("/simulations/:key", h.Result)
	g.GET("/simulations/:key/report", h.Report)

	g.POST("/jobs", h.SubmitJob, limited...)
	g.POST("/jobs/source", h.SubmitSourceJob, limited...)
	g.GET("/jobs/:id", h.Job)
	g.GET("/jobs/:id/watch", h.WatchJob)
}

type simulationResponse struct {
	Key            string                   `json:"key"`
	Cached         bool                     `json:"cached"`
	Recommendation report.Recommendation    `json:"recommendation"`
	Leaderboard    []report.Standing        `json:"leaderboard"`
	Result         *models.SimulationResult `json:"result"`
}

func newSimulationResponse(out *usecase.RunOutput) simulationResponse {
	return simulationResponse{
		Key:            out.Key,
		Cached:         out.Cached,
		Recommendation: report.Recommend(out.Result),
		Leaderboard:    report.Leaderboard(out.Result),
		Result:         out.Result,
	}
}

// Simulate parses the uploaded export and runs it synchronously.
func (h *SimulationHandler) Simulate(c echo.Context) error {
	series, cfg, err := h.readUpload(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx := c.Request().Context()
	h.sources.Archive(ctx, series)

	out, err := h.runner.Run(ctx, series, cfg)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, newSimulationResponse(out))
}

// SimulateSource runs archived prices of a day range synchronously.
func (h *SimulationHandler) SimulateSource(c echo.Context) error {
	req := &models.SourceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := req.Range()
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	out, err := h.sources.Run(c.Request().Context(), from, to, req.Resolve(h.cfg.Defaults))
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, newSimulationResponse(out))
}

// Result returns a stored result.
func (h *SimulationHandler) Result(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.runner.Result(c.Request().Context(), req.Key)
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

// Report returns the dashboard views of a stored result.
func (h *SimulationHandler) Report(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.runner.Result(c.Request().Context(), req.Key)
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, report.Build(res, req.Days))
}

func (h *SimulationHandler) Health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.sources.Enabled() {
		status["source"] = "ok"
		if err := h.sources.Health(c.Request().Context()); err != nil {
			h.logger.Warn("series source health check failed", xlogger.Error(err))
			status["status"] = "degraded"
			status["source"] = err.Error()
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
		}
	}
	return xhttp.SuccessResponse(c, status)
}

// readUpload binds the run parameters and parses the multipart "file".
func (h *SimulationHandler) readUpload(c echo.Context) ([]models.DataPoint, models.SimulationConfig, error) {
	params := &models.SimulationParams{}
	// POST binding skips the query string; accept parameters from both.
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, params); err != nil {
		return nil, models.SimulationConfig{}, xhttp.BadRequestError(err.Error())
	}
	if verr := xhttp.ReadAndValidateRequest(c, params); verr != nil {
		return nil, models.SimulationConfig{}, &validationFailure{details: verr}
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, models.SimulationConfig{}, xhttp.BadRequestError(`multipart field "file" is required`)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, models.SimulationConfig{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, models.SimulationConfig{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > h.cfg.MaxUploadBytes {
		return nil, models.SimulationConfig{}, xhttp.NewAppError("ERR_TOO_LARGE", "file",
			fmt.Sprintf("upload exceeds %d bytes", h.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
	}

	series, err := h.parser.ParseFile(fh.Filename, data)
	if err != nil {
		return nil, models.SimulationConfig{}, err
	}
	return series, params.Resolve(h.cfg.Defaults), nil
}

// validationFailure carries binder/validator details through error returns.
type validationFailure struct {
	details interface{}
}

func (v *validationFailure) Error() string { return "request validation failed" }

// fail maps domain errors onto the response envelope.
func (h *SimulationHandler) fail(c echo.Context, err error) error {
	var vf *validationFailure
	if errors.As(err, &vf) {
		return xhttp.BadRequestResponse(c, vf.details)
	}
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return xhttp.AppErrorResponse(c, appErr)
	}

	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, ingest.ErrHeaderNotFound),
		errors.Is(err, ingest.ErrNoRows),
		errors.Is(err, ingest.ErrUnreadable),
		errors.Is(err, ingest.ErrTooManyRows),
		errors.Is(err, usecase.ErrEmptySeries):
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError(err.Error()))
	case errors.Is(err, usecase.ErrJobNotFound), errors.Is(err, usecase.ErrResultNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, usecase.ErrSourceDisabled):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()))
	}

	h.logger.Error("simulation request failed",
		xlogger.String("path", c.Path()),
		xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
