package api

import (
	"github.com/labstack/echo/v4"

	"IEXCast/internal/domain/models"
	xhttp "IEXCast/pkg/http"
)

type jobResponse struct {
	Job    *models.Job              `json:"job"`
	Result *models.SimulationResult `json:"result,omitempty"`
}

// SubmitJob queues an uploaded export and answers 202 with the job.
func (h *SimulationHandler) SubmitJob(c echo.Context) error {
	series, cfg, err := h.readUpload(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx := c.Request().Context()
	h.sources.Archive(ctx, series)

	job, err := h.jobs.Submit(ctx, series, cfg)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.AcceptedResponse(c, jobResponse{Job: job})
}

// SubmitSourceJob queues a run over archived prices.
func (h *SimulationHandler) SubmitSourceJob(c echo.Context) error {
	req := &models.SourceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, err := req.Range()
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	job, err := h.jobs.SubmitRange(c.Request().Context(), from, to, req.Resolve(h.cfg.Defaults))
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.AcceptedResponse(c, jobResponse{Job: job})
}

// Job returns a job and, once done, its result.
func (h *SimulationHandler) Job(c echo.Context) error {
	req := &models.JobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	job, err := h.jobs.Get(ctx, req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	resp := jobResponse{Job: job}
	if job.State == models.JobDone {
		if resp.Result, err = h.runner.Result(ctx, job.ResultKey); err != nil {
			return h.fail(c, err)
		}
	}
	return xhttp.SuccessResponse(c, resp)
}
