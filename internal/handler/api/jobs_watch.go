package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"IEXCast/internal/domain/models"
	xhttp "IEXCast/pkg/http"
	xlogger "IEXCast/pkg/logger"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WatchJob streams job states over a websocket until the job finishes or
// the client goes away.
func (h *SimulationHandler) WatchJob(c echo.Context) error {
	req := &models.JobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	updates, err := h.jobs.Watch(ctx, req.ID, h.cfg.WatchInterval)
	if err != nil {
		return h.fail(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", xlogger.String("job_id", req.ID), xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	// reader: only to notice the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for job := range updates {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(job); err != nil {
			h.logger.Debug("websocket write failed", xlogger.String("job_id", req.ID), xlogger.Error(err))
			return nil
		}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	return nil
}
