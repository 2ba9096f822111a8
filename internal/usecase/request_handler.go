package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"IEXCast/internal/domain/models"
	applogger "IEXCast/pkg/logger"
	pkgkafka "IEXCast/pkg/kafka"
)

var validate = validator.New()

// RequestHandler turns Kafka run requests into sourced jobs.
//
// Message schema: {"from":"2024-04-01","to":"2024-04-07","forecast_days":7,"confidence_level":95}
type RequestHandler struct {
	topic    string
	jobs     *JobService
	defaults models.SimulationConfig
	l        *applogger.Logger
}

func NewRequestHandler(topic string, jobs *JobService, defaults models.SimulationConfig, l *applogger.Logger) *RequestHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &RequestHandler{topic: topic, jobs: jobs, defaults: defaults, l: l}
}

func (h *RequestHandler) Topic() string { return h.topic }

// Handle rejects malformed requests with an error so the consumer can
// dead-letter them.
func (h *RequestHandler) Handle(ctx context.Context, key, value []byte) error {
	var req models.SourceRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return fmt.Errorf("decode run request: %w", err)
	}
	if err := validate.StructCtx(ctx, &req); err != nil {
		return fmt.Errorf("invalid run request: %w", err)
	}
	from, to, err := req.Range()
	if err != nil {
		return fmt.Errorf("invalid run request: %w", err)
	}

	job, err := h.jobs.SubmitRange(ctx, from, to, req.Resolve(h.defaults))
	if err != nil {
		return err
	}
	h.l.Info("run request accepted",
		applogger.String("key", string(key)),
		applogger.String("job_id", job.ID),
		applogger.String("from", req.From),
		applogger.String("to", req.To))
	return nil
}

var _ pkgkafka.MessageHandler = (*RequestHandler)(nil)
