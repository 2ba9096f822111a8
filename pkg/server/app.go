package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"IEXCast/pkg/config"
	xhttp "IEXCast/pkg/http"
	pkgkafka "IEXCast/pkg/kafka"
	applogger "IEXCast/pkg/logger"
	"IEXCast/pkg/queue"
)

// Closer releases an infrastructure client on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	queue      queue.Queue
	consumer   *pkgkafka.Consumer
	closers    []Closer
}

// New creates an App. consumer may be nil; closers run in reverse order
// after every component has stopped.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	q queue.Queue,
	consumer *pkgkafka.Consumer,
	closers ...Closer,
) *App {
	return &App{
		cfg:        cfg,
		logger:     l,
		httpServer: httpServer,
		queue:      q,
		consumer:   consumer,
		closers:    closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start brings up the worker queue, the request consumer and the HTTP
// server, in that order.
func (a *App) Start() error {
	if err := a.queue.Start(); err != nil {
		a.logger.Error("queue start error", applogger.Error(err))
		return err
	}
	a.logger.Info("job queue started",
		applogger.String("backend", a.cfg.Queue.Backend),
		applogger.Int("workers", a.cfg.Queue.Workers))

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.RequestsTopic))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

// Shutdown stops intake first, then drains workers, then closes clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, a.drainTimeout())
	defer cancel()
	if err := a.queue.Stop(drainCtx); err != nil {
		a.logger.Warn("queue stop error", applogger.Error(err))
	}

	a.logger.DetachDigest()
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("component", c.Name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) drainTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
