package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"IEXCast/pkg/logger"
)

// LocalQueue is an in-process Queue backed by a buffered channel. Messages do
// not survive a restart.
type LocalQueue struct {
	logger *logger.Logger
	config *Config

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool

	msgs   chan Message
	seq    atomic.Uint64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLocalQueue(lgr *logger.Logger, cfg *Config) *LocalQueue {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalQueue{
		logger: lgr,
		config: cfg,
		jobs:   make(map[string]Job),
		msgs:   make(chan Message, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (q *LocalQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	q.jobs[job.Type()] = job
}

func (q *LocalQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return ErrAlreadyStart
	}
	q.running = true

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("local queue started", logger.Int("workers", q.config.Workers))
	return nil
}

// Stop cancels in-flight handlers and waits for the workers to exit.
func (q *LocalQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		q.logger.Info("local queue stopped")
		return nil
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	running := q.running
	_, known := q.jobs[msgType]
	q.mu.RUnlock()

	if !running {
		return ErrNotRunning
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownType, msgType)
	}

	msg, err := newMessage(fmt.Sprintf("local-%d", q.seq.Add(1)), msgType, payload)
	if err != nil {
		return err
	}
	return q.push(ctx, msg)
}

func (q *LocalQueue) push(ctx context.Context, msg Message) error {
	select {
	case q.msgs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return ErrNotRunning
	default:
		return ErrQueueFull
	}
}

func (q *LocalQueue) worker(id int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.msgs:
			q.process(msg)
		}
	}
}

func (q *LocalQueue) process(msg Message) {
	q.mu.RLock()
	job := q.jobs[msg.Type]
	q.mu.RUnlock()

	err := job.Handle(q.ctx, msg.Payload)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	q.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= q.config.RetryLimit {
		q.logger.Error("max retries reached", logger.String("id", msg.ID), logger.String("job", job.Name()))
		return
	}
	msg.Attempts++

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(q.config.RetryDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
			if err := q.push(q.ctx, msg); err != nil {
				q.logger.Error("requeue failed", logger.String("id", msg.ID), logger.Error(err))
			}
		case <-q.ctx.Done():
		}
	}()
}
