package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"IEXCast/pkg/logger"
)

// MessageHandler handles the messages of one topic.
type MessageHandler interface {
	Topic() string
	Handle(ctx context.Context, key, value []byte) error
}

// Consumer reads each registered topic with its own group reader and hands
// messages to the topic handler one at a time, committing after success or
// after the message was parked on the dead-letter topic.
type Consumer struct {
	cfg      *ConsumerConfig
	logger   *logger.Logger
	handlers map[string]MessageHandler
	readers  []*kafka.Reader
	dlq      *kafka.Writer

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewConsumer(lgr *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "iexcast",
		RetryMax:   3,
		BackoffMin: 100 * time.Millisecond,
		BackoffMax: 5 * time.Second,
		MinBytes:   1,
		MaxBytes:   10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:      cfg,
		logger:   lgr,
		handlers: make(map[string]MessageHandler),
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	initMetrics()
	return c, nil
}

func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; ok {
		c.logger.Warn("kafka handler already registered", logger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

func (c *Consumer) Start() error {
	for topic, h := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
		c.readers = append(c.readers, r)

		c.wg.Add(1)
		go c.consume(r, h)
		c.logger.Info("kafka consumer started",
			logger.String("topic", topic),
			logger.String("group", c.cfg.GroupID))
	}
	return nil
}

func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		c.cancel()

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}

		var errs []error
		for _, r := range c.readers {
			errs = append(errs, r.Close())
		}
		if c.dlq != nil {
			errs = append(errs, c.dlq.Close())
		}
		if err := errors.Join(errs...); err != nil && stopErr == nil {
			stopErr = err
		}
	})
	return stopErr
}

func (c *Consumer) consume(r *kafka.Reader, h MessageHandler) {
	defer c.wg.Done()

	for {
		msg, err := r.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch", logger.String("topic", h.Topic()), logger.Error(err))
			if !c.sleep(c.cfg.BackoffMin) {
				return
			}
			continue
		}

		start := time.Now()
		err = c.handleWithRetry(h, msg)
		observeConsume(h.Topic(), time.Since(start), err)

		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if !c.park(h.Topic(), msg, err) {
				// without a dead-letter topic the offset stays put and the
				// message is redelivered after a restart
				continue
			}
		}
		if err := r.CommitMessages(c.ctx, msg); err != nil && c.ctx.Err() == nil {
			c.logger.Error("kafka commit", logger.String("topic", h.Topic()), logger.Error(err))
		}
	}
}

func (c *Consumer) handleWithRetry(h MessageHandler, msg kafka.Message) (err error) {
	for attempt := 1; ; attempt++ {
		err = c.safeHandle(h, msg)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		c.logger.Warn("kafka handler failed, retrying",
			logger.String("topic", h.Topic()),
			logger.Int("attempt", attempt),
			logger.Error(err))
		if !c.sleep(backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return c.ctx.Err()
		}
	}
}

func (c *Consumer) safeHandle(h MessageHandler, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return h.Handle(c.ctx, msg.Key, msg.Value)
}

// park writes a failed message to the dead-letter topic and reports whether
// the offset may be committed.
func (c *Consumer) park(topic string, msg kafka.Message, cause error) bool {
	c.logger.Error("kafka message failed",
		logger.String("topic", topic),
		logger.Int64("offset", msg.Offset),
		logger.Error(cause))
	if c.dlq == nil {
		return false
	}
	err := c.dlq.WriteMessages(c.ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.logger.Error("kafka dlq write", logger.String("topic", c.cfg.DLQTopic), logger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// backoff doubles from min per attempt up to max and removes up to half as
// jitter.
func backoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := max
	if attempt < 31 {
		if exp := min << uint(attempt-1); exp > 0 && exp < max {
			d = exp
		}
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	return d
}
