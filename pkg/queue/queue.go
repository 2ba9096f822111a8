package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotRunning   = errors.New("queue: not running")
	ErrUnknownType  = errors.New("queue: no job registered for type")
	ErrQueueFull    = errors.New("queue: buffer full")
	ErrAlreadyStart = errors.New("queue: already running")
)

// Queue dispatches typed messages to registered jobs on a worker pool.
type Queue interface {
	RegisterJob(job Job)
	Start() error
	Stop(ctx context.Context) error
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// Config is shared by the local and redis queues.
type Config struct {
	Workers    int           // number of workers
	BufferSize int           // local queue channel capacity
	RetryLimit int           // retries after the first attempt
	RetryDelay time.Duration // wait before a retry becomes visible
}

func (c *Config) withDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.BufferSize <= 0 {
		out.BufferSize = 64
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 5 * time.Second
	}
	return &out
}

// Message is the envelope moved through a queue.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

func newMessage(id, msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Message{
		ID:        id,
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now(),
	}, nil
}

// ParsePayload converts a handler payload into T. Both queues hand jobs a
// json.RawMessage; typed values are accepted for direct calls.
func ParsePayload[T any](payload interface{}) (*T, error) {
	var result T

	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	case []byte:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	case map[string]interface{}:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal map payload: %w", err)
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
