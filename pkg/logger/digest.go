package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Publisher ships a batch of digest entries. The kafka producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

type DigestConfig struct {
	Interval  time.Duration // flush period
	MaxUnique int           // flush early once this many distinct entries pile up
	Topic     string
	Publisher Publisher
}

// DigestEntry is one distinct error entry with its occurrence count.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Digest folds repeated entries together and publishes them in batches.
type Digest struct {
	cfg     *DigestConfig
	mu      sync.Mutex
	entries map[uint64]*DigestEntry
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDigest(cfg *DigestConfig) *Digest {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MaxUnique <= 0 {
		cfg.MaxUnique = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Digest{
		cfg:     cfg,
		entries: make(map[uint64]*DigestEntry),
		cancel:  cancel,
	}

	d.wg.Add(1)
	go d.loop(ctx)
	return d
}

// Add records one occurrence.
func (d *Digest) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	d.mu.Lock()
	if e, ok := d.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		d.entries[key] = &DigestEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	var batch []DigestEntry
	if len(d.entries) >= d.cfg.MaxUnique {
		batch = d.drainLocked()
	}
	closed := d.closed
	if batch != nil && !closed {
		d.wg.Add(1)
	}
	d.mu.Unlock()

	switch {
	case batch == nil:
	case closed:
		d.publish(batch)
	default:
		go func() {
			defer d.wg.Done()
			d.publish(batch)
		}()
	}
}

// Pending reports how many distinct entries await the next flush.
func (d *Digest) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func entryKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	// encoding/json sorts map keys, so equal field sets hash equally
	raw, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
		C string                 `json:"c"`
	}{level, message, fields, caller})
	return xxhash.Sum64(raw)
}

func (d *Digest) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.flush()
		case <-ctx.Done():
			d.flush()
			return
		}
	}
}

func (d *Digest) flush() {
	d.mu.Lock()
	batch := d.drainLocked()
	d.mu.Unlock()
	if len(batch) > 0 {
		d.publish(batch)
	}
}

func (d *Digest) drainLocked() []DigestEntry {
	if len(d.entries) == 0 {
		return nil
	}
	out := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, *e)
	}
	d.entries = make(map[uint64]*DigestEntry)
	return out
}

func (d *Digest) publish(batch []DigestEntry) {
	if d.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.cfg.Publisher.Publish(ctx, d.cfg.Topic, nil, batch); err != nil {
		// the logger itself is what failed to ship; fall back to stderr
		fmt.Fprintf(os.Stderr, "log digest: publish %d entries: %v\n", len(batch), err)
	}
}

// Close stops the flush loop after a final flush and waits for early flushes
// still in flight.
func (d *Digest) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
}
