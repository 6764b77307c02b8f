// Package journal records every unit the world serializer executes.
package journal

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const DefaultBufferSize = 1024

// Entry is one executed unit.
type Entry struct {
	Time       time.Time `json:"time"`
	Kind       string    `json:"kind"`
	Name       string    `json:"name,omitempty"`
	Actor      uint64    `json:"actor,omitempty"`
	Text       string    `json:"text,omitempty"`
	DurationUs int64     `json:"duration_us"`
	Outcome    string    `json:"outcome"`
}

// Journal hands entries to a writer goroutine. Record never blocks; entries
// arriving while the buffer is full are counted and dropped.
type Journal struct {
	w       *JSONLZstdWriter
	entries chan Entry
	flush   time.Duration
	dropped atomic.Int64
}

type JournalOpt func(*Journal)

func WithBufferSize(n int) JournalOpt {
	return func(j *Journal) {
		j.entries = make(chan Entry, n)
	}
}

func WithFlushInterval(d time.Duration) JournalOpt {
	return func(j *Journal) {
		j.flush = d
	}
}

func New(dir string, opts ...JournalOpt) *Journal {
	j := &Journal{
		w:       NewJSONLZstdWriter(dir, "commands"),
		entries: make(chan Entry, DefaultBufferSize),
		flush:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) Record(e Entry) {
	select {
	case j.entries <- e:
	default:
		j.dropped.Add(1)
	}
}

// Dropped counts entries lost to a full buffer.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Start writes entries until ctx is cancelled, then drains what is buffered
// and closes the current file.
func (j *Journal) Start(ctx context.Context) error {
	ticker := time.NewTicker(j.flush)
	defer ticker.Stop()

	for {
		select {
		case e := <-j.entries:
			j.write(ctx, e)
		case <-ticker.C:
			if err := j.w.Flush(); err != nil {
				slog.WarnContext(ctx, "flushing journal", "error", err)
			}
		case <-ctx.Done():
			for {
				select {
				case e := <-j.entries:
					j.write(ctx, e)
				default:
					return j.w.Close()
				}
			}
		}
	}
}

func (j *Journal) write(ctx context.Context, e Entry) {
	if err := j.w.Write(e); err != nil {
		slog.WarnContext(ctx, "writing journal entry", "error", err)
	}
}
