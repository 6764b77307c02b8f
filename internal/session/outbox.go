package session

import (
	"sync"
	"sync/atomic"
)

// DefaultQueueSize bounds the number of messages waiting to be written.
const DefaultQueueSize = 500

// Outbox is a bounded queue of encoded messages with a single consumer.
// Push never blocks: when the queue is full the new message is dropped.
type Outbox struct {
	mu      sync.Mutex
	ch      chan []byte
	closed  bool
	dropped atomic.Int64
}

func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Outbox{ch: make(chan []byte, size)}
}

// Push queues msg and reports whether it was accepted.
func (o *Outbox) Push(msg []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	select {
	case o.ch <- msg:
		return true
	default:
		o.dropped.Add(1)
		return false
	}
}

// Close stops accepting messages. Messages already queued are still
// delivered to the consumer.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}

// C is drained by the writer.
func (o *Outbox) C() <-chan []byte { return o.ch }

// Len is the number of queued messages.
func (o *Outbox) Len() int { return len(o.ch) }

// Dropped counts messages rejected because the queue was full.
func (o *Outbox) Dropped() int64 { return o.dropped.Load() }
