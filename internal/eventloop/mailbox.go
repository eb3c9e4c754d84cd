package eventloop

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrClosed is returned when posting to a mailbox whose loop has stopped.
var ErrClosed = errors.New("event loop closed")

// Mailbox is a bounded FIFO of callbacks feeding a single consumer.
//
// Producers never drop work: Post waits for room (or for ctx/close), TryPost
// reports failure instead of waiting.
type Mailbox struct {
	ch      chan func()
	closed  chan struct{}
	closing atomic.Bool
	metrics Metrics
}

// NewMailbox creates a mailbox holding up to capacity pending callbacks.
func NewMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		panic("eventloop: capacity must be > 0")
	}
	return &Mailbox{
		ch:     make(chan func(), capacity),
		closed: make(chan struct{}),
	}
}

// Post enqueues fn, waiting while the mailbox is full.
func (m *Mailbox) Post(ctx context.Context, fn func()) error {
	if m.closing.Load() {
		return ErrClosed
	}
	select {
	case m.ch <- fn:
		m.metrics.addPosted()
		return nil
	case <-m.closed:
		return ErrClosed
	case <-ctx.Done():
		m.metrics.addRejected()
		return ctx.Err()
	}
}

// TryPost enqueues fn without waiting. Returns false if the mailbox is full or closed.
func (m *Mailbox) TryPost(fn func()) bool {
	if m.closing.Load() {
		return false
	}
	select {
	case m.ch <- fn:
		m.metrics.addPosted()
		return true
	default:
		m.metrics.addRejected()
		return false
	}
}

// Len returns the number of pending callbacks.
func (m *Mailbox) Len() int {
	return len(m.ch)
}

// Cap returns the mailbox capacity.
func (m *Mailbox) Cap() int {
	return cap(m.ch)
}

func (m *Mailbox) close() {
	if m.closing.CompareAndSwap(false, true) {
		close(m.closed)
	}
}

// GetMetrics returns a snapshot of the mailbox counters.
func (m *Mailbox) GetMetrics() Metrics {
	return Metrics{
		Posted:    atomic.LoadInt64(&m.metrics.Posted),
		Processed: atomic.LoadInt64(&m.metrics.Processed),
		Rejected:  atomic.LoadInt64(&m.metrics.Rejected),
		Panics:    atomic.LoadInt64(&m.metrics.Panics),
	}
}

// Metrics provides lock-free counters for a Mailbox.
type Metrics struct {
	Posted    int64
	Processed int64
	Rejected  int64
	Panics    int64
}

func (m *Metrics) addPosted()    { atomic.AddInt64(&m.Posted, 1) }
func (m *Metrics) addProcessed() { atomic.AddInt64(&m.Processed, 1) }
func (m *Metrics) addRejected()  { atomic.AddInt64(&m.Rejected, 1) }
func (m *Metrics) addPanic()     { atomic.AddInt64(&m.Panics, 1) }
