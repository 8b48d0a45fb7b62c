// Package messenger provides the single-slot handoff that connects one
// producer stage to one consumer stage.
//
// A Messenger holds at most one value. Push overwrites whatever is in the
// slot and never blocks; Pull blocks until a value newer than the last one
// the consumer saw is available. Values the consumer never pulled are
// superseded and silently dropped (most-recent-wins). In a per-tick control
// loop stale data is worse than missing data.
//
// Thread-safety:
//   - Push and Close may be called from any goroutine
//   - Pull MUST be called from a single consumer goroutine
package messenger

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pull once the messenger has been closed.
// It signals shutdown, not failure.
var ErrClosed = errors.New("messenger: closed")

// Stats is a point-in-time snapshot of messenger counters.
type Stats struct {
	// Sequence is the sequence number of the most recent Push
	Sequence uint64

	// Pushed counts every Push
	Pushed uint64

	// Pulled counts every value handed to the consumer
	Pulled uint64

	// Superseded counts values overwritten before the consumer pulled them
	Superseded uint64
}

// Messenger is a single-slot, most-recent-wins handoff between exactly one
// producer and one consumer.
type Messenger[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	slot   T
	full   bool   // slot holds a value not yet pulled
	seq    uint64 // advanced by every Push
	seen   uint64 // last sequence handed to the consumer
	closed bool
	// draining: no more pushes; a pending value is still delivered
	draining bool

	pushed     uint64
	pulled     uint64
	superseded uint64
}

// New creates an empty, open messenger.
func New[T any]() *Messenger[T] {
	m := &Messenger[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Push replaces the slot content, advances the sequence number and wakes
// the consumer. It never blocks. Returns the new sequence number, or 0 if
// the messenger is closed or draining (the value is discarded).
func (m *Messenger[T]) Push(v T) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.draining {
		return 0
	}

	if m.full {
		m.superseded++
	}

	m.slot = v
	m.full = true
	m.seq++
	m.pushed++

	m.cond.Signal()
	return m.seq
}

// Pull blocks until a value newer than the last pulled one is available,
// then moves it out of the slot and returns it with its sequence number.
//
// Returns ErrClosed after Close, even if an unpulled value remains: shutdown
// takes priority over delivery. After CloseAfterDrain the pending value, if
// any, is returned first and ErrClosed follows. Returns ctx.Err() if ctx is
// done first.
func (m *Messenger[T]) Pull(ctx context.Context) (T, uint64, error) {
	var zero T

	// Wake the waiter when ctx is done. Broadcast under the lock so the
	// wakeup cannot slip in between the ctx check and cond.Wait.
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	for !m.closed && m.seq == m.seen {
		if m.draining {
			return zero, m.seen, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return zero, m.seen, err
		}
		m.cond.Wait()
	}

	if m.closed {
		return zero, m.seen, ErrClosed
	}

	v := m.slot
	m.slot = zero
	m.full = false
	m.seen = m.seq
	m.pulled++

	return v, m.seen, nil
}

// Close signals shutdown and wakes a blocked Pull. Idempotent.
// Close implements io.Closer and always returns nil.
func (m *Messenger[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	var zero T
	m.closed = true
	m.slot = zero
	m.full = false
	m.cond.Broadcast()
	return nil
}

// CloseAfterDrain ends the stream from the producer side. Further pushes
// are discarded, but a value the consumer has not pulled yet is still
// delivered before Pull reports ErrClosed. A later Close drops it.
// Idempotent; always returns nil.
func (m *Messenger[T]) CloseAfterDrain() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.draining {
		return nil
	}
	m.draining = true
	m.cond.Broadcast()
	return nil
}

// Closed reports whether Close or CloseAfterDrain has been called.
func (m *Messenger[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed || m.draining
}

// Stats returns a snapshot of the messenger counters.
func (m *Messenger[T]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Sequence:   m.seq,
		Pushed:     m.pushed,
		Pulled:     m.pulled,
		Superseded: m.superseded,
	}
}
