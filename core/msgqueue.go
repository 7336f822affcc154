// File: core/msgqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// msgQueue is the protocol-side buffering primitive: a bounded FIFO of
// messages with parked operations on both ends and a blocking consumer
// interface for pipe writer goroutines. Send/recv buffer depth options
// set its capacity.

package core

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

type msgQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	fifo    *queue.Queue // of *message.Message
	cap     int
	readers []*operation
	writers []*operation
	closed  bool
}

func newMsgQueue(capacity int) *msgQueue {
	if capacity < 1 {
		capacity = 1
	}
	q := &msgQueue{fifo: queue.New(), cap: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// setCap adjusts the queue depth. Shrinking does not evict messages
// already buffered.
func (q *msgQueue) setCap(n int) {
	q.mu.Lock()
	q.cap = n
	q.cond.Broadcast()
	q.mu.Unlock()
}

// takeReaderLocked pops the oldest still-live parked receive operation.
func (q *msgQueue) takeReaderLocked() *operation {
	for len(q.readers) > 0 {
		r := q.readers[0]
		q.readers = q.readers[1:]
		if !r.done() {
			return r
		}
	}
	return nil
}

func (q *msgQueue) liveReaderLocked() bool {
	for _, r := range q.readers {
		if !r.done() {
			return true
		}
	}
	return false
}

// deliverLocked hands m to a parked reader or buffers it. It never
// fails: a racing reader cancellation may transiently push the FIFO
// one past capacity, which is preferred over losing an accepted
// message.
func (q *msgQueue) deliverLocked(m *message.Message) {
	for {
		r := q.takeReaderLocked()
		if r == nil {
			break
		}
		if r.fire(m, nil) {
			return
		}
	}
	q.fifo.Add(m)
	q.cond.Broadcast()
}

// promoteWritersLocked moves parked writers' messages into the FIFO
// while space allows, completing their operations.
func (q *msgQueue) promoteWritersLocked() {
	for q.fifo.Length() < q.cap && len(q.writers) > 0 {
		w := q.writers[0]
		q.writers = q.writers[1:]
		if w.fire(nil, nil) {
			q.fifo.Add(w.msg)
			q.cond.Broadcast()
		}
	}
}

// put registers a send operation. The operation completes successfully
// once the queue accepts its message, completes later if it parks, or
// is rejected synchronously with an error (closed queue, or nonblock
// with no room).
func (q *msgQueue) put(op *operation) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return api.ErrClosed
	}
	if q.liveReaderLocked() || q.fifo.Length() < q.cap {
		if op.fire(nil, nil) {
			q.deliverLocked(op.msg)
		}
		q.mu.Unlock()
		return nil
	}
	if op.nonblock {
		q.mu.Unlock()
		return api.ErrTryAgain
	}
	q.writers = append(q.writers, op)
	q.mu.Unlock()
	return nil
}

// get registers a receive operation: completed immediately when a
// message is available, rejected for nonblock, parked otherwise.
func (q *msgQueue) get(op *operation) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return api.ErrClosed
	}
	q.promoteWritersLocked()
	if q.fifo.Length() > 0 {
		m := q.fifo.Peek().(*message.Message)
		if op.fire(m, nil) {
			q.fifo.Remove()
			q.promoteWritersLocked()
			q.cond.Broadcast()
		}
		q.mu.Unlock()
		return nil
	}
	if op.nonblock {
		q.mu.Unlock()
		return api.ErrTryAgain
	}
	q.readers = append(q.readers, op)
	q.cond.Broadcast()
	q.mu.Unlock()
	return nil
}

// putMsg offers an inbound message without blocking; false means the
// queue is full or closed and the caller keeps ownership.
func (q *msgQueue) putMsg(m *message.Message) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.liveReaderLocked() || q.fifo.Length() < q.cap {
		q.deliverLocked(m)
		q.mu.Unlock()
		return true
	}
	q.mu.Unlock()
	return false
}

// putMsgWait offers an inbound message, blocking for space. stopped is
// polled on every wake; returning true abandons the attempt.
func (q *msgQueue) putMsgWait(m *message.Message, stopped func() bool) bool {
	q.mu.Lock()
	for {
		if q.closed || (stopped != nil && stopped()) {
			q.mu.Unlock()
			return false
		}
		if q.liveReaderLocked() || q.fifo.Length() < q.cap {
			q.deliverLocked(m)
			q.mu.Unlock()
			return true
		}
		q.cond.Wait()
	}
}

// popWait blocks until a message is available, the queue closes, or
// stopped reports true. Pipe writer goroutines consume through here.
func (q *msgQueue) popWait(stopped func() bool) (*message.Message, bool) {
	q.mu.Lock()
	for {
		if stopped != nil && stopped() {
			q.mu.Unlock()
			return nil, false
		}
		q.promoteWritersLocked()
		if q.fifo.Length() > 0 {
			m := q.fifo.Remove().(*message.Message)
			q.cond.Broadcast()
			q.mu.Unlock()
			return m, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.cond.Wait()
	}
}

// wake kicks every waiter so stopped predicates get re-evaluated.
func (q *msgQueue) wake() {
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}

// close drains the queue, completes every parked operation with
// ErrClosed, and rejects all further traffic.
func (q *msgQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	rs, ws := q.readers, q.writers
	q.readers, q.writers = nil, nil
	var drained []*message.Message
	for q.fifo.Length() > 0 {
		drained = append(drained, q.fifo.Remove().(*message.Message))
	}
	q.cond.Broadcast()
	q.mu.Unlock()

	for _, r := range rs {
		r.fire(nil, api.ErrClosed)
	}
	for _, w := range ws {
		w.fire(w.msg, api.ErrClosed)
	}
	for _, m := range drained {
		m.Free()
	}
}
