// File: internal/concurrency/task_ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// taskRing is the bounded per-worker completion queue. Producers are
// the many goroutines finishing operations (pipe readers, timers,
// cancellers), the consumer is the one worker that owns the ring, so
// the ring is multi-producer/single-consumer: slot sequence numbers
// order producers against each other and against the consumer, in the
// style of Vyukov's bounded queue.

package concurrency

import "sync/atomic"

type ringSlot struct {
	seq  uint64
	task TaskFunc
}

type taskRing struct {
	mask  uint64
	slots []ringSlot
	head  uint64 // consumer position, advanced only by the owning worker
	tail  uint64 // producer claim position, advanced by CAS
}

// newTaskRing creates a ring with capacity rounded up to a power of two.
func newTaskRing(capacity int) *taskRing {
	size := 1
	for size < capacity {
		size <<= 1
	}
	r := &taskRing{mask: uint64(size - 1), slots: make([]ringSlot, size)}
	for i := range r.slots {
		r.slots[i].seq = uint64(i)
	}
	return r
}

// push enqueues from any goroutine. A producer first claims a slot by
// CAS on tail, then publishes the task by bumping the slot's sequence;
// a claim that loses the CAS retries on the new tail. Returns false
// when the ring is full.
func (r *taskRing) push(task TaskFunc) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		slot := &r.slots[tail&r.mask]
		seq := atomic.LoadUint64(&slot.seq)
		switch {
		case seq == tail:
			if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
				slot.task = task
				atomic.StoreUint64(&slot.seq, tail+1)
				return true
			}
		case seq < tail:
			// The slot still holds an unconsumed task from the previous
			// lap: the ring is full.
			return false
		default:
			// Another producer claimed this slot but has not published
			// yet; reload tail and retry.
		}
	}
}

// pop dequeues; only the owning worker may call it. Returns false when
// no published task is ready, including while a producer holds a
// claimed-but-unpublished slot.
func (r *taskRing) pop() (TaskFunc, bool) {
	head := atomic.LoadUint64(&r.head)
	slot := &r.slots[head&r.mask]
	if atomic.LoadUint64(&slot.seq) != head+1 {
		return nil, false
	}
	task := slot.task
	slot.task = nil
	// Release the slot for the producers' next lap.
	atomic.StoreUint64(&slot.seq, head+uint64(len(r.slots)))
	atomic.StoreUint64(&r.head, head+1)
	return task, true
}
