// File: internal/concurrency/executor.go
// Package concurrency implements the completion task executor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker goroutines, using per-worker
// multi-producer rings and a global queue fallback. The taskRing type is
// defined in task_ring.go.
//
// Unlike a generic task pool, this executor never recovers panics: a fault
// inside a completion callback would leave the owning operation in an
// inconsistent half-completed state, so it is allowed to crash the process.

package concurrency

import (
	"runtime"
	"sync/atomic"
	"time"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	globalQueue chan TaskFunc // fallback queue for tasks when local rings are full
	localRings  []*taskRing   // per-worker completion rings
	workers     []*worker     // worker instances
	closeCh     chan struct{} // signals executor shutdown
	closed      int32         // atomic flag: 1 if closed
	numWorkers  int32

	// statistics
	totalTasks     int64
	completedTasks int64
}

// NewExecutor creates a new Executor with the given number of workers.
// If numWorkers <= 0, defaults to runtime.NumCPU().
func NewExecutor(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		globalQueue: make(chan TaskFunc, numWorkers*16),
		closeCh:     make(chan struct{}),
		numWorkers:  int32(numWorkers),
	}
	e.localRings = make([]*taskRing, numWorkers)
	e.workers = make([]*worker, numWorkers)
	for i := 0; i < numWorkers; i++ {
		e.localRings[i] = newTaskRing(1024)
	}
	for i := 0; i < numWorkers; i++ {
		w := &worker{
			id:        i,
			executor:  e,
			localRing: e.localRings[i],
			stopCh:    make(chan struct{}),
		}
		e.workers[i] = w
		go w.run()
	}
	return e
}

// Submit enqueues a task for execution, returning ErrExecutorClosed if the
// executor is closed or saturated. Callers that must not lose the task are
// expected to fall back to running it on a fresh goroutine.
func (e *Executor) Submit(task TaskFunc) error {
	if atomic.LoadInt32(&e.closed) == 1 {
		return ErrExecutorClosed
	}
	// round-robin across worker rings; push is safe from any goroutine
	n := atomic.AddInt64(&e.totalTasks, 1)
	idx := int(n % int64(e.NumWorkers()))
	if e.localRings[idx].push(task) {
		return nil
	}
	// fallback to global queue
	select {
	case e.globalQueue <- task:
		return nil
	case <-e.closeCh:
		return ErrExecutorClosed
	default:
		return ErrExecutorClosed
	}
}

// NumWorkers returns the current number of active workers.
func (e *Executor) NumWorkers() int {
	return int(atomic.LoadInt32(&e.numWorkers))
}

// Close shuts down the executor. Tasks already queued are abandoned;
// the owning engine drains its operations before calling Close.
func (e *Executor) Close() {
	if atomic.CompareAndSwapInt32(&e.closed, 0, 1) {
		close(e.closeCh)
		for _, w := range e.workers {
			close(w.stopCh)
		}
	}
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	return map[string]int64{
		"total_tasks":     atomic.LoadInt64(&e.totalTasks),
		"completed_tasks": atomic.LoadInt64(&e.completedTasks),
		"pending_tasks":   atomic.LoadInt64(&e.totalTasks) - atomic.LoadInt64(&e.completedTasks),
		"num_workers":     int64(e.NumWorkers()),
	}
}

// worker represents a single executor goroutine.
type worker struct {
	id        int
	executor  *Executor
	localRing *taskRing
	stopCh    chan struct{}
}

// run is the main loop for a worker.
func (w *worker) run() {
	for {
		select {
		case <-w.stopCh:
			return
		default:
			// try the worker's own ring
			if task, ok := w.localRing.pop(); ok {
				w.executeTask(task)
				continue
			}
			// try global queue
			select {
			case task := <-w.executor.globalQueue:
				w.executeTask(task)
			case <-w.stopCh:
				return
			default:
				// backoff to reduce CPU spinning
				time.Sleep(time.Millisecond)
			}
		}
	}
}

// executeTask runs the task and updates statistics. No recover: see the
// package comment for why completion faults must abort.
func (w *worker) executeTask(task TaskFunc) {
	task()
	atomic.AddInt64(&w.executor.completedTasks, 1)
}
