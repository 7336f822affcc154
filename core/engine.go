// File: core/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The completion engine: one process-wide instance owning the worker
// pool that runs aio completion callbacks, the serialized dispatch
// goroutine for pipe-event observers, the handle registries, and the
// runtime counters.

package core

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-sp/control"
	"github.com/momentics/hioload-sp/internal/concurrency"
)

var logger = logrus.WithField("pkg", "sp.core")

type engine struct {
	exec   *concurrency.Executor
	events chan func()
	stats  *control.Registry

	sockets   *registry
	ctxs      *registry
	pipes     *registry
	dialers   *registry
	listeners *registry
}

var (
	engOnce sync.Once
	eng     *engine
)

func defaultEngine() *engine {
	engOnce.Do(func() {
		eng = &engine{
			exec:      concurrency.NewExecutor(0),
			events:    make(chan func(), 128),
			stats:     control.NewRegistry(),
			sockets:   newRegistry(),
			ctxs:      newRegistry(),
			pipes:     newRegistry(),
			dialers:   newRegistry(),
			listeners: newRegistry(),
		}
		go eng.eventLoop()
	})
	return eng
}

// dispatch runs fn on the completion pool. If the pool is saturated or
// closed the task runs on a fresh goroutine instead: a completion must
// never be dropped.
func (e *engine) dispatch(fn func()) {
	if err := e.exec.Submit(fn); err != nil {
		go fn()
	}
}

// eventLoop is the shared pipe-event dispatch goroutine. Observers run
// here one at a time; a long-blocking observer stalls unrelated pipe
// events system-wide, which is part of the observer contract.
func (e *engine) eventLoop() {
	for fn := range e.events {
		fn()
	}
}

// notifySync queues fn on the dispatch goroutine and waits for it to
// finish. Used for PipeAdded so the event is observed before traffic.
func (e *engine) notifySync(fn func()) {
	done := make(chan struct{})
	e.events <- func() {
		fn()
		close(done)
	}
	<-done
}

// notifyAsync queues fn without waiting.
func (e *engine) notifyAsync(fn func()) {
	e.events <- fn
}

// Stats exposes the engine's runtime counters.
func Stats() map[string]int64 {
	return defaultEngine().stats.Snapshot()
}
