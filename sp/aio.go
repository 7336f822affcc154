// File: sp/aio.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sp

import (
	"time"

	"github.com/momentics/hioload-sp/core"
	"github.com/momentics/hioload-sp/message"
)

// Aio is a handle for one asynchronous operation slot. The completion
// callback runs on a driver-owned worker, exactly once per submitted
// operation, and never concurrently with itself; resubmitting from
// inside the callback is allowed and is the idiomatic way to run a
// receive loop.
type Aio struct {
	a *core.Aio
}

// NewAio creates an aio. cb may be nil for purely Wait-driven use.
// The callback must not call Wait or Stop on its own aio.
func NewAio(cb func(*Aio)) *Aio {
	w := &Aio{}
	if cb == nil {
		w.a = core.NewAio(nil)
	} else {
		w.a = core.NewAio(func() { cb(w) })
	}
	return w
}

// Error returns the terminal status of the last completed operation.
// While an operation is in flight, or before any ran, it reports
// ErrState.
func (a *Aio) Error() error {
	_, err := a.a.Result()
	return err
}

// Message returns the message produced by the last completed receive,
// or recovered by a failed send. The caller takes ownership; a second
// call returns the same pointer, so take it once.
func (a *Aio) Message() *message.Message {
	m, _ := a.a.Result()
	return m
}

// Cancel asks the outstanding operation to finish early with
// ErrCanceled. Safe from any goroutine, including the callback.
func (a *Aio) Cancel() { a.a.Cancel() }

// Wait blocks until the outstanding operation has completed and its
// callback returned. Calling Wait with nothing outstanding returns
// immediately.
func (a *Aio) Wait() { a.a.Wait() }

// Stop cancels and waits. After Stop the aio is idle and reusable.
func (a *Aio) Stop() { a.a.Stop() }

// Sleep schedules a completion after d with no I/O attached, useful
// for timed state machines built from aio callbacks.
func (a *Aio) Sleep(d time.Duration) error { return a.a.Sleep(d) }
