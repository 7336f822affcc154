// File: core/aio.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Aio is a single asynchronous operation slot: at most one outstanding
// operation, one registered completion callback, strict exactly-once
// completion. The callback trampoline holds a per-aio lock for the
// duration of the callback, so a callback never runs concurrently with
// itself; callbacks of different Aios run concurrently on the pool.

package core

import (
	"sync"
	"time"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

type aioState int32

const (
	aioIdle aioState = iota
	aioSubmitted
)

// Aio is an asynchronous operation slot. The zero value is not usable;
// create with NewAio.
type Aio struct {
	eng *engine
	cb  func()

	mu   sync.Mutex
	cond *sync.Cond
	cbMu sync.Mutex // serializes the callback trampoline

	state aioState
	inCB  bool
	op    *operation

	resMsg  *message.Message
	resErr  error
	everRan bool
}

// NewAio creates an aio with the given completion callback. A nil
// callback is allowed; such aios are driven with Wait. The callback
// runs on a driver-owned worker and must not call Wait on its own aio.
func NewAio(cb func()) *Aio {
	a := &Aio{eng: defaultEngine(), cb: cb}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// submit moves the aio to Submitted and hands a fresh operation to
// prep. prep either registers the operation with a delivery site and
// returns nil, or rejects it without any completion path armed; on
// rejection the aio rolls back to Idle and the error is returned
// synchronously with no callback invocation.
func (a *Aio) submit(kind opKind, timeout time.Duration, msg *message.Message, nonblock bool, prep func(*operation) error) error {
	a.mu.Lock()
	if a.state == aioSubmitted {
		a.mu.Unlock()
		return api.ErrTryAgain
	}
	op := &operation{a: a, kind: kind, msg: msg, nonblock: nonblock}
	a.op = op
	a.state = aioSubmitted
	a.mu.Unlock()

	if err := prep(op); err != nil {
		a.mu.Lock()
		if a.op == op {
			a.op = nil
			a.state = aioIdle
			a.cond.Broadcast()
		}
		a.mu.Unlock()
		return err
	}

	// Armed only after successful registration, so a completion may
	// already be racing in. fire loads the pointer atomically and the
	// CAS makes a late expiry a no-op; the done re-check below stops
	// the timer when a completion won before the store and read nil.
	if timeout > 0 {
		tm := time.AfterFunc(timeout, func() {
			op.fire(op.msg, api.ErrTimedOut)
		})
		op.timer.Store(tm)
		if op.done() {
			tm.Stop()
		}
	}
	return nil
}

// complete is the trampoline target, invoked on a pool worker.
func (a *Aio) complete(op *operation, m *message.Message, err error) {
	a.cbMu.Lock()
	a.mu.Lock()
	if a.op != op {
		// The exactly-once CAS in fire makes this unreachable; kept as
		// a guard against a misbehaving delivery site.
		a.mu.Unlock()
		a.cbMu.Unlock()
		return
	}
	a.op = nil
	a.resMsg = m
	a.resErr = err
	a.everRan = true
	a.state = aioIdle
	cb := a.cb
	a.inCB = cb != nil
	a.mu.Unlock()

	if cb != nil {
		// No recover here: a fault inside a completion callback is not
		// recoverable and must take the process down.
		cb()
		a.mu.Lock()
		a.inCB = false
		a.mu.Unlock()
	}

	a.mu.Lock()
	a.cond.Broadcast()
	a.mu.Unlock()
	a.eng.stats.Add("aio_completions", 1)
	a.cbMu.Unlock()
}

// Sleep submits a timer operation completing successfully after d, or
// earlier with ErrCanceled if cancelled.
func (a *Aio) Sleep(d time.Duration) error {
	return a.submit(opSleep, 0, nil, false, func(op *operation) error {
		time.AfterFunc(d, func() { op.fire(nil, nil) })
		return nil
	})
}

// Cancel requests early termination of the outstanding operation. It
// is idempotent, safe from any goroutine including the completion
// callback itself, and advisory: the completion callback still fires
// exactly once, with either the cancellation result or the natural
// one, whichever won.
func (a *Aio) Cancel() {
	a.mu.Lock()
	op := a.op
	a.mu.Unlock()
	if op != nil {
		op.fire(op.msg, api.ErrCanceled)
	}
}

// Wait blocks the calling goroutine until the outstanding operation,
// if any, has completed and its callback has returned. It holds no
// lock a completion needs, so it cannot deadlock against the driver.
func (a *Aio) Wait() {
	a.mu.Lock()
	for a.state == aioSubmitted || a.inCB {
		a.cond.Wait()
	}
	a.mu.Unlock()
}

// Stop cancels any outstanding operation and waits for it to finish.
// The aio is idle afterwards and may be reused or abandoned.
func (a *Aio) Stop() {
	a.Cancel()
	a.Wait()
}

// Result returns the outcome of the last completed operation: the
// received (or recovered) message and the terminal error. Calling it
// while an operation is in flight, or before any operation completed,
// yields ErrState rather than undefined behavior.
func (a *Aio) Result() (*message.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == aioSubmitted || !a.everRan {
		return nil, api.ErrState
	}
	return a.resMsg, a.resErr
}
