// File: core/operation.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// operation is one submitted unit of asynchronous work. Several paths
// race to finish it: delivery, timeout, cancel, close. Whoever wins
// the fire CAS owns completion; every loser is a no-op, which is what
// guarantees exactly one terminal callback invocation per submit.

package core

import (
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-sp/message"
)

type opKind int

const (
	opSend opKind = iota
	opRecv
	opSleep
)

type operation struct {
	a        *Aio
	kind     opKind
	msg      *message.Message
	nonblock bool
	fired    int32

	// timer is armed by submit after the operation is already visible
	// to delivery sites, so fire may run concurrently with the arming.
	timer atomic.Pointer[time.Timer]

	// hook runs once on successful completion, on the firing
	// goroutine, before the callback is dispatched. Protocols use it
	// to intercept delivery (e.g. rep stashes the reply backtrace).
	hook func(*message.Message)
}

// fire completes the operation exactly once with the given result.
// Returns false when another path already completed it.
func (o *operation) fire(m *message.Message, err error) bool {
	if !atomic.CompareAndSwapInt32(&o.fired, 0, 1) {
		return false
	}
	if tm := o.timer.Load(); tm != nil {
		tm.Stop()
	}
	if err == nil && o.hook != nil {
		o.hook(m)
	}
	a := o.a
	a.eng.dispatch(func() { a.complete(o, m, err) })
	return true
}

// done reports whether the operation has already been completed.
// Parking sites use it to skip dead entries lazily.
func (o *operation) done() bool {
	return atomic.LoadInt32(&o.fired) == 1
}
