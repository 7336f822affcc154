// File: core/context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ctx is a logical conversation channel bound to a socket. Contexts
// let N request/reply exchanges proceed concurrently over one socket
// without head-of-line blocking between them. Closing a context never
// closes its socket; closing the socket invalidates its contexts.

package core

import (
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

type ctxOptions struct {
	recvTimeout time.Duration
	sendTimeout time.Duration
}

// Ctx is the context core shared by any number of handles.
type Ctx struct {
	id     uint32
	s      *Socket
	cc     ctxCore
	opts   ctxOptions
	closed int32
}

// ID returns the context's registry identifier.
func (c *Ctx) ID() int { return int(c.id) }

// Socket returns the owning socket core.
func (c *Ctx) Socket() *Socket { return c.s }

func (c *Ctx) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1 || c.s.isClosed()
}

// Close invalidates the context. Parked operations complete with
// ErrClosed.
func (c *Ctx) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return api.ErrClosed
	}
	c.cc.close()
	c.s.eng.ctxs.remove(c.id)
	return nil
}

// SendAio submits an asynchronous send scoped to this conversation.
func (c *Ctx) SendAio(a *Aio, m *message.Message, flags api.Flags) error {
	if m == nil {
		return api.ErrInvalidArg
	}
	if c.isClosed() {
		return api.ErrClosed
	}
	return a.submit(opSend, c.sendTimeout(), m, flags&api.FlagNonblock != 0, c.cc.send)
}

// RecvAio submits an asynchronous receive scoped to this conversation.
func (c *Ctx) RecvAio(a *Aio, flags api.Flags) error {
	if c.isClosed() {
		return api.ErrClosed
	}
	return a.submit(opRecv, c.recvTimeout(), nil, flags&api.FlagNonblock != 0, c.cc.recv)
}

func (c *Ctx) sendTimeout() time.Duration {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.opts.sendTimeout
}

func (c *Ctx) recvTimeout() time.Duration {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.opts.recvTimeout
}

// SetOption adjusts a context-scoped option.
func (c *Ctx) SetOption(o api.Option, v any) error {
	if c.isClosed() {
		return api.ErrClosed
	}
	switch o {
	case api.OptRecvTimeout, api.OptSendTimeout:
		d, ok := v.(time.Duration)
		if !ok || d < 0 {
			return api.ErrInvalidArg
		}
		c.s.mu.Lock()
		if o == api.OptRecvTimeout {
			c.opts.recvTimeout = d
		} else {
			c.opts.sendTimeout = d
		}
		c.s.mu.Unlock()
		return nil
	case api.OptResendTime, api.OptSurveyTime:
		if po, ok := c.cc.(protoOptions); ok {
			return po.setProtoOption(o, v)
		}
		return api.ErrNotSupported
	default:
		return api.ErrNotSupported
	}
}

// GetOption reads a context-scoped option.
func (c *Ctx) GetOption(o api.Option) (any, error) {
	if c.isClosed() {
		return nil, api.ErrClosed
	}
	switch o {
	case api.OptRecvTimeout:
		return c.recvTimeout(), nil
	case api.OptSendTimeout:
		return c.sendTimeout(), nil
	case api.OptResendTime, api.OptSurveyTime:
		if po, ok := c.cc.(protoOptions); ok {
			return po.getProtoOption(o)
		}
		return nil, api.ErrNotSupported
	default:
		return nil, api.ErrNotSupported
	}
}
