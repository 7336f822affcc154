// File: core/pipe.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// pipe is one live connection inside a socket: a transport Conn plus
// reader and writer goroutines bridging it to the protocol core.

package core

import (
	"sync/atomic"

	"github.com/momentics/hioload-sp/api"
)

type pipe struct {
	id     uint32
	s      *Socket
	conn   api.Conn
	d      *Dialer
	l      *Listener
	sendQ  *msgQueue // nil for balanced protocols; they share the socket queue
	closed int32
	done   chan struct{}
}

func (p *pipe) stopped() bool {
	return atomic.LoadInt32(&p.closed) == 1
}

// readerLoop pulls inbound messages into the protocol core until the
// connection fails or the pipe is removed.
func (p *pipe) readerLoop() {
	for {
		m, err := p.conn.Recv()
		if err != nil {
			if !p.stopped() {
				logger.WithField("pipe", p.id).WithError(err).Debug("pipe receive failed")
			}
			p.s.removePipe(p)
			return
		}
		m.SetPipe(p.id)
		p.s.eng.stats.Add("msgs_received", 1)
		p.s.proto.fromPipe(p, m)
	}
}

// writerLoop drains src onto the wire. src is either the pipe's own
// queue or the socket's balanced send queue.
func (p *pipe) writerLoop(src *msgQueue) {
	for {
		m, ok := src.popWait(p.stopped)
		if !ok {
			return
		}
		if err := p.conn.Send(m); err != nil {
			// The message was accepted by the socket already; transport
			// delivery is at-most-once past that point.
			m.Free()
			if !p.stopped() {
				logger.WithField("pipe", p.id).WithError(err).Debug("pipe send failed")
			}
			p.s.removePipe(p)
			return
		}
		p.s.eng.stats.Add("msgs_sent", 1)
	}
}

// Pipe is the public handle for one connection. It is a plain value;
// dropping it does not close the connection.
type Pipe struct {
	p *pipe
}

// ID returns the pipe's registry identifier, or 0 for the placeholder
// handle carried by PipeConnectError events.
func (pp Pipe) ID() int {
	if pp.p == nil {
		return 0
	}
	return int(pp.p.id)
}

// SocketID returns the owning socket's id, or 0.
func (pp Pipe) SocketID() int {
	if pp.p == nil || pp.p.s == nil {
		return 0
	}
	return pp.p.s.ID()
}

// DialerID returns the creating dialer's id, or 0.
func (pp Pipe) DialerID() int {
	if pp.p == nil || pp.p.d == nil {
		return 0
	}
	return int(pp.p.d.id)
}

// ListenerID returns the creating listener's id, or 0.
func (pp Pipe) ListenerID() int {
	if pp.p == nil || pp.p.l == nil {
		return 0
	}
	return int(pp.p.l.id)
}

// Close disconnects the pipe. A dialer-created pipe will be redialed
// by its dialer.
func (pp Pipe) Close() {
	if pp.p != nil && pp.p.s != nil && pp.p.conn != nil {
		pp.p.s.removePipe(pp.p)
	}
}

// GetOption reads a pipe-scoped option.
func (pp Pipe) GetOption(o api.Option) (any, error) {
	if pp.p == nil || pp.p.conn == nil {
		return nil, api.ErrClosed
	}
	switch o {
	case api.OptLocalAddr:
		return pp.p.conn.LocalAddr(), nil
	case api.OptRemoteAddr:
		return pp.p.conn.RemoteAddr(), nil
	default:
		return nil, api.ErrNotSupported
	}
}
