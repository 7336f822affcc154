// File: core/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket is the multiplexing endpoint core. It owns pipes, dialers,
// listeners, the protocol behavior, and the shared send/receive
// queues. Handles in package sp share one *Socket; open/closed state
// is a single atomic flag, so every clone observes a close at the same
// instant.

package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

type sockOptions struct {
	recvTimeout time.Duration
	sendTimeout time.Duration
	recvBuf     int
	sendBuf     int
	reconnMin   time.Duration
	reconnMax   time.Duration
	maxTTL      int
	transport   api.TransportOptions
}

func defaultSockOptions() sockOptions {
	return sockOptions{
		recvBuf:   16,
		sendBuf:   16,
		reconnMin: 100 * time.Millisecond,
		reconnMax: 8 * time.Second,
		maxTTL:    8,
		transport: *api.DefaultTransportOptions(),
	}
}

// PipeHook observes pipe lifecycle events. It runs on the shared
// dispatch goroutine and must not block for long.
type PipeHook func(Pipe, api.PipeEvent)

// Socket is the shared endpoint object behind any number of handles.
type Socket struct {
	id       uint32
	eng      *engine
	protoNum api.Protocol
	proto    protoCore

	mu        sync.Mutex
	pipes     map[uint32]*pipe
	dialers   map[uint32]*Dialer
	listeners map[uint32]*Listener
	opts      sockOptions

	recvQ *msgQueue
	sendQ *msgQueue

	hookMu sync.Mutex
	hook   PipeHook

	closed int32
}

// Open creates a socket core for the given protocol.
func Open(pn api.Protocol) (*Socket, error) {
	if !pn.Valid() {
		return nil, api.ErrInvalidArg
	}
	e := defaultEngine()
	s := &Socket{
		eng:       e,
		protoNum:  pn,
		pipes:     make(map[uint32]*pipe),
		dialers:   make(map[uint32]*Dialer),
		listeners: make(map[uint32]*Listener),
		opts:      defaultSockOptions(),
	}
	s.recvQ = newMsgQueue(s.opts.recvBuf)
	s.sendQ = newMsgQueue(s.opts.sendBuf)
	s.proto = newProtoCore(s)
	s.id = e.sockets.register(s)
	e.stats.Add("sockets_open", 1)
	return s, nil
}

// ID returns the socket's registry identifier.
func (s *Socket) ID() int { return int(s.id) }

// Proto returns the socket's protocol.
func (s *Socket) Proto() api.Protocol { return s.protoNum }

func (s *Socket) isClosed() bool { return atomic.LoadInt32(&s.closed) == 1 }

// Close tears the endpoint down: all dialers, listeners and pipes are
// closed, parked operations complete with ErrClosed, and every handle
// sharing this core observes the closed state immediately. Closing a
// closed socket returns ErrClosed.
func (s *Socket) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return api.ErrClosed
	}
	s.mu.Lock()
	dialers := make([]*Dialer, 0, len(s.dialers))
	for _, d := range s.dialers {
		dialers = append(dialers, d)
	}
	listeners := make([]*Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	pipes := s.pipeList()
	s.mu.Unlock()

	for _, d := range dialers {
		d.Close()
	}
	for _, l := range listeners {
		l.Close()
	}
	for _, p := range pipes {
		s.removePipe(p)
	}
	s.proto.close()
	s.sendQ.close()
	s.recvQ.close()
	s.eng.sockets.remove(s.id)
	s.eng.stats.Add("sockets_open", -1)
	return nil
}

// SendAio submits an asynchronous send. The operation fails with
// ErrTryAgain synchronously when the aio is busy, with ErrClosed when
// the socket is closed, and otherwise completes through the callback.
// The driver owns m until completion; on failure the recovered message
// is available from the aio result.
func (s *Socket) SendAio(a *Aio, m *message.Message, flags api.Flags) error {
	if m == nil {
		return api.ErrInvalidArg
	}
	if s.isClosed() {
		return api.ErrClosed
	}
	return a.submit(opSend, s.sendTimeout(), m, flags&api.FlagNonblock != 0, s.proto.send)
}

// RecvAio submits an asynchronous receive.
func (s *Socket) RecvAio(a *Aio, flags api.Flags) error {
	if s.isClosed() {
		return api.ErrClosed
	}
	return a.submit(opRecv, s.recvTimeout(), nil, flags&api.FlagNonblock != 0, s.proto.recv)
}

// OpenContext creates an independent conversation channel. Fails with
// ErrNotSupported for context-incapable protocols and ErrClosed on a
// closed socket.
func (s *Socket) OpenContext() (*Ctx, error) {
	if s.isClosed() {
		return nil, api.ErrClosed
	}
	cc, err := s.proto.newCtx()
	if err != nil {
		return nil, err
	}
	c := &Ctx{s: s, cc: cc, opts: ctxOptions{
		recvTimeout: s.recvTimeout(),
		sendTimeout: s.sendTimeout(),
	}}
	cc.bind(c)
	c.id = s.eng.ctxs.register(c)
	return c, nil
}

// SetPipeHook registers the pipe-event observer for this socket,
// replacing any prior one. Replacement takes effect at the next event;
// old and new observer never run concurrently because all events share
// one dispatch goroutine.
func (s *Socket) SetPipeHook(h PipeHook) {
	s.hookMu.Lock()
	s.hook = h
	s.hookMu.Unlock()
}

func (s *Socket) pipeList() []*pipe {
	out := make([]*pipe, 0, len(s.pipes))
	for _, p := range s.pipes {
		out = append(out, p)
	}
	return out
}

func (s *Socket) sendTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.sendTimeout
}

func (s *Socket) recvTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.recvTimeout
}

func (s *Socket) hopLimit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.maxTTL
}

func (s *Socket) sendBuf() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.sendBuf
}

func (s *Socket) transportOpts() *api.TransportOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.opts.transport
	return &o
}

func (s *Socket) reconnTimes() (time.Duration, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.reconnMin, s.opts.reconnMax
}

// addPipe attaches an established connection: registers the pipe,
// notifies the observers synchronously (Added precedes any traffic),
// then starts the pipe's I/O loops.
func (s *Socket) addPipe(conn api.Conn, d *Dialer, l *Listener) (*pipe, error) {
	if s.isClosed() {
		conn.Close()
		return nil, api.ErrClosed
	}
	p := &pipe{s: s, conn: conn, d: d, l: l, done: make(chan struct{})}
	if s.proto.wantsPipeQueue() {
		p.sendQ = newMsgQueue(s.sendBuf())
	}
	p.id = s.eng.pipes.register(p)

	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		s.eng.pipes.remove(p.id)
		conn.Close()
		return nil, api.ErrClosed
	}
	s.pipes[p.id] = p
	s.mu.Unlock()

	if !s.proto.attach(p) {
		// Rejected before any observer saw it: no Added, no Removed.
		s.mu.Lock()
		delete(s.pipes, p.id)
		s.mu.Unlock()
		s.eng.pipes.remove(p.id)
		conn.Close()
		logger.WithField("socket", s.id).WithField("pipe", p.id).Debug("pipe rejected")
		return nil, api.ErrProto
	}
	s.fireHooks(Pipe{p: p}, api.PipeAdded, true)

	go p.readerLoop()
	src := p.sendQ
	if src == nil {
		src = s.sendQ
	}
	go p.writerLoop(src)

	s.eng.stats.Add("pipes_active", 1)
	logger.WithField("socket", s.id).WithField("pipe", p.id).Debug("pipe added")
	return p, nil
}

// removePipe detaches a pipe exactly once and notifies observers.
func (s *Socket) removePipe(p *pipe) {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return
	}
	s.mu.Lock()
	delete(s.pipes, p.id)
	s.mu.Unlock()

	s.proto.detach(p)
	p.conn.Close()
	if p.sendQ != nil {
		p.sendQ.close()
	}
	s.sendQ.wake()
	s.recvQ.wake()
	close(p.done)
	s.fireHooks(Pipe{p: p}, api.PipeRemoved, false)
	s.eng.pipes.remove(p.id)
	s.eng.stats.Add("pipes_active", -1)
	logger.WithField("socket", s.id).WithField("pipe", p.id).Debug("pipe removed")
}

// fireHooks dispatches one pipe event to the socket's observer and to
// the observer of the dialer or listener the pipe belongs to.
func (s *Socket) fireHooks(pp Pipe, ev api.PipeEvent, sync bool) {
	var hooks []PipeHook
	s.hookMu.Lock()
	if s.hook != nil {
		hooks = append(hooks, s.hook)
	}
	s.hookMu.Unlock()
	if pp.p != nil {
		if d := pp.p.d; d != nil {
			if h := d.pipeHook(); h != nil {
				hooks = append(hooks, h)
			}
		}
		if l := pp.p.l; l != nil {
			if h := l.pipeHook(); h != nil {
				hooks = append(hooks, h)
			}
		}
	}
	if len(hooks) == 0 {
		return
	}
	run := func() {
		for _, h := range hooks {
			h(pp, ev)
		}
	}
	if sync {
		s.eng.notifySync(run)
	} else {
		s.eng.notifyAsync(run)
	}
}
