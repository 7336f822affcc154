// File: core/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Listener accepts inbound connections for one endpoint URL. Each
// accepted connection becomes a pipe on the owning socket; accept
// errors on a live listener are logged and retried.

package core

import (
	"crypto/tls"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/transport"
)

// Listener is the inbound endpoint core behind any number of handles.
type Listener struct {
	id  uint32
	s   *Socket
	url string
	tl  api.TransportListener

	mu    sync.Mutex
	topts api.TransportOptions
	hook  PipeHook

	started int32
	closed  int32
	closeCh chan struct{}
}

// NewListener creates a listener for the endpoint URL without binding
// it. Options set on the listener before Listen override the socket's
// values.
func (s *Socket) NewListener(url string) (*Listener, error) {
	if s.isClosed() {
		return nil, api.ErrClosed
	}
	tr, err := transport.Lookup(url)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		s:       s,
		url:     url,
		topts:   *s.transportOpts(),
		closeCh: make(chan struct{}),
	}
	tl, err := tr.NewListener(url, s.protoNum, &l.topts)
	if err != nil {
		return nil, err
	}
	l.tl = tl
	l.id = s.eng.listeners.register(l)

	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		s.eng.listeners.remove(l.id)
		tl.Close()
		return nil, api.ErrClosed
	}
	s.listeners[l.id] = l
	s.mu.Unlock()
	return l, nil
}

// Listen creates a listener for the endpoint URL and binds it. Bind
// failures such as an address in use are reported synchronously.
func (s *Socket) Listen(url string) (*Listener, error) {
	l, err := s.NewListener(url)
	if err != nil {
		return nil, err
	}
	if err := l.Listen(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// ID returns the listener's registry identifier.
func (l *Listener) ID() int { return int(l.id) }

// URL returns the endpoint address the listener was created with.
func (l *Listener) URL() string { return l.url }

// Addr returns the concrete bound address, useful when the URL named
// an ephemeral port. Valid after Listen.
func (l *Listener) Addr() string { return l.tl.Addr() }

// Listen binds the address and starts accepting. Binding twice fails
// with ErrState.
func (l *Listener) Listen() error {
	if atomic.LoadInt32(&l.closed) == 1 {
		return api.ErrClosed
	}
	if !atomic.CompareAndSwapInt32(&l.started, 0, 1) {
		return api.ErrState
	}
	if err := l.tl.Listen(); err != nil {
		atomic.StoreInt32(&l.started, 0)
		return err
	}
	go l.acceptLoop()
	return nil
}

// Close unbinds the address. Pipes already accepted stay open until
// they fail or the socket closes.
func (l *Listener) Close() error {
	if !atomic.CompareAndSwapInt32(&l.closed, 0, 1) {
		return api.ErrClosed
	}
	close(l.closeCh)
	l.tl.Close()
	l.s.mu.Lock()
	delete(l.s.listeners, l.id)
	l.s.mu.Unlock()
	l.s.eng.listeners.remove(l.id)
	return nil
}

func (l *Listener) isClosed() bool { return atomic.LoadInt32(&l.closed) == 1 }

// SetPipeHook registers the pipe-event observer for this listener.
func (l *Listener) SetPipeHook(h PipeHook) {
	l.mu.Lock()
	l.hook = h
	l.mu.Unlock()
}

func (l *Listener) pipeHook() PipeHook {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hook
}

// SetOption adjusts a listener-scoped option. Settings apply to
// connections accepted after the call.
func (l *Listener) SetOption(o api.Option, v any) error {
	if l.isClosed() {
		return api.ErrClosed
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	switch o {
	case api.OptMaxRecvSize:
		n, ok := v.(int64)
		if !ok || n < 0 {
			return api.ErrInvalidArg
		}
		l.topts.MaxRecvSize = n
	case api.OptTLSConfig:
		cfg, ok := v.(*tls.Config)
		if !ok {
			return api.ErrInvalidArg
		}
		l.topts.TLS = cfg
	case api.OptIpcPermissions:
		var mode os.FileMode
		switch t := v.(type) {
		case os.FileMode:
			mode = t
		case uint32:
			mode = os.FileMode(t)
		default:
			return api.ErrInvalidArg
		}
		if mode&^os.FileMode(0o777) != 0 {
			return api.ErrInvalidArg
		}
		l.topts.IpcPerms = mode
	case api.OptTCPNoDelay:
		b, ok := v.(bool)
		if !ok {
			return api.ErrInvalidArg
		}
		l.topts.NoDelay = b
	case api.OptTCPKeepAlive:
		b, ok := v.(bool)
		if !ok {
			return api.ErrInvalidArg
		}
		l.topts.KeepAlive = b
	default:
		return api.ErrNotSupported
	}
	return nil
}

// GetOption reads a listener-scoped option.
func (l *Listener) GetOption(o api.Option) (any, error) {
	if l.isClosed() {
		return nil, api.ErrClosed
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	switch o {
	case api.OptLocalAddr:
		return l.tl.Addr(), nil
	case api.OptMaxRecvSize:
		return l.topts.MaxRecvSize, nil
	case api.OptTLSConfig:
		return l.topts.TLS, nil
	case api.OptIpcPermissions:
		return l.topts.IpcPerms, nil
	case api.OptTCPNoDelay:
		return l.topts.NoDelay, nil
	case api.OptTCPKeepAlive:
		return l.topts.KeepAlive, nil
	default:
		return nil, api.ErrNotSupported
	}
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.tl.Accept()
		if err != nil {
			if l.isClosed() || l.s.isClosed() {
				return
			}
			l.s.fireHooks(Pipe{p: &pipe{s: l.s, l: l}}, api.PipeConnectError, false)
			logger.WithField("url", l.url).WithError(err).Debug("accept failed")
			select {
			case <-time.After(10 * time.Millisecond):
			case <-l.closeCh:
				return
			}
			continue
		}
		if _, err := l.s.addPipe(conn, nil, l); err != nil {
			if err == api.ErrProto {
				// Protocol refused the pipe (e.g. pair with a peer
				// already); keep serving the endpoint.
				continue
			}
			return
		}
	}
}
