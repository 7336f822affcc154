// File: core/dialer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dialer maintains one outbound connection per endpoint. After a pipe
// drops, the dialer retries with exponential backoff until it is
// closed; a socket may carry any number of dialers.

package core

import (
	"crypto/tls"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/transport"
)

// Dialer is the outbound endpoint core behind any number of handles.
type Dialer struct {
	id  uint32
	s   *Socket
	url string
	td  api.TransportDialer

	mu        sync.Mutex
	topts     api.TransportOptions
	reconnMin time.Duration
	reconnMax time.Duration
	hook      PipeHook

	started int32
	closed  int32
	closeCh chan struct{}
}

// NewDialer creates a dialer for the endpoint URL without starting it.
// Options set on the dialer before Start override the socket's values.
func (s *Socket) NewDialer(url string) (*Dialer, error) {
	if s.isClosed() {
		return nil, api.ErrClosed
	}
	tr, err := transport.Lookup(url)
	if err != nil {
		return nil, err
	}
	min, max := s.reconnTimes()
	d := &Dialer{
		s:         s,
		url:       url,
		topts:     *s.transportOpts(),
		reconnMin: min,
		reconnMax: max,
		closeCh:   make(chan struct{}),
	}
	td, err := tr.NewDialer(url, s.protoNum, &d.topts)
	if err != nil {
		return nil, err
	}
	d.td = td
	d.id = s.eng.dialers.register(d)

	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		s.eng.dialers.remove(d.id)
		td.Close()
		return nil, api.ErrClosed
	}
	s.dialers[d.id] = d
	s.mu.Unlock()
	return d, nil
}

// Dial creates a dialer for the endpoint URL and starts it.
func (s *Socket) Dial(url string, flags api.Flags) (*Dialer, error) {
	d, err := s.NewDialer(url)
	if err != nil {
		return nil, err
	}
	if err := d.Start(flags); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// ID returns the dialer's registry identifier.
func (d *Dialer) ID() int { return int(d.id) }

// URL returns the endpoint address the dialer connects to.
func (d *Dialer) URL() string { return d.url }

// Start begins connecting. With FlagSynch the first attempt runs in
// the caller and its failure is returned directly; otherwise attempts
// run in the background and failures surface as PipeConnectError
// events. Starting twice fails with ErrState.
func (d *Dialer) Start(flags api.Flags) error {
	if atomic.LoadInt32(&d.closed) == 1 {
		return api.ErrClosed
	}
	if !atomic.CompareAndSwapInt32(&d.started, 0, 1) {
		return api.ErrState
	}
	if flags&api.FlagSynch != 0 {
		conn, err := d.td.Dial()
		if err != nil {
			atomic.StoreInt32(&d.started, 0)
			return err
		}
		p, err := d.s.addPipe(conn, d, nil)
		if err != nil {
			atomic.StoreInt32(&d.started, 0)
			return err
		}
		go d.redial(p)
		return nil
	}
	go d.redial(nil)
	return nil
}

// Close stops the dialer. Pipes it created stay open until they fail
// or the socket closes.
func (d *Dialer) Close() error {
	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return api.ErrClosed
	}
	close(d.closeCh)
	d.td.Close()
	d.s.mu.Lock()
	delete(d.s.dialers, d.id)
	d.s.mu.Unlock()
	d.s.eng.dialers.remove(d.id)
	return nil
}

func (d *Dialer) isClosed() bool { return atomic.LoadInt32(&d.closed) == 1 }

// SetPipeHook registers the pipe-event observer for this dialer.
func (d *Dialer) SetPipeHook(h PipeHook) {
	d.mu.Lock()
	d.hook = h
	d.mu.Unlock()
}

func (d *Dialer) pipeHook() PipeHook {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hook
}

// SetOption adjusts a dialer-scoped option. Settings apply to
// connection attempts made after the call.
func (d *Dialer) SetOption(o api.Option, v any) error {
	if d.isClosed() {
		return api.ErrClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch o {
	case api.OptReconnectMinTime:
		t, ok := optDuration(v)
		if !ok || t <= 0 {
			return api.ErrInvalidArg
		}
		d.reconnMin = t
	case api.OptReconnectMaxTime:
		t, ok := optDuration(v)
		if !ok || t < 0 {
			return api.ErrInvalidArg
		}
		d.reconnMax = t
	case api.OptMaxRecvSize:
		n, ok := v.(int64)
		if !ok || n < 0 {
			return api.ErrInvalidArg
		}
		d.topts.MaxRecvSize = n
	case api.OptTLSConfig:
		cfg, ok := v.(*tls.Config)
		if !ok {
			return api.ErrInvalidArg
		}
		d.topts.TLS = cfg
	case api.OptTCPNoDelay:
		b, ok := v.(bool)
		if !ok {
			return api.ErrInvalidArg
		}
		d.topts.NoDelay = b
	case api.OptTCPKeepAlive:
		b, ok := v.(bool)
		if !ok {
			return api.ErrInvalidArg
		}
		d.topts.KeepAlive = b
	default:
		return api.ErrNotSupported
	}
	return nil
}

// GetOption reads a dialer-scoped option.
func (d *Dialer) GetOption(o api.Option) (any, error) {
	if d.isClosed() {
		return nil, api.ErrClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch o {
	case api.OptReconnectMinTime:
		return d.reconnMin, nil
	case api.OptReconnectMaxTime:
		return d.reconnMax, nil
	case api.OptMaxRecvSize:
		return d.topts.MaxRecvSize, nil
	case api.OptTLSConfig:
		return d.topts.TLS, nil
	case api.OptTCPNoDelay:
		return d.topts.NoDelay, nil
	case api.OptTCPKeepAlive:
		return d.topts.KeepAlive, nil
	default:
		return nil, api.ErrNotSupported
	}
}

func (d *Dialer) backoffTimes() (time.Duration, time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	max := d.reconnMax
	if max == 0 {
		max = d.reconnMin
	}
	return d.reconnMin, max
}

// redial is the dialer's connection-maintenance loop. It waits for the
// current pipe to drop, then retries with exponential backoff until an
// attempt succeeds or the dialer closes. Backoff resets after every
// successful connection.
func (d *Dialer) redial(p *pipe) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval, bo.MaxInterval = d.backoffTimes()
	bo.Reset()
	for {
		if p != nil {
			select {
			case <-p.done:
			case <-d.closeCh:
				return
			}
			bo.Reset()
			p = nil
		}
		conn, err := d.td.Dial()
		if err == nil {
			p, err = d.s.addPipe(conn, d, nil)
		}
		if err != nil {
			if d.isClosed() || d.s.isClosed() {
				return
			}
			d.s.fireHooks(Pipe{p: &pipe{s: d.s, d: d}}, api.PipeConnectError, false)
			logger.WithField("url", d.url).WithError(err).Debug("dial failed")
			select {
			case <-time.After(bo.NextBackOff()):
			case <-d.closeCh:
				return
			}
		}
	}
}
