// File: sp/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sp

import (
	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/core"
	"github.com/momentics/hioload-sp/message"
)

// Pipe is one live connection on a socket.
type Pipe = core.Pipe

// PipeHook observes pipe lifecycle events.
type PipeHook = core.PipeHook

// Socket is an endpoint handle. It is a plain value; copies share the
// underlying endpoint and a Close through any copy closes them all.
type Socket struct {
	s *core.Socket
}

// Open creates a socket speaking the given protocol.
func Open(p api.Protocol) (Socket, error) {
	s, err := core.Open(p)
	if err != nil {
		return Socket{}, err
	}
	return Socket{s: s}, nil
}

// ID returns the socket's driver-wide identifier.
func (s Socket) ID() int { return s.s.ID() }

// Proto returns the socket's protocol.
func (s Socket) Proto() api.Protocol { return s.s.Proto() }

// Close tears the endpoint down. Blocked and in-flight operations
// complete with ErrClosed.
func (s Socket) Close() error { return s.s.Close() }

// Dial connects to url, retrying in the background until the socket or
// the returned dialer closes.
func (s Socket) Dial(url string) error {
	_, err := s.s.Dial(url, 0)
	return err
}

// DialFlags is Dial with flags; FlagSynch reports the first attempt's
// failure synchronously.
func (s Socket) DialFlags(url string, flags api.Flags) (Dialer, error) {
	d, err := s.s.Dial(url, flags)
	if err != nil {
		return Dialer{}, err
	}
	return Dialer{d: d}, nil
}

// NewDialer creates a dialer for url without starting it, so options
// can be set first.
func (s Socket) NewDialer(url string) (Dialer, error) {
	d, err := s.s.NewDialer(url)
	if err != nil {
		return Dialer{}, err
	}
	return Dialer{d: d}, nil
}

// Listen binds url and starts accepting peers.
func (s Socket) Listen(url string) error {
	_, err := s.s.Listen(url)
	return err
}

// NewListener creates a listener for url without binding it.
func (s Socket) NewListener(url string) (Listener, error) {
	l, err := s.s.NewListener(url)
	if err != nil {
		return Listener{}, err
	}
	return Listener{l: l}, nil
}

// ListenAddr binds url and returns the listener, whose Addr resolves
// ephemeral ports.
func (s Socket) ListenAddr(url string) (Listener, error) {
	l, err := s.s.Listen(url)
	if err != nil {
		return Listener{}, err
	}
	return Listener{l: l}, nil
}

// OpenContext creates an independent conversation channel over this
// socket. Supported by req, rep, surveyor and respondent sockets.
func (s Socket) OpenContext() (Ctx, error) {
	c, err := s.s.OpenContext()
	if err != nil {
		return Ctx{}, err
	}
	return Ctx{c: c}, nil
}

// SetOption adjusts a socket-scoped option.
func (s Socket) SetOption(o api.Option, v any) error { return s.s.SetOption(o, v) }

// GetOption reads a socket-scoped option.
func (s Socket) GetOption(o api.Option) (any, error) { return s.s.GetOption(o) }

// SetPipeHook registers the socket's pipe-event observer, replacing
// any previous one without overlap.
func (s Socket) SetPipeHook(h PipeHook) { s.s.SetPipeHook(h) }

// SendAio submits an asynchronous send of m. The driver owns m until
// the operation completes; on failure the message comes back through
// the aio.
func (s Socket) SendAio(a *Aio, m *message.Message, flags api.Flags) error {
	return s.s.SendAio(a.a, m, flags)
}

// RecvAio submits an asynchronous receive.
func (s Socket) RecvAio(a *Aio, flags api.Flags) error {
	return s.s.RecvAio(a.a, flags)
}

// SendMsg sends m, blocking until the protocol accepts it, the send
// timeout expires, or FlagNonblock fails fast with ErrTryAgain. On
// error ownership of m stays with the caller.
func (s Socket) SendMsg(m *message.Message, flags api.Flags) error {
	a := core.NewAio(nil)
	if err := s.s.SendAio(a, m, flags); err != nil {
		return err
	}
	a.Wait()
	_, err := a.Result()
	return err
}

// RecvMsg receives one message; the caller owns the result.
func (s Socket) RecvMsg(flags api.Flags) (*message.Message, error) {
	a := core.NewAio(nil)
	if err := s.s.RecvAio(a, flags); err != nil {
		return nil, err
	}
	a.Wait()
	return a.Result()
}

// Send sends a copy of b.
func (s Socket) Send(b []byte, flags api.Flags) error {
	m := message.From(b)
	if err := s.SendMsg(m, flags); err != nil {
		m.Free()
		return err
	}
	return nil
}

// Recv receives one message body as a fresh byte slice.
func (s Socket) Recv(flags api.Flags) ([]byte, error) {
	m, err := s.RecvMsg(flags)
	if err != nil {
		return nil, err
	}
	b := append([]byte(nil), m.Body()...)
	m.Free()
	return b, nil
}

// Ctx is a conversation-channel handle; a plain value like Socket.
type Ctx struct {
	c *core.Ctx
}

// ID returns the context's driver-wide identifier.
func (c Ctx) ID() int { return c.c.ID() }

// Close invalidates the context without touching its socket.
func (c Ctx) Close() error { return c.c.Close() }

// SetOption adjusts a context-scoped option.
func (c Ctx) SetOption(o api.Option, v any) error { return c.c.SetOption(o, v) }

// GetOption reads a context-scoped option.
func (c Ctx) GetOption(o api.Option) (any, error) { return c.c.GetOption(o) }

// SendAio submits an asynchronous send on this conversation.
func (c Ctx) SendAio(a *Aio, m *message.Message, flags api.Flags) error {
	return c.c.SendAio(a.a, m, flags)
}

// RecvAio submits an asynchronous receive on this conversation.
func (c Ctx) RecvAio(a *Aio, flags api.Flags) error {
	return c.c.RecvAio(a.a, flags)
}

// SendMsg sends m on this conversation, blocking as Socket.SendMsg.
func (c Ctx) SendMsg(m *message.Message, flags api.Flags) error {
	a := core.NewAio(nil)
	if err := c.c.SendAio(a, m, flags); err != nil {
		return err
	}
	a.Wait()
	_, err := a.Result()
	return err
}

// RecvMsg receives one message on this conversation.
func (c Ctx) RecvMsg(flags api.Flags) (*message.Message, error) {
	a := core.NewAio(nil)
	if err := c.c.RecvAio(a, flags); err != nil {
		return nil, err
	}
	a.Wait()
	return a.Result()
}

// Send sends a copy of b on this conversation.
func (c Ctx) Send(b []byte, flags api.Flags) error {
	m := message.From(b)
	if err := c.SendMsg(m, flags); err != nil {
		m.Free()
		return err
	}
	return nil
}

// Recv receives one message body on this conversation.
func (c Ctx) Recv(flags api.Flags) ([]byte, error) {
	m, err := c.RecvMsg(flags)
	if err != nil {
		return nil, err
	}
	b := append([]byte(nil), m.Body()...)
	m.Free()
	return b, nil
}

// Dialer is an outbound endpoint handle.
type Dialer struct {
	d *core.Dialer
}

// ID returns the dialer's driver-wide identifier.
func (d Dialer) ID() int { return d.d.ID() }

// URL returns the endpoint address.
func (d Dialer) URL() string { return d.d.URL() }

// Start begins connecting; see Socket.DialFlags for FlagSynch.
func (d Dialer) Start(flags api.Flags) error { return d.d.Start(flags) }

// Close stops the dialer. Established pipes survive it.
func (d Dialer) Close() error { return d.d.Close() }

// SetOption adjusts a dialer-scoped option.
func (d Dialer) SetOption(o api.Option, v any) error { return d.d.SetOption(o, v) }

// GetOption reads a dialer-scoped option.
func (d Dialer) GetOption(o api.Option) (any, error) { return d.d.GetOption(o) }

// SetPipeHook registers an observer for pipes this dialer creates.
func (d Dialer) SetPipeHook(h PipeHook) { d.d.SetPipeHook(h) }

// Listener is an inbound endpoint handle.
type Listener struct {
	l *core.Listener
}

// ID returns the listener's driver-wide identifier.
func (l Listener) ID() int { return l.l.ID() }

// URL returns the endpoint address the listener was created with.
func (l Listener) URL() string { return l.l.URL() }

// Addr returns the concrete bound address, resolving ephemeral ports.
func (l Listener) Addr() string { return l.l.Addr() }

// Listen binds the address and starts accepting.
func (l Listener) Listen() error { return l.l.Listen() }

// Close unbinds the address. Accepted pipes survive it.
func (l Listener) Close() error { return l.l.Close() }

// SetOption adjusts a listener-scoped option.
func (l Listener) SetOption(o api.Option, v any) error { return l.l.SetOption(o, v) }

// GetOption reads a listener-scoped option.
func (l Listener) GetOption(o api.Option) (any, error) { return l.l.GetOption(o) }

// SetPipeHook registers an observer for pipes this listener accepts.
func (l Listener) SetPipeHook(h PipeHook) { l.l.SetPipeHook(h) }
