// File: transport/inproc/inproc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// In-process transport. Addresses live in a process-global namespace;
// messages cross between peers as whole objects over paired channels,
// so there is no wire, no handshake bytes and no framing. Protocol
// compatibility is still enforced at dial time, and the header/body
// concatenation of the stream transports is reproduced so protocol
// cores see identical payloads on every scheme.

package inproc

import (
	"sync"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
	"github.com/momentics/hioload-sp/transport"
)

func init() {
	transport.Register(&inprocTran{})
}

var (
	tableMu sync.Mutex
	table   = make(map[string]*listener)
)

type inprocTran struct{}

func (*inprocTran) Scheme() string { return "inproc" }

func (*inprocTran) NewDialer(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportDialer, error) {
	_, name, err := transport.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &dialer{name: name, url: url, proto: proto, maxRecv: opts.MaxRecvSize}, nil
}

func (*inprocTran) NewListener(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportListener, error) {
	_, name, err := transport.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &listener{
		name:    name,
		url:     url,
		proto:   proto,
		opts:    opts,
		accepts: make(chan *conn),
		closed:  make(chan struct{}),
	}, nil
}

type dialer struct {
	name    string
	url     string
	proto   api.Protocol
	maxRecv int64
}

func (d *dialer) Dial() (api.Conn, error) {
	tableMu.Lock()
	l := table[d.name]
	tableMu.Unlock()
	if l == nil {
		return nil, api.ErrConnRefused
	}
	if l.proto != d.proto.Peer() {
		return nil, api.ErrProto
	}

	a2b := make(chan *message.Message, 4)
	b2a := make(chan *message.Message, 4)
	cGone := make(chan struct{})
	sGone := make(chan struct{})
	client := &conn{
		send: a2b, recv: b2a, gone: cGone, peerGone: sGone,
		local: d.url, remote: l.url, maxRecv: d.maxRecv,
	}
	server := &conn{
		send: b2a, recv: a2b, gone: sGone, peerGone: cGone,
		local: l.url, remote: d.url, maxRecv: l.opts.MaxRecvSize,
	}
	select {
	case l.accepts <- server:
		return client, nil
	case <-l.closed:
		return nil, api.ErrConnRefused
	}
}

func (d *dialer) Close() error { return nil }

type listener struct {
	name    string
	url     string
	proto   api.Protocol
	opts    *api.TransportOptions
	accepts chan *conn

	mu     sync.Mutex
	bound  bool
	closed chan struct{}
}

func (l *listener) Listen() error {
	tableMu.Lock()
	defer tableMu.Unlock()
	if _, busy := table[l.name]; busy {
		return api.ErrAddrInUse
	}
	table[l.name] = l
	l.mu.Lock()
	l.bound = true
	l.mu.Unlock()
	return nil
}

func (l *listener) Accept() (api.Conn, error) {
	select {
	case c := <-l.accepts:
		return c, nil
	case <-l.closed:
		return nil, api.ErrClosed
	}
}

func (l *listener) Close() error {
	l.mu.Lock()
	select {
	case <-l.closed:
		l.mu.Unlock()
		return api.ErrClosed
	default:
	}
	close(l.closed)
	bound := l.bound
	l.mu.Unlock()
	if bound {
		tableMu.Lock()
		if table[l.name] == l {
			delete(table, l.name)
		}
		tableMu.Unlock()
	}
	return nil
}

func (l *listener) Addr() string { return l.url }

// conn is one direction pair of an inproc connection.
type conn struct {
	send     chan *message.Message
	recv     chan *message.Message
	gone     chan struct{}
	peerGone chan struct{}
	once     sync.Once
	local    string
	remote   string
	maxRecv  int64
}

// Send flattens header and body into a single-region message, the
// shape every wire transport delivers, and hands it to the peer.
func (c *conn) Send(m *message.Message) error {
	wire := message.New(m.HeaderLen() + m.Len())
	wire.Append(m.Header())
	wire.Append(m.Body())
	m.Free()
	select {
	case c.send <- wire:
		return nil
	case <-c.gone:
		wire.Free()
		return api.ErrClosed
	case <-c.peerGone:
		wire.Free()
		return api.ErrConnReset
	}
}

func (c *conn) Recv() (*message.Message, error) {
	// Drain buffered traffic before honoring a close.
	select {
	case m := <-c.recv:
		return c.checked(m)
	default:
	}
	select {
	case m := <-c.recv:
		return c.checked(m)
	case <-c.gone:
		return nil, api.ErrClosed
	case <-c.peerGone:
		select {
		case m := <-c.recv:
			return c.checked(m)
		default:
		}
		return nil, api.ErrConnReset
	}
}

func (c *conn) checked(m *message.Message) (*message.Message, error) {
	if c.maxRecv > 0 && int64(m.Len()) > c.maxRecv {
		m.Free()
		return nil, api.ErrMsgSize
	}
	return m, nil
}

func (c *conn) Close() error {
	c.once.Do(func() { close(c.gone) })
	return nil
}

func (c *conn) LocalAddr() string  { return c.local }
func (c *conn) RemoteAddr() string { return c.remote }
