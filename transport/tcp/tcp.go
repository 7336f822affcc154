// File: transport/tcp/tcp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package tcp provides the tcp:// transport: SP messages over plain
// TCP with the standard preamble and 64-bit length framing.
package tcp

import (
	"context"
	"net"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/transport"
)

func init() {
	transport.Register(&tcpTran{})
}

type tcpTran struct{}

func (*tcpTran) Scheme() string { return "tcp" }

func (*tcpTran) NewDialer(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportDialer, error) {
	_, addr, err := transport.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &dialer{addr: addr, proto: proto, opts: opts}, nil
}

func (*tcpTran) NewListener(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportListener, error) {
	_, addr, err := transport.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &listener{addr: addr, proto: proto, opts: opts}, nil
}

func tune(c net.Conn, opts *api.TransportOptions) {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return
	}
	tc.SetNoDelay(opts.NoDelay)
	tc.SetKeepAlive(opts.KeepAlive)
}

type dialer struct {
	addr  string
	proto api.Protocol
	opts  *api.TransportOptions
}

func (d *dialer) Dial() (api.Conn, error) {
	c, err := net.Dial("tcp", d.addr)
	if err != nil {
		return nil, transport.MapErr(err)
	}
	tune(c, d.opts)
	if err := transport.Negotiate(c, d.proto); err != nil {
		c.Close()
		return nil, err
	}
	return transport.NewStreamConn(c, d.opts.MaxRecvSize), nil
}

func (d *dialer) Close() error { return nil }

type listener struct {
	addr  string
	proto api.Protocol
	opts  *api.TransportOptions
	ln    net.Listener
}

func (l *listener) Listen() error {
	lc := net.ListenConfig{Control: listenControl}
	ln, err := lc.Listen(context.Background(), "tcp", l.addr)
	if err != nil {
		return transport.MapErr(err)
	}
	l.ln = ln
	return nil
}

func (l *listener) Accept() (api.Conn, error) {
	c, err := l.ln.Accept()
	if err != nil {
		return nil, transport.MapErr(err)
	}
	tune(c, l.opts)
	if err := transport.Negotiate(c, l.proto); err != nil {
		c.Close()
		return nil, err
	}
	return transport.NewStreamConn(c, l.opts.MaxRecvSize), nil
}

func (l *listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

func (l *listener) Addr() string {
	if l.ln == nil {
		return "tcp://" + l.addr
	}
	return "tcp://" + l.ln.Addr().String()
}
