// File: transport/tlstcp/tlstcp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package tlstcp provides the tls+tcp:// transport. It is the tcp
// transport under a TLS session; a TLS configuration must be supplied
// through OptTLSConfig before dialing or listening.
package tlstcp

import (
	"crypto/tls"
	"net"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/transport"
)

func init() {
	transport.Register(&tlsTran{})
}

type tlsTran struct{}

func (*tlsTran) Scheme() string { return "tls+tcp" }

func (*tlsTran) NewDialer(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportDialer, error) {
	_, addr, err := transport.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &dialer{addr: addr, proto: proto, opts: opts}, nil
}

func (*tlsTran) NewListener(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportListener, error) {
	_, addr, err := transport.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &listener{addr: addr, proto: proto, opts: opts}, nil
}

type dialer struct {
	addr  string
	proto api.Protocol
	opts  *api.TransportOptions
}

func (d *dialer) Dial() (api.Conn, error) {
	cfg := d.opts.TLS
	if cfg == nil {
		return nil, api.ErrInvalidArg
	}
	c, err := tls.Dial("tcp", d.addr, cfg)
	if err != nil {
		return nil, transport.MapErr(err)
	}
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
	cfg := l.opts.TLS
	if cfg == nil || len(cfg.Certificates) == 0 && cfg.GetCertificate == nil {
		return api.ErrInvalidArg
	}
	ln, err := tls.Listen("tcp", l.addr, cfg)
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
		return "tls+tcp://" + l.addr
	}
	return "tls+tcp://" + l.ln.Addr().String()
}
