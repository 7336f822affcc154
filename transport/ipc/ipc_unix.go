// File: transport/ipc/ipc_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build unix

package ipc

import (
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/transport"
)

func init() {
	transport.Register(&ipcTran{})
}

type ipcTran struct{}

func (*ipcTran) Scheme() string { return "ipc" }

func (*ipcTran) NewDialer(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportDialer, error) {
	_, path, err := transport.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &dialer{path: path, proto: proto, opts: opts}, nil
}

func (*ipcTran) NewListener(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportListener, error) {
	_, path, err := transport.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &listener{path: path, proto: proto, opts: opts}, nil
}

type dialer struct {
	path  string
	proto api.Protocol
	opts  *api.TransportOptions
}

func (d *dialer) Dial() (api.Conn, error) {
	c, err := net.Dial("unix", d.path)
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
	path  string
	proto api.Protocol
	opts  *api.TransportOptions
	ln    net.Listener
}

func (l *listener) Listen() error {
	ln, err := net.Listen("unix", l.path)
	if err != nil {
		return transport.MapErr(err)
	}
	// Clamp the socket file before the address is visible to clients.
	if err := unix.Chmod(l.path, uint32(l.opts.IpcPerms)); err != nil {
		ln.Close()
		os.Remove(l.path)
		return err
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

func (l *listener) Addr() string { return "ipc://" + l.path }
