// File: transport/ws/ws.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package ws provides the ws:// and wss:// transports. Each SP message
// rides in one binary websocket frame sequence, so the stream framing
// is unnecessary; peer validation happens through the websocket
// subprotocol (e.g. "rep.sp.nanomsg.org") during the HTTP upgrade.
package ws

import (
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
	"github.com/momentics/hioload-sp/transport"
)

func init() {
	transport.Register(&wsTran{scheme: "ws"})
	transport.Register(&wsTran{scheme: "wss"})
}

func subprotocol(p api.Protocol) string {
	return p.String() + ".sp.nanomsg.org"
}

type wsTran struct {
	scheme string
}

func (t *wsTran) Scheme() string { return t.scheme }

func (t *wsTran) NewDialer(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportDialer, error) {
	if _, _, err := transport.ParseURL(url); err != nil {
		return nil, err
	}
	if t.scheme == "wss" && opts.TLS == nil {
		return nil, api.ErrInvalidArg
	}
	return &dialer{url: url, proto: proto, opts: opts}, nil
}

func (t *wsTran) NewListener(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportListener, error) {
	_, rest, err := transport.ParseURL(url)
	if err != nil {
		return nil, err
	}
	addr, path := rest, "/"
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		addr, path = rest[:i], rest[i:]
	}
	if t.scheme == "wss" && opts.TLS == nil {
		return nil, api.ErrInvalidArg
	}
	return &listener{
		scheme:  t.scheme,
		addr:    addr,
		path:    path,
		proto:   proto,
		opts:    opts,
		accepts: make(chan api.Conn),
		closed:  make(chan struct{}),
	}, nil
}

type dialer struct {
	url   string
	proto api.Protocol
	opts  *api.TransportOptions
}

func (d *dialer) Dial() (api.Conn, error) {
	wd := websocket.Dialer{
		Subprotocols:     []string{subprotocol(d.proto.Peer())},
		TLSClientConfig:  d.opts.TLS,
		HandshakeTimeout: 10 * time.Second,
	}
	c, _, err := wd.Dial(d.url, nil)
	if err != nil {
		return nil, transport.MapErr(err)
	}
	if c.Subprotocol() != subprotocol(d.proto.Peer()) {
		c.Close()
		return nil, api.ErrProto
	}
	return newConn(c, d.opts.MaxRecvSize), nil
}

func (d *dialer) Close() error { return nil }

type listener struct {
	scheme  string
	addr    string
	path    string
	proto   api.Protocol
	opts    *api.TransportOptions
	accepts chan api.Conn

	ln     net.Listener
	srv    *http.Server
	once   sync.Once
	closed chan struct{}
}

func (l *listener) Listen() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return transport.MapErr(err)
	}
	if l.scheme == "wss" {
		ln = tls.NewListener(ln, l.opts.TLS)
	}
	l.ln = ln

	up := websocket.Upgrader{Subprotocols: []string{subprotocol(l.proto)}}
	mux := http.NewServeMux()
	mux.HandleFunc(l.path, func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if c.Subprotocol() != subprotocol(l.proto) {
			c.Close()
			return
		}
		select {
		case l.accepts <- newConn(c, l.opts.MaxRecvSize):
		case <-l.closed:
			c.Close()
		}
	})
	l.srv = &http.Server{Handler: mux}
	go l.srv.Serve(ln)
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
	l.once.Do(func() {
		close(l.closed)
		if l.srv != nil {
			l.srv.Close()
		}
	})
	return nil
}

func (l *listener) Addr() string {
	addr := l.addr
	if l.ln != nil {
		addr = l.ln.Addr().String()
	}
	return l.scheme + "://" + addr + l.path
}

// conn carries one SP message per binary websocket message.
type conn struct {
	c   *websocket.Conn
	rmu sync.Mutex
	wmu sync.Mutex
}

func newConn(c *websocket.Conn, maxRecv int64) api.Conn {
	if maxRecv > 0 {
		c.SetReadLimit(maxRecv)
	}
	return &conn{c: c}
}

func (wc *conn) Send(m *message.Message) error {
	wc.wmu.Lock()
	defer wc.wmu.Unlock()
	w, err := wc.c.NextWriter(websocket.BinaryMessage)
	if err != nil {
		m.Free()
		return transport.MapErr(err)
	}
	if _, err = w.Write(m.Header()); err == nil {
		_, err = w.Write(m.Body())
	}
	cerr := w.Close()
	m.Free()
	if err == nil {
		err = cerr
	}
	return transport.MapErr(err)
}

func (wc *conn) Recv() (*message.Message, error) {
	wc.rmu.Lock()
	defer wc.rmu.Unlock()
	for {
		mt, data, err := wc.c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil, api.ErrConnReset
			}
			if err == websocket.ErrReadLimit {
				return nil, api.ErrMsgSize
			}
			return nil, transport.MapErr(err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		return message.From(data), nil
	}
}

func (wc *conn) Close() error       { return wc.c.Close() }
func (wc *conn) LocalAddr() string  { return wc.c.LocalAddr().String() }
func (wc *conn) RemoteAddr() string { return wc.c.RemoteAddr().String() }
