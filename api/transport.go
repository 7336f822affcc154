// File: api/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport SPI. A transport contributes dialers and listeners for one
// URL scheme; both produce Conn values carrying whole SP messages. The
// core never sees raw bytes: framing, handshakes and peer validation
// live entirely below this interface.

package api

import (
	"crypto/tls"
	"os"

	"github.com/momentics/hioload-sp/message"
)

// Conn is one established SP connection. Send takes ownership of the
// message; Recv yields an owned message whose body holds the full wire
// payload. Both may be called concurrently with each other but not
// with themselves.
type Conn interface {
	Send(m *message.Message) error
	Recv() (*message.Message, error)
	Close() error
	LocalAddr() string
	RemoteAddr() string
}

// TransportDialer performs outbound connection attempts for one URL.
// Dial blocks for the duration of a single attempt; the core retries.
type TransportDialer interface {
	Dial() (Conn, error)
	Close() error
}

// TransportListener accepts inbound connections for one URL.
type TransportListener interface {
	// Listen binds the address. It is called once, before Accept.
	Listen() error

	// Accept blocks until a connection completes its SP handshake or
	// the listener is closed.
	Accept() (Conn, error)

	Close() error

	// Addr returns the bound address in URL form, valid after Listen.
	Addr() string
}

// Transport creates dialers and listeners for one scheme.
type Transport interface {
	Scheme() string
	NewDialer(url string, proto Protocol, opts *TransportOptions) (TransportDialer, error)
	NewListener(url string, proto Protocol, opts *TransportOptions) (TransportListener, error)
}

// TransportOptions carries the transport-scoped option values. The
// owning dialer or listener mutates it under its own lock; transports
// read it at dial, listen and accept time.
type TransportOptions struct {
	TLS         *tls.Config
	IpcPerms    os.FileMode
	NoDelay     bool
	KeepAlive   bool
	MaxRecvSize int64
}

// DefaultTransportOptions returns the baseline transport settings.
func DefaultTransportOptions() *TransportOptions {
	return &TransportOptions{
		IpcPerms: 0o600,
		NoDelay:  true,
	}
}
