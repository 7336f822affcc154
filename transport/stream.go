// File: transport/stream.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared machinery for byte-stream transports: the SP protocol
// handshake and the length-prefixed message framing. tcp, ipc and
// tls+tcp all speak this; websocket has its own message boundaries and
// skips it.

package transport

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
	"github.com/momentics/hioload-sp/pool"
)

// handshakeTimeout bounds the SP preamble exchange so a silent peer
// cannot pin an accept loop.
const handshakeTimeout = 10 * time.Second

// Negotiate exchanges the 8-byte SP preamble and validates the peer.
// Both sides write first, then read, so there is no ordering to agree
// on. A peer speaking the wrong protocol fails with ErrProto.
func Negotiate(c net.Conn, self api.Protocol) error {
	deadline := time.Now().Add(handshakeTimeout)
	c.SetDeadline(deadline)
	defer c.SetDeadline(time.Time{})

	var out [8]byte
	out[1], out[2] = 'S', 'P'
	binary.BigEndian.PutUint16(out[4:6], uint16(self))
	if _, err := c.Write(out[:]); err != nil {
		return MapErr(err)
	}

	var in [8]byte
	if _, err := io.ReadFull(c, in[:]); err != nil {
		return MapErr(err)
	}
	if in[0] != 0 || in[1] != 'S' || in[2] != 'P' || in[3] != 0 || in[6] != 0 || in[7] != 0 {
		return api.ErrProto
	}
	peer := api.Protocol(binary.BigEndian.Uint16(in[4:6]))
	if peer != self.Peer() {
		return api.ErrProto
	}
	return nil
}

// streamConn frames SP messages over a byte stream: a 64-bit
// big-endian length, then header and body concatenated.
type streamConn struct {
	c       net.Conn
	maxRecv int64

	rmu sync.Mutex
	wmu sync.Mutex
}

// NewStreamConn wraps an already-negotiated byte stream. maxRecv of 0
// means unlimited inbound message size.
func NewStreamConn(c net.Conn, maxRecv int64) api.Conn {
	return &streamConn{c: c, maxRecv: maxRecv}
}

func (sc *streamConn) Send(m *message.Message) error {
	var hdr [8]byte
	binary.BigEndian.PutUint64(hdr[:], uint64(m.HeaderLen()+m.Len()))
	bufs := net.Buffers{hdr[:], m.Header(), m.Body()}

	sc.wmu.Lock()
	_, err := bufs.WriteTo(sc.c)
	sc.wmu.Unlock()
	m.Free()
	return MapErr(err)
}

func (sc *streamConn) Recv() (*message.Message, error) {
	sc.rmu.Lock()
	defer sc.rmu.Unlock()

	var hdr [8]byte
	if _, err := io.ReadFull(sc.c, hdr[:]); err != nil {
		return nil, MapErr(err)
	}
	n := binary.BigEndian.Uint64(hdr[:])
	if n > uint64(int(^uint(0)>>1)) || (sc.maxRecv > 0 && n > uint64(sc.maxRecv)) {
		return nil, api.ErrMsgSize
	}
	buf := pool.Grab(int(n))[:n]
	if _, err := io.ReadFull(sc.c, buf); err != nil {
		pool.Recycle(buf)
		return nil, MapErr(err)
	}
	m := message.From(buf)
	pool.Recycle(buf)
	return m, nil
}

func (sc *streamConn) Close() error       { return sc.c.Close() }
func (sc *streamConn) LocalAddr() string  { return sc.c.LocalAddr().String() }
func (sc *streamConn) RemoteAddr() string { return sc.c.RemoteAddr().String() }

// MapErr folds common network failures onto the driver's error set so
// callers match on Errno values rather than platform error chains.
// Unrecognized errors pass through unchanged.
func MapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return api.ErrConnRefused
	case errors.Is(err, syscall.ECONNRESET):
		return api.ErrConnReset
	case errors.Is(err, syscall.ECONNABORTED):
		return api.ErrConnAborted
	case errors.Is(err, syscall.EADDRINUSE):
		return api.ErrAddrInUse
	case errors.Is(err, net.ErrClosed):
		return api.ErrClosed
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return api.ErrConnReset
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return api.ErrTimedOut
	}
	return err
}
