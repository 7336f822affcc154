// File: message/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Message is the unit of transfer: an owned, growable body plus an
// independent header region for the protocol envelope. The two regions
// are never aliased; resizing one never invalidates the other.
//
// Mutation methods have no error returns. Allocation failure on buffer
// growth is fatal, matching the zero-copy path's contract: the Go
// runtime aborts the process on heap exhaustion, so no recoverable
// out-of-memory path exists or is wanted here.

package message

import (
	"encoding/binary"

	"github.com/momentics/hioload-sp/pool"
)

// Message owns a contiguous body buffer and a separate header buffer.
// A message handed to a send operation is owned by the driver until
// the operation completes; on failure ownership returns to the caller.
type Message struct {
	body   []byte
	header []byte
	pipe   uint32
}

// msgPool recycles the Message structs themselves; the body and header
// buffers cycle separately through the byte pools.
var msgPool = pool.NewSyncPool(func() *Message { return new(Message) })

// New returns an empty message with body capacity for at least n bytes.
func New(n int) *Message {
	m := msgPool.Get()
	m.body = pool.Grab(n)
	m.header = nil
	m.pipe = 0
	return m
}

// From returns a message whose body is a copy of b.
func From(b []byte) *Message {
	m := New(len(b))
	m.Append(b)
	return m
}

// Free returns the message and its buffers to their pools. The message
// must not be used, or freed again, afterwards: the struct may already
// be serving a later New.
func (m *Message) Free() {
	if m == nil {
		return
	}
	if m.body == nil {
		// Already released; tolerated for the nil-body zero value but
		// never recycled twice.
		return
	}
	pool.Recycle(m.body)
	m.body = nil
	if m.header != nil {
		pool.Recycle(m.header)
		m.header = nil
	}
	m.pipe = 0
	msgPool.Put(m)
}

// Body returns the body region. The slice stays valid until the next
// body mutation.
func (m *Message) Body() []byte { return m.body }

// Header returns the header region, disjoint from the body.
func (m *Message) Header() []byte { return m.header }

// Len returns the body length in bytes.
func (m *Message) Len() int { return len(m.body) }

// Append adds b to the end of the body.
func (m *Message) Append(b []byte) {
	m.body = append(m.body, b...)
}

// Prepend inserts b at the front of the body.
func (m *Message) Prepend(b []byte) {
	m.body = append(m.body, b...)
	copy(m.body[len(b):], m.body[:len(m.body)-len(b)])
	copy(m.body, b)
}

// Chop removes n bytes from the end of the body. Removing more than
// the body holds clears it.
func (m *Message) Chop(n int) {
	if n >= len(m.body) {
		m.body = m.body[:0]
		return
	}
	m.body = m.body[:len(m.body)-n]
}

// Trim removes n bytes from the front of the body.
func (m *Message) Trim(n int) {
	if n >= len(m.body) {
		m.body = m.body[:0]
		return
	}
	m.body = append(m.body[:0], m.body[n:]...)
}

// Clear empties the body, keeping its capacity.
func (m *Message) Clear() { m.body = m.body[:0] }

// AppendUint32 appends v to the body in network order.
func (m *Message) AppendUint32(v uint32) {
	m.body = binary.BigEndian.AppendUint32(m.body, v)
}

// TrimUint32 removes and returns a network-order uint32 from the front
// of the body. ok is false when fewer than four bytes remain.
func (m *Message) TrimUint32() (v uint32, ok bool) {
	if len(m.body) < 4 {
		return 0, false
	}
	v = binary.BigEndian.Uint32(m.body)
	m.Trim(4)
	return v, true
}

// HeaderAppend adds b to the end of the header.
func (m *Message) HeaderAppend(b []byte) {
	if m.header == nil {
		m.header = pool.Grab(len(b))
	}
	m.header = append(m.header, b...)
}

// HeaderAppendUint32 appends v to the header in network order.
func (m *Message) HeaderAppendUint32(v uint32) {
	if m.header == nil {
		m.header = pool.Grab(4)
	}
	m.header = binary.BigEndian.AppendUint32(m.header, v)
}

// HeaderTrimUint32 removes and returns a network-order uint32 from the
// front of the header.
func (m *Message) HeaderTrimUint32() (v uint32, ok bool) {
	if len(m.header) < 4 {
		return 0, false
	}
	v = binary.BigEndian.Uint32(m.header)
	m.header = append(m.header[:0], m.header[4:]...)
	return v, true
}

// HeaderLen returns the header length in bytes.
func (m *Message) HeaderLen() int { return len(m.header) }

// HeaderClear empties the header.
func (m *Message) HeaderClear() {
	if m.header != nil {
		m.header = m.header[:0]
	}
}

// Pipe returns the id of the pipe the message arrived on, or zero.
func (m *Message) Pipe() uint32 { return m.pipe }

// SetPipe tags the message with an originating or target pipe id.
func (m *Message) SetPipe(id uint32) { m.pipe = id }

// Dup returns a deep copy of the message, including header and pipe tag.
func (m *Message) Dup() *Message {
	d := New(len(m.body))
	d.Append(m.body)
	if len(m.header) > 0 {
		d.HeaderAppend(m.header)
	}
	d.pipe = m.pipe
	return d
}
