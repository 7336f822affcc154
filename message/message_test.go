// File: message/message_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package message

import (
	"bytes"
	"testing"
)

func TestBodyEditing(t *testing.T) {
	m := New(0)
	defer m.Free()

	m.Append([]byte("world"))
	m.Prepend([]byte("hello "))
	if !bytes.Equal(m.Body(), []byte("hello world")) {
		t.Fatalf("body = %q", m.Body())
	}
	if m.Len() != 11 {
		t.Fatalf("len = %d", m.Len())
	}

	m.Trim(6)
	if !bytes.Equal(m.Body(), []byte("world")) {
		t.Fatalf("after trim: %q", m.Body())
	}
	m.Chop(4)
	if !bytes.Equal(m.Body(), []byte("w")) {
		t.Fatalf("after chop: %q", m.Body())
	}
	m.Clear()
	if m.Len() != 0 {
		t.Fatalf("clear left %d bytes", m.Len())
	}
}

func TestUint32Framing(t *testing.T) {
	m := New(0)
	defer m.Free()

	m.Append([]byte("payload"))
	m.AppendUint32(0xDEADBEEF)
	v, ok := m.TrimUint32()
	if !ok || v != 0xDEADBEEF {
		t.Fatalf("got %#x ok=%v", v, ok)
	}
	if !bytes.Equal(m.Body(), []byte("payload")) {
		t.Fatalf("body disturbed: %q", m.Body())
	}

	if _, ok := New(0).TrimUint32(); ok {
		t.Fatal("trim on empty body must fail")
	}
}

func TestHeaderIndependentOfBody(t *testing.T) {
	m := New(0)
	defer m.Free()

	m.Append([]byte("body"))
	m.HeaderAppendUint32(0x80000001)
	m.HeaderAppend([]byte("hop"))

	if m.HeaderLen() != 7 {
		t.Fatalf("header len = %d", m.HeaderLen())
	}
	if !bytes.Equal(m.Body(), []byte("body")) {
		t.Fatalf("body = %q", m.Body())
	}

	v, ok := m.HeaderTrimUint32()
	if !ok || v != 0x80000001 {
		t.Fatalf("header trim: %#x ok=%v", v, ok)
	}
	m.HeaderClear()
	if m.HeaderLen() != 0 {
		t.Fatalf("header clear left %d bytes", m.HeaderLen())
	}
	if !bytes.Equal(m.Body(), []byte("body")) {
		t.Fatal("header ops leaked into body")
	}
}

func TestDupIsDeepAndCarriesPipe(t *testing.T) {
	m := From([]byte("original"))
	defer m.Free()
	m.HeaderAppendUint32(7)
	m.SetPipe(42)

	d := m.Dup()
	defer d.Free()
	if !bytes.Equal(d.Body(), m.Body()) || !bytes.Equal(d.Header(), m.Header()) {
		t.Fatal("dup differs from original")
	}
	if d.Pipe() != 42 {
		t.Fatalf("dup pipe = %d", d.Pipe())
	}

	d.Append([]byte(" extended"))
	d.SetPipe(1)
	if !bytes.Equal(m.Body(), []byte("original")) || m.Pipe() != 42 {
		t.Fatal("mutating the dup touched the original")
	}
}

func TestFreeIsNilSafeAndIdempotent(t *testing.T) {
	var m *Message
	m.Free()

	m = From([]byte("x"))
	m.Free()
	m.Free()
}

// Freed messages go back to a struct pool; a later New must come out
// clean regardless of what the previous life left behind.
func TestReusedMessageStartsClean(t *testing.T) {
	m := From([]byte("leftover"))
	m.HeaderAppendUint32(0xfeedface)
	m.SetPipe(42)
	m.Free()

	for i := 0; i < 8; i++ {
		n := New(4)
		if n.Len() != 0 {
			t.Fatalf("fresh body len = %d", n.Len())
		}
		if n.HeaderLen() != 0 {
			t.Fatalf("fresh header len = %d", n.HeaderLen())
		}
		if n.Pipe() != 0 {
			t.Fatalf("fresh pipe tag = %d", n.Pipe())
		}
		n.Free()
	}
}
