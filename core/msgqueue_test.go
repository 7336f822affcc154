// File: core/msgqueue_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package core

import (
	"bytes"
	"testing"
	"time"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

func recvViaAio(q *msgQueue, nonblock bool) (*Aio, error) {
	a := NewAio(nil)
	err := a.submit(opRecv, 0, nil, nonblock, q.get)
	return a, err
}

func sendViaAio(q *msgQueue, m *message.Message, nonblock bool) (*Aio, error) {
	a := NewAio(nil)
	err := a.submit(opSend, 0, m, nonblock, q.put)
	return a, err
}

func aioResult(t *testing.T, a *Aio) (*message.Message, error) {
	t.Helper()
	a.Wait()
	return a.Result()
}

func TestQueueBuffersUpToCapacity(t *testing.T) {
	q := newMsgQueue(2)
	if !q.putMsg(message.From([]byte("a"))) {
		t.Fatal("first put rejected")
	}
	if !q.putMsg(message.From([]byte("b"))) {
		t.Fatal("second put rejected")
	}
	if q.putMsg(message.From([]byte("c"))) {
		t.Fatal("put beyond capacity accepted")
	}

	m, ok := q.popWait(nil)
	if !ok || !bytes.Equal(m.Body(), []byte("a")) {
		t.Fatalf("pop got %v %v", m, ok)
	}
	m.Free()
}

func TestQueueDeliversToParkedReader(t *testing.T) {
	q := newMsgQueue(1)
	a, err := recvViaAio(q, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !q.putMsg(message.From([]byte("direct"))) {
		t.Fatal("put with parked reader rejected")
	}
	m, err := aioResult(t, a)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !bytes.Equal(m.Body(), []byte("direct")) {
		t.Fatalf("body = %q", m.Body())
	}
	m.Free()
}

func TestQueueNonblockBehavior(t *testing.T) {
	q := newMsgQueue(1)
	if _, err := recvViaAio(q, true); err != api.ErrTryAgain {
		t.Fatalf("nonblock get on empty queue: %v", err)
	}
	if !q.putMsg(message.From([]byte("x"))) {
		t.Fatal("put rejected")
	}
	m := message.From([]byte("y"))
	if _, err := sendViaAio(q, m, true); err != api.ErrTryAgain {
		t.Fatalf("nonblock put on full queue: %v", err)
	}
	m.Free()
}

func TestQueuePromotesParkedWriters(t *testing.T) {
	q := newMsgQueue(1)
	if !q.putMsg(message.From([]byte("first"))) {
		t.Fatal("seed put rejected")
	}
	w, err := sendViaAio(q, message.From([]byte("second")), false)
	if err != nil {
		t.Fatalf("park writer: %v", err)
	}

	r, err := recvViaAio(q, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	m, err := aioResult(t, r)
	if err != nil || !bytes.Equal(m.Body(), []byte("first")) {
		t.Fatalf("reader got %v %v", m, err)
	}
	m.Free()

	// Space freed by the read promotes the parked writer.
	if _, err := aioResult(t, w); err != nil {
		t.Fatalf("writer completion: %v", err)
	}
	m2, ok := q.popWait(nil)
	if !ok || !bytes.Equal(m2.Body(), []byte("second")) {
		t.Fatalf("promoted message: %v %v", m2, ok)
	}
	m2.Free()
}

func TestQueueCloseFiresParkedOperations(t *testing.T) {
	q := newMsgQueue(1)
	r, err := recvViaAio(q, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	q.close()
	if _, err := aioResult(t, r); err != api.ErrClosed {
		t.Fatalf("parked reader after close: %v", err)
	}
	if q.putMsg(message.From([]byte("late"))) {
		t.Fatal("put accepted after close")
	}
	if _, ok := q.popWait(nil); ok {
		t.Fatal("pop succeeded after close")
	}
}

func TestQueueCancelledReaderDoesNotEatMessage(t *testing.T) {
	q := newMsgQueue(1)
	r, err := recvViaAio(q, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	r.Stop()
	if _, err := r.Result(); err != api.ErrCanceled {
		t.Fatalf("cancelled reader: %v", err)
	}

	if !q.putMsg(message.From([]byte("keep"))) {
		t.Fatal("put rejected")
	}
	m, ok := q.popWait(nil)
	if !ok || !bytes.Equal(m.Body(), []byte("keep")) {
		t.Fatal("message lost to a dead reader")
	}
	m.Free()
}

func TestQueuePopWaitHonorsStopPredicate(t *testing.T) {
	q := newMsgQueue(1)
	stop := make(chan struct{})
	done := make(chan bool)
	go func() {
		_, ok := q.popWait(func() bool {
			select {
			case <-stop:
				return true
			default:
				return false
			}
		})
		done <- ok
	}()

	close(stop)
	q.wake()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("popWait returned a message after stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("popWait did not observe stop")
	}
}
