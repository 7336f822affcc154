// File: sp/reqrep_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sp

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-sp/api"
)

func reqRepPair(t *testing.T, url string) (Socket, Socket) {
	t.Helper()
	rep, err := Open(api.Rep0)
	if err != nil {
		t.Fatalf("open rep: %v", err)
	}
	if err := rep.Listen(url); err != nil {
		rep.Close()
		t.Fatalf("listen: %v", err)
	}
	req, err := Open(api.Req0)
	if err != nil {
		rep.Close()
		t.Fatalf("open req: %v", err)
	}
	if _, err := req.DialFlags(url, api.FlagSynch); err != nil {
		rep.Close()
		req.Close()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		req.Close()
		rep.Close()
	})
	return req, rep
}

func TestReqRepRoundtrip(t *testing.T) {
	req, rep := reqRepPair(t, "inproc://reqrep-basic")

	request := []byte{0xde, 0xad, 0xbe, 0xef}
	go func() {
		b, err := rep.Recv(0)
		if err != nil {
			return
		}
		if len(b) != 4 || b[0] != 0xde || b[3] != 0xef {
			rep.Send([]byte("bad request"), 0)
			return
		}
		// Flip the bytes so the client can tell the reply was rewritten,
		// not echoed.
		rep.Send([]byte{b[3], b[2], b[1], b[0]}, 0)
	}()

	if err := req.Send(request, 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	b, err := req.Recv(0)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	want := []byte{0xef, 0xbe, 0xad, 0xde}
	if len(b) != 4 || b[0] != want[0] || b[1] != want[1] || b[2] != want[2] || b[3] != want[3] {
		t.Fatalf("reply = %x", b)
	}
}

func TestReqRecvWithoutRequestIsState(t *testing.T) {
	req, _ := reqRepPair(t, "inproc://reqrep-state")
	if _, err := req.Recv(0); err != api.ErrState {
		t.Fatalf("recv before send = %v", err)
	}
}

func TestRepSendWithoutRequestIsState(t *testing.T) {
	_, rep := reqRepPair(t, "inproc://reqrep-repstate")
	if err := rep.Send([]byte("unsolicited"), 0); err != api.ErrState {
		t.Fatalf("reply before request = %v", err)
	}
}

// A new request abandons the previous conversation: the old reply, if
// it ever arrives, is discarded, and only the new one is delivered.
func TestReqNewRequestSupersedesOld(t *testing.T) {
	req, rep := reqRepPair(t, "inproc://reqrep-supersede")

	go func() {
		for {
			b, err := rep.Recv(0)
			if err != nil {
				return
			}
			if err := rep.Send(b, 0); err != nil {
				return
			}
		}
	}()

	if err := req.Send([]byte("first"), 0); err != nil {
		t.Fatalf("send first: %v", err)
	}
	if err := req.Send([]byte("second"), 0); err != nil {
		t.Fatalf("send second: %v", err)
	}
	req.SetOption(api.OptRecvTimeout, 2*time.Second)
	b, err := req.Recv(0)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(b) != "second" {
		t.Fatalf("reply = %q, want the superseding request's echo", b)
	}
}

// Contexts multiplex independent conversations over one socket: each
// gets its own reply, concurrently, with no cross-talk.
func TestReqRepContextsAreIsolated(t *testing.T) {
	req, rep := reqRepPair(t, "inproc://reqrep-ctx")

	const workers = 2
	const clients = 8

	for i := 0; i < workers; i++ {
		ctx, err := rep.OpenContext()
		if err != nil {
			t.Fatalf("rep context: %v", err)
		}
		go func(c Ctx) {
			for {
				m, err := c.RecvMsg(0)
				if err != nil {
					return
				}
				m.Append([]byte("-ack"))
				if err := c.SendMsg(m, 0); err != nil {
					m.Free()
					return
				}
			}
		}(ctx)
	}

	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		ctx, err := req.OpenContext()
		if err != nil {
			t.Fatalf("req context: %v", err)
		}
		wg.Add(1)
		go func(id int, c Ctx) {
			defer wg.Done()
			defer c.Close()
			want := fmt.Sprintf("client-%d", id)
			if err := c.Send([]byte(want), 0); err != nil {
				errs <- fmt.Errorf("ctx %d send: %w", id, err)
				return
			}
			b, err := c.Recv(0)
			if err != nil {
				errs <- fmt.Errorf("ctx %d recv: %w", id, err)
				return
			}
			if string(b) != want+"-ack" {
				errs <- fmt.Errorf("ctx %d got %q", id, b)
			}
		}(i, ctx)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestCtxCloseLeavesSocketUsable(t *testing.T) {
	req, rep := reqRepPair(t, "inproc://reqrep-ctxclose")

	ctx, err := req.OpenContext()
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ctx.Close(); err != api.ErrClosed {
		t.Fatalf("double close = %v", err)
	}
	if _, err := ctx.Recv(0); err != api.ErrClosed {
		t.Fatalf("recv on closed ctx = %v", err)
	}

	go func() {
		b, err := rep.Recv(0)
		if err != nil {
			return
		}
		rep.Send(b, 0)
	}()
	if err := req.Send([]byte("still alive"), 0); err != nil {
		t.Fatalf("socket send after ctx close: %v", err)
	}
	if _, err := req.Recv(0); err != nil {
		t.Fatalf("socket recv after ctx close: %v", err)
	}
}

func TestContextsUnsupportedOnPair(t *testing.T) {
	s, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.OpenContext(); err != api.ErrNotSupported {
		t.Fatalf("pair context = %v", err)
	}
}

// With a resend interval configured, a request lost before any peer
// existed is retransmitted once a peer shows up.
func TestResendEnabledByDefault(t *testing.T) {
	req, err := Open(api.Req0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { req.Close() })
	v, err := req.GetOption(api.OptResendTime)
	if err != nil {
		t.Fatalf("get resend time: %v", err)
	}
	if v.(time.Duration) != time.Minute {
		t.Fatalf("default resend time = %v", v)
	}

	ctx, err := req.OpenContext()
	if err != nil {
		t.Fatalf("open context: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	v, err = ctx.GetOption(api.OptResendTime)
	if err != nil {
		t.Fatalf("ctx get resend time: %v", err)
	}
	if v.(time.Duration) != time.Minute {
		t.Fatalf("ctx default resend time = %v", v)
	}
}

func TestReqResendReachesLatePeer(t *testing.T) {
	url := "inproc://reqrep-resend"
	req, err := Open(api.Req0)
	if err != nil {
		t.Fatalf("open req: %v", err)
	}
	t.Cleanup(func() { req.Close() })
	req.SetOption(api.OptResendTime, 50*time.Millisecond)
	if err := req.Dial(url); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := req.Send([]byte("patient"), 0); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Bring the responder up only after the request was sent.
	time.Sleep(100 * time.Millisecond)
	rep, err := Open(api.Rep0)
	if err != nil {
		t.Fatalf("open rep: %v", err)
	}
	t.Cleanup(func() { rep.Close() })
	if err := rep.Listen(url); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		b, err := rep.Recv(0)
		if err != nil {
			return
		}
		rep.Send(b, 0)
	}()

	req.SetOption(api.OptRecvTimeout, 5*time.Second)
	b, err := req.Recv(0)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(b) != "patient" {
		t.Fatalf("reply = %q", b)
	}
}
