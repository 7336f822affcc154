// File: sp/pipe_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sp

import (
	"testing"
	"time"

	"github.com/momentics/hioload-sp/api"
)

func TestPipeEventsOnConnect(t *testing.T) {
	srv, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	type event struct {
		ev   api.PipeEvent
		pipe int
	}
	events := make(chan event, 8)
	srv.SetPipeHook(func(p Pipe, ev api.PipeEvent) {
		events <- event{ev, p.ID()}
	})
	if err := srv.Listen("inproc://pipe-events"); err != nil {
		t.Fatalf("listen: %v", err)
	}

	cli, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := cli.DialFlags("inproc://pipe-events", api.FlagSynch); err != nil {
		t.Fatalf("dial: %v", err)
	}

	var added event
	select {
	case added = <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no pipe event after connect")
	}
	if added.ev != api.PipeAdded {
		t.Fatalf("first event = %v", added.ev)
	}
	if added.pipe == 0 {
		t.Fatal("added event carried no pipe id")
	}

	cli.Close()
	select {
	case got := <-events:
		if got.ev != api.PipeRemoved {
			t.Fatalf("event after close = %v", got.ev)
		}
		if got.pipe != added.pipe {
			t.Fatalf("removed pipe %d, added pipe %d", got.pipe, added.pipe)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no removed event after peer close")
	}
}

// The added hook runs before the pipe carries traffic, so state set up
// inside it is visible to the first receive.
func TestPipeAddedRunsBeforeTraffic(t *testing.T) {
	srv, err := Open(api.Pull0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	ready := make(chan int, 1)
	srv.SetPipeHook(func(p Pipe, ev api.PipeEvent) {
		if ev == api.PipeAdded {
			ready <- p.ID()
		}
	})
	if err := srv.Listen("inproc://pipe-before-traffic"); err != nil {
		t.Fatalf("listen: %v", err)
	}

	cli, err := Open(api.Push0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { cli.Close() })
	if _, err := cli.DialFlags("inproc://pipe-before-traffic", api.FlagSynch); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := cli.Send([]byte("hello"), 0); err != nil {
		t.Fatalf("send: %v", err)
	}

	srv.SetOption(api.OptRecvTimeout, 2*time.Second)
	m, err := srv.RecvMsg(0)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	defer m.Free()

	select {
	case id := <-ready:
		if id != int(m.Pipe()) {
			t.Fatalf("message arrived on pipe %d, hook saw %d", m.Pipe(), id)
		}
	default:
		t.Fatal("message delivered before the added hook ran")
	}
}

// A pair socket with a peer refuses further pipes before they become
// visible: the observer sees no events at all for the rejected pipe,
// never a Removed without its Added.
func TestPairRejectsSecondPeerWithoutEvents(t *testing.T) {
	srv, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	events := make(chan api.PipeEvent, 8)
	srv.SetPipeHook(func(p Pipe, ev api.PipeEvent) {
		events <- ev
	})
	if err := srv.Listen("inproc://pair-one-peer"); err != nil {
		t.Fatalf("listen: %v", err)
	}

	first, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open first: %v", err)
	}
	t.Cleanup(func() { first.Close() })
	if _, err := first.DialFlags("inproc://pair-one-peer", api.FlagSynch); err != nil {
		t.Fatalf("dial first: %v", err)
	}
	select {
	case ev := <-events:
		if ev != api.PipeAdded {
			t.Fatalf("first event = %v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no added event for the first peer")
	}

	// The second peer's own dial may succeed; the rejection happens on
	// the listening side, before the pipe is published there.
	second, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	if err := second.Dial("inproc://pair-one-peer"); err != nil {
		t.Fatalf("dial second: %v", err)
	}

	select {
	case ev := <-events:
		t.Fatalf("rejected pipe produced event %v", ev)
	case <-time.After(200 * time.Millisecond):
	}
	second.Close()

	// The established pair is untouched by the rejection.
	first.SetOption(api.OptRecvTimeout, 2*time.Second)
	if err := srv.Send([]byte("still here"), 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	b, err := first.Recv(0)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(b) != "still here" {
		t.Fatalf("got %q", b)
	}
}

func TestPipeAddrOptions(t *testing.T) {
	srv, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	addrs := make(chan string, 2)
	srv.SetPipeHook(func(p Pipe, ev api.PipeEvent) {
		if ev != api.PipeAdded {
			return
		}
		local, err := p.GetOption(api.OptLocalAddr)
		if err != nil {
			t.Errorf("local addr: %v", err)
			return
		}
		remote, err := p.GetOption(api.OptRemoteAddr)
		if err != nil {
			t.Errorf("remote addr: %v", err)
			return
		}
		addrs <- local.(string)
		addrs <- remote.(string)
	})
	l, err := srv.ListenAddr("tcp://127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	cli, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { cli.Close() })
	if _, err := cli.DialFlags(l.Addr(), api.FlagSynch); err != nil {
		t.Fatalf("dial: %v", err)
	}

	select {
	case local := <-addrs:
		if local == "" {
			t.Fatal("empty local address")
		}
		remote := <-addrs
		if remote == "" {
			t.Fatal("empty remote address")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("added hook never fired")
	}
}

func TestDialerAndListenerHooks(t *testing.T) {
	srv, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	l, err := srv.NewListener("inproc://pipe-scoped-hooks")
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	lEvents := make(chan api.PipeEvent, 4)
	l.SetPipeHook(func(p Pipe, ev api.PipeEvent) {
		if p.ListenerID() != l.ID() {
			t.Errorf("listener hook saw listener id %d, want %d", p.ListenerID(), l.ID())
		}
		lEvents <- ev
	})
	if err := l.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	cli, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { cli.Close() })
	d, err := cli.NewDialer("inproc://pipe-scoped-hooks")
	if err != nil {
		t.Fatalf("new dialer: %v", err)
	}
	dEvents := make(chan api.PipeEvent, 4)
	d.SetPipeHook(func(p Pipe, ev api.PipeEvent) {
		if ev == api.PipeAdded && p.DialerID() != d.ID() {
			t.Errorf("dialer hook saw dialer id %d, want %d", p.DialerID(), d.ID())
		}
		dEvents <- ev
	})
	if err := d.Start(api.FlagSynch); err != nil {
		t.Fatalf("start: %v", err)
	}

	for name, ch := range map[string]chan api.PipeEvent{"listener": lEvents, "dialer": dEvents} {
		select {
		case ev := <-ch:
			if ev != api.PipeAdded {
				t.Fatalf("%s hook first event = %v", name, ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s hook never fired", name)
		}
	}
}
