// File: sp/pipeline_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sp

import (
	"testing"
	"time"

	"github.com/momentics/hioload-sp/api"
)

func TestPipelineOverTCP(t *testing.T) {
	push, err := Open(api.Push0)
	if err != nil {
		t.Fatalf("open push: %v", err)
	}
	t.Cleanup(func() { push.Close() })
	l, err := push.ListenAddr("tcp://127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	pull, err := Open(api.Pull0)
	if err != nil {
		t.Fatalf("open pull: %v", err)
	}
	t.Cleanup(func() { pull.Close() })
	if _, err := pull.DialFlags(l.Addr(), api.FlagSynch); err != nil {
		t.Fatalf("dial %s: %v", l.Addr(), err)
	}

	pull.SetOption(api.OptRecvTimeout, 2*time.Second)
	for i := 0; i < 10; i++ {
		if err := push.Send([]byte{byte(i)}, 0); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		b, err := pull.Recv(0)
		if err != nil {
			t.Fatalf("pull %d: %v", i, err)
		}
		if len(b) != 1 || b[0] != byte(i) {
			t.Fatalf("message %d = %v", i, b)
		}
	}
}

// Each pushed message lands on exactly one puller.
func TestPushDistributesAcrossPullers(t *testing.T) {
	push, err := Open(api.Push0)
	if err != nil {
		t.Fatalf("open push: %v", err)
	}
	t.Cleanup(func() { push.Close() })
	if err := push.Listen("inproc://pipeline-fanout"); err != nil {
		t.Fatalf("listen: %v", err)
	}

	const pullers = 3
	const jobs = 30
	got := make(chan byte, jobs)
	for i := 0; i < pullers; i++ {
		pull, err := Open(api.Pull0)
		if err != nil {
			t.Fatalf("open pull %d: %v", i, err)
		}
		t.Cleanup(func() { pull.Close() })
		if _, err := pull.DialFlags("inproc://pipeline-fanout", api.FlagSynch); err != nil {
			t.Fatalf("dial: %v", err)
		}
		go func(s Socket) {
			for {
				b, err := s.Recv(0)
				if err != nil {
					return
				}
				got <- b[0]
			}
		}(pull)
	}

	for i := 0; i < jobs; i++ {
		if err := push.Send([]byte{byte(i)}, 0); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	seen := make(map[byte]bool)
	for i := 0; i < jobs; i++ {
		select {
		case b := <-got:
			if seen[b] {
				t.Fatalf("job %d delivered twice", b)
			}
			seen[b] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d jobs arrived", i, jobs)
		}
	}
}

func TestPushCannotRecv(t *testing.T) {
	push, err := Open(api.Push0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { push.Close() })
	if _, err := push.Recv(0); err != api.ErrNotSupported {
		t.Fatalf("recv on push = %v", err)
	}

	pull, err := Open(api.Pull0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { pull.Close() })
	if err := pull.Send([]byte("no"), 0); err != api.ErrNotSupported {
		t.Fatalf("send on pull = %v", err)
	}
}

func TestDialRefusedSynchronously(t *testing.T) {
	s, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.DialFlags("inproc://nobody-listens-here", api.FlagSynch); err != api.ErrConnRefused {
		t.Fatalf("synchronous dial with no listener = %v", err)
	}
}

func TestListenAddrInUse(t *testing.T) {
	a, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	if err := a.Listen("inproc://pipeline-addr-in-use"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	b, err := Open(api.Pair0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	if err := b.Listen("inproc://pipeline-addr-in-use"); err != api.ErrAddrInUse {
		t.Fatalf("second listen = %v", err)
	}
}

func TestProtocolMismatchRejected(t *testing.T) {
	rep, err := Open(api.Rep0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { rep.Close() })
	if err := rep.Listen("inproc://pipeline-mismatch"); err != nil {
		t.Fatalf("listen: %v", err)
	}

	pushy, err := Open(api.Push0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { pushy.Close() })
	if _, err := pushy.DialFlags("inproc://pipeline-mismatch", api.FlagSynch); err != api.ErrProto {
		t.Fatalf("push dialing rep = %v", err)
	}
}
