// File: core/aio_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package core

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

// Delivery from another goroutine races the timeout being armed, since
// the operation is visible to the queue before submit returns. Run
// with the race detector: whichever side wins, the callback fires
// exactly once per round and no round hangs.
func TestRecvTimeoutRacesDelivery(t *testing.T) {
	const rounds = 500
	q := newMsgQueue(rounds)
	var completions int32
	for i := 0; i < rounds; i++ {
		a := NewAio(func() { atomic.AddInt32(&completions, 1) })
		go q.putMsg(message.From([]byte("tick")))
		if err := a.submit(opRecv, 50*time.Microsecond, nil, false, q.get); err != nil {
			t.Fatalf("round %d submit: %v", i, err)
		}
		a.Wait()
		m, err := a.Result()
		switch err {
		case nil:
			m.Free()
		case api.ErrTimedOut:
			// The message stays buffered for a later reader.
		default:
			t.Fatalf("round %d completed with %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&completions); got != rounds {
		t.Fatalf("completions = %d, want %d", got, rounds)
	}
	q.close()
}

// A completion that wins before the timer is armed must still leave no
// timer running: the late-armed timer is stopped and its expiry never
// fires a second result.
func TestTimeoutAfterImmediateCompletion(t *testing.T) {
	q := newMsgQueue(4)
	for i := 0; i < 100; i++ {
		if !q.putMsg(message.From([]byte("ready"))) {
			t.Fatal("seed put rejected")
		}
		a := NewAio(nil)
		// The queued message completes the receive inside submit's prep.
		if err := a.submit(opRecv, time.Nanosecond, nil, false, q.get); err != nil {
			t.Fatalf("submit: %v", err)
		}
		a.Wait()
		m, err := a.Result()
		if err != nil {
			t.Fatalf("round %d: immediate delivery lost to the timer: %v", i, err)
		}
		m.Free()
		// Give a leaked expiry a window to fire; the result must hold.
		time.Sleep(50 * time.Microsecond)
		if _, err := a.Result(); err != nil {
			t.Fatalf("round %d: result rewritten to %v", i, err)
		}
	}
}
