// File: sp/device.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Devices chain sockets into topologies: Forward relays traffic
// between two sockets (a pub/sub proxy, a pipeline hop, a bus bridge),
// Reflect bounces everything back where it came from. Both run until a
// socket closes.

package sp

import (
	"github.com/momentics/hioload-sp/api"
)

// forwardable protocols carry no per-message conversation state on the
// socket, so a plain message relay preserves their semantics. Req/rep
// and surveyor/respondent need identifier-aware proxying, which the
// socket layer does not expose.
func forwardable(p api.Protocol) bool {
	switch p {
	case api.Pair0, api.Bus0, api.Pub0, api.Sub0, api.Push0, api.Pull0:
		return true
	}
	return false
}

func devCompatible(p1, p2 api.Protocol) bool {
	return p1 == p2 || p1.Peer() == p2
}

// Forward relays messages between s1 and s2 in both supported
// directions and blocks until either socket closes, returning the
// terminating error. The sockets must carry forwardable, mutually
// compatible protocols.
func Forward(s1, s2 Socket) error {
	p1, p2 := s1.Proto(), s2.Proto()
	if !forwardable(p1) || !forwardable(p2) || !devCompatible(p1, p2) {
		return api.ErrInvalidArg
	}
	done := make(chan error, 2)
	startRelay(s1, s2, done)
	startRelay(s2, s1, done)
	for {
		if err := <-done; err != nil {
			return err
		}
	}
}

// Reflect returns every received message to its sender's socket and
// blocks until the socket closes. A one-socket loopback device.
func Reflect(s Socket) error {
	// Only the symmetric two-way protocols can echo.
	if p := s.Proto(); p != api.Pair0 && p != api.Bus0 {
		return api.ErrInvalidArg
	}
	done := make(chan error, 1)
	startRelay(s, s, done)
	return <-done
}

// relay is one relay direction, driven entirely by aio completions:
// the receive callback submits the send, the send callback resubmits
// the receive. No goroutine is parked between messages.
type relay struct {
	from, to Socket
	done     chan<- error
	rx, tx   *Aio
}

func startRelay(from, to Socket, done chan<- error) {
	r := &relay{from: from, to: to, done: done}
	r.rx = NewAio(r.received)
	r.tx = NewAio(r.sent)
	r.receive()
}

func (r *relay) receive() {
	if err := r.from.RecvAio(r.rx, 0); err != nil {
		r.finish(err)
	}
}

func (r *relay) received(a *Aio) {
	if err := a.Error(); err != nil {
		r.finish(err)
		return
	}
	m := a.Message()
	if err := r.to.SendAio(r.tx, m, 0); err != nil {
		m.Free()
		r.finish(err)
	}
}

func (r *relay) sent(a *Aio) {
	if err := a.Error(); err != nil {
		if m := a.Message(); m != nil {
			m.Free()
		}
		r.finish(err)
		return
	}
	r.receive()
}

// finish reports the direction's terminal status. A direction the
// protocol does not support ends with ErrNotSupported on its first
// submit and counts as a clean exit, which is what makes one-way pairs
// like pull/push work under the bidirectional Forward.
func (r *relay) finish(err error) {
	if err == api.ErrNotSupported {
		err = nil
	}
	r.done <- err
}
