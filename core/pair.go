// File: core/pair.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package core

import (
	"sync"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

// pairProto is the one-to-one bidirectional protocol. A pair socket
// serves a single peer; extra connections are rejected at attach time.
type pairProto struct {
	s *Socket

	mu   sync.Mutex
	peer *pipe
}

func (pr *pairProto) attach(p *pipe) bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.peer != nil {
		// Busy with a peer already; reject the newcomer.
		return false
	}
	pr.peer = p
	return true
}

func (pr *pairProto) detach(p *pipe) {
	pr.mu.Lock()
	if pr.peer == p {
		pr.peer = nil
	}
	pr.mu.Unlock()
}

func (pr *pairProto) send(op *operation) error {
	return pr.s.sendQ.put(op)
}

func (pr *pairProto) recv(op *operation) error {
	return pr.s.recvQ.get(op)
}

func (pr *pairProto) fromPipe(p *pipe, m *message.Message) {
	pr.mu.Lock()
	accepted := pr.peer == p
	pr.mu.Unlock()
	if !accepted || !pr.s.recvQ.putMsgWait(m, p.stopped) {
		m.Free()
	}
}

func (pr *pairProto) wantsPipeQueue() bool { return false }

func (pr *pairProto) newCtx() (ctxCore, error) { return nil, api.ErrNotSupported }

func (pr *pairProto) close() {}
