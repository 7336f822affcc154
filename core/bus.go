// File: core/bus.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package core

import (
	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

// busProto is the many-to-many mesh protocol: every sent message goes
// to every directly connected peer, inbound messages are delivered
// locally and never relayed. Loop-free forwarding across a mesh is a
// device concern, not the socket's.
type busProto struct {
	s *Socket
}

func (pr *busProto) attach(p *pipe) bool { return true }
func (pr *busProto) detach(p *pipe)      {}

func (pr *busProto) send(op *operation) error {
	if op.fire(nil, nil) {
		pr.s.mu.Lock()
		pipes := pr.s.pipeList()
		pr.s.mu.Unlock()
		broadcast(pipes, op.msg)
	}
	return nil
}

func (pr *busProto) recv(op *operation) error {
	return pr.s.recvQ.get(op)
}

func (pr *busProto) fromPipe(p *pipe, m *message.Message) {
	// Best effort under pressure: lose a message before stalling the
	// whole mesh.
	if !pr.s.recvQ.putMsg(m) {
		m.Free()
	}
}

func (pr *busProto) wantsPipeQueue() bool     { return true }
func (pr *busProto) newCtx() (ctxCore, error) { return nil, api.ErrNotSupported }
func (pr *busProto) close()                   {}
