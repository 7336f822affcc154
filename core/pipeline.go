// File: core/pipeline.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Push and pull form the one-way pipeline pair. Push fans messages out
// over its pipes through the shared balanced send queue; pull fans
// inbound traffic in. Each half rejects the opposite direction.

package core

import (
	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

type pushProto struct {
	s *Socket
}

func (pr *pushProto) attach(p *pipe) bool { return true }
func (pr *pushProto) detach(p *pipe)      {}

func (pr *pushProto) send(op *operation) error {
	return pr.s.sendQ.put(op)
}

func (pr *pushProto) recv(op *operation) error { return api.ErrNotSupported }

func (pr *pushProto) fromPipe(p *pipe, m *message.Message) {
	// Pull peers have nothing to say.
	m.Free()
}

func (pr *pushProto) wantsPipeQueue() bool     { return false }
func (pr *pushProto) newCtx() (ctxCore, error) { return nil, api.ErrNotSupported }
func (pr *pushProto) close()                   {}

type pullProto struct {
	s *Socket
}

func (pr *pullProto) attach(p *pipe) bool { return true }
func (pr *pullProto) detach(p *pipe)      {}

func (pr *pullProto) send(op *operation) error { return api.ErrNotSupported }

func (pr *pullProto) recv(op *operation) error {
	return pr.s.recvQ.get(op)
}

func (pr *pullProto) fromPipe(p *pipe, m *message.Message) {
	// Blocking here is the pipeline's backpressure: the pipe reader
	// stalls, the peer's queue fills, its pushers park.
	if !pr.s.recvQ.putMsgWait(m, p.stopped) {
		m.Free()
	}
}

func (pr *pullProto) wantsPipeQueue() bool     { return false }
func (pr *pullProto) newCtx() (ctxCore, error) { return nil, api.ErrNotSupported }
func (pr *pullProto) close()                   {}
