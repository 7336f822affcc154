// File: core/protocol.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// protoCore is the per-protocol behavior behind a socket core: message
// distribution on send, filtering and routing on receive, and context
// support. Implementations live in pair.go, pipeline.go, pubsub.go,
// bus.go, reqrep.go and survey.go.

package core

import (
	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

type protoCore interface {
	// attach runs after a pipe completed its handshake and before its
	// I/O loops start. Returning false rejects the pipe; the socket
	// closes it without it ever becoming visible to observers.
	attach(p *pipe) bool

	// detach runs once when a pipe is removed.
	detach(p *pipe)

	// send registers a send operation. A nil return means the
	// operation was completed or parked; an error rejects it
	// synchronously, before any callback.
	send(op *operation) error

	// recv registers a receive operation, same contract as send.
	recv(op *operation) error

	// fromPipe takes ownership of an inbound message.
	fromPipe(p *pipe, m *message.Message)

	// wantsPipeQueue selects per-pipe send queues (routing and
	// broadcast protocols) over the shared balanced send queue.
	wantsPipeQueue() bool

	// newCtx creates a protocol context, or ErrNotSupported.
	newCtx() (ctxCore, error)

	// close tears down protocol state; parked operations complete
	// with ErrClosed.
	close()
}

// ctxCore is one logical conversation channel of a context-capable
// protocol.
type ctxCore interface {
	bind(c *Ctx)
	send(op *operation) error
	recv(op *operation) error
	close()
}

// protoOptions is implemented by protocols with their own option keys
// (sub subscriptions, req resend time, surveyor deadline).
type protoOptions interface {
	setProtoOption(o api.Option, v any) error
	getProtoOption(o api.Option) (any, error)
}

func newProtoCore(s *Socket) protoCore {
	switch s.protoNum {
	case api.Pair0:
		return &pairProto{s: s}
	case api.Push0:
		return &pushProto{s: s}
	case api.Pull0:
		return &pullProto{s: s}
	case api.Pub0:
		return &pubProto{s: s}
	case api.Sub0:
		return &subProto{s: s}
	case api.Bus0:
		return &busProto{s: s}
	case api.Req0:
		return newReqProto(s)
	case api.Rep0:
		return newRepProto(s)
	case api.Surveyor0:
		return newSurveyorProto(s)
	case api.Respondent0:
		return newRespondentProto(s)
	default:
		return nil
	}
}

// broadcast duplicates m into every given pipe's send queue, dropping
// the copy when a slow peer's queue is full. The original is consumed.
func broadcast(pipes []*pipe, m *message.Message) {
	for _, p := range pipes {
		if p.sendQ == nil {
			continue
		}
		d := m.Dup()
		if !p.sendQ.putMsg(d) {
			d.Free()
		}
	}
	m.Free()
}
