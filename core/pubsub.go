// File: core/pubsub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pub broadcasts every sent message to all connected subscribers; sub
// filters inbound messages against its prefix subscriptions. A fresh
// sub socket has no subscriptions and discards everything.

package core

import (
	"bytes"
	"sync"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

type pubProto struct {
	s *Socket
}

func (pr *pubProto) attach(p *pipe) bool { return true }
func (pr *pubProto) detach(p *pipe)      {}

// send completes immediately. Publishing with no subscribers connected
// succeeds and the message evaporates; a full subscriber queue drops
// that subscriber's copy rather than stalling the rest.
func (pr *pubProto) send(op *operation) error {
	if op.fire(nil, nil) {
		pr.s.mu.Lock()
		pipes := pr.s.pipeList()
		pr.s.mu.Unlock()
		broadcast(pipes, op.msg)
	}
	return nil
}

func (pr *pubProto) recv(op *operation) error { return api.ErrNotSupported }

func (pr *pubProto) fromPipe(p *pipe, m *message.Message) { m.Free() }

func (pr *pubProto) wantsPipeQueue() bool     { return true }
func (pr *pubProto) newCtx() (ctxCore, error) { return nil, api.ErrNotSupported }
func (pr *pubProto) close()                   {}

type subProto struct {
	s *Socket

	mu   sync.Mutex
	subs [][]byte
}

func (pr *subProto) attach(p *pipe) bool { return true }
func (pr *subProto) detach(p *pipe)      {}

func (pr *subProto) send(op *operation) error { return api.ErrNotSupported }

func (pr *subProto) recv(op *operation) error {
	return pr.s.recvQ.get(op)
}

func (pr *subProto) matches(body []byte) bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	for _, s := range pr.subs {
		if bytes.HasPrefix(body, s) {
			return true
		}
	}
	return false
}

// fromPipe filters and never blocks: a slow subscriber loses messages
// instead of backpressuring the publisher.
func (pr *subProto) fromPipe(p *pipe, m *message.Message) {
	if !pr.matches(m.Body()) || !pr.s.recvQ.putMsg(m) {
		m.Free()
	}
}

func (pr *subProto) wantsPipeQueue() bool     { return false }
func (pr *subProto) newCtx() (ctxCore, error) { return nil, api.ErrNotSupported }
func (pr *subProto) close()                   {}

func (pr *subProto) setProtoOption(o api.Option, v any) error {
	topic, ok := optBytes(v)
	if !ok {
		return api.ErrInvalidArg
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	switch o {
	case api.OptSubscribe:
		for _, s := range pr.subs {
			if bytes.Equal(s, topic) {
				return nil
			}
		}
		pr.subs = append(pr.subs, append([]byte(nil), topic...))
		return nil
	case api.OptUnsubscribe:
		for i, s := range pr.subs {
			if bytes.Equal(s, topic) {
				pr.subs = append(pr.subs[:i], pr.subs[i+1:]...)
				return nil
			}
		}
		return api.ErrInvalidArg
	default:
		return api.ErrNotSupported
	}
}

func (pr *subProto) getProtoOption(o api.Option) (any, error) {
	return nil, api.ErrNotSupported
}
