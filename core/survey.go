// File: core/survey.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Surveyor/respondent. A survey is a broadcast request: every
// connected respondent may answer once, and answers are accepted only
// until the survey deadline passes. The respondent side reuses the
// routed responder core from reqrep.go; only the surveyor lives here.

package core

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

const defaultSurveyTime = time.Second

// surveyReplyBuf bounds how many unread answers a survey retains.
const surveyReplyBuf = 128

type surveyorProto struct {
	s *Socket

	mu         sync.Mutex
	nextID     uint32
	byID       map[uint32]*surveyorCtx
	surveyTime time.Duration

	defCtx *surveyorCtx
}

func newSurveyorProto(s *Socket) protoCore {
	pr := &surveyorProto{
		s:          s,
		nextID:     rand.Uint32(),
		byID:       make(map[uint32]*surveyorCtx),
		surveyTime: defaultSurveyTime,
	}
	pr.defCtx = &surveyorCtx{pr: pr, surveyTime: defaultSurveyTime}
	return pr
}

func (pr *surveyorProto) allocID(c *surveyorCtx) uint32 {
	pr.mu.Lock()
	pr.nextID++
	id := pr.nextID | requestIDFlag
	pr.byID[id] = c
	pr.mu.Unlock()
	return id
}

func (pr *surveyorProto) dropID(id uint32, c *surveyorCtx) {
	if id == 0 {
		return
	}
	pr.mu.Lock()
	if pr.byID[id] == c {
		delete(pr.byID, id)
	}
	pr.mu.Unlock()
}

func (pr *surveyorProto) attach(p *pipe) bool { return true }
func (pr *surveyorProto) detach(p *pipe)      {}

func (pr *surveyorProto) send(op *operation) error { return pr.defCtx.send(op) }
func (pr *surveyorProto) recv(op *operation) error { return pr.defCtx.recv(op) }

func (pr *surveyorProto) fromPipe(p *pipe, m *message.Message) {
	id, ok := trimRequestID(m, pr.s.hopLimit())
	if !ok {
		m.Free()
		return
	}
	pr.mu.Lock()
	c := pr.byID[id]
	pr.mu.Unlock()
	if c == nil || !c.deliver(id, m) {
		m.Free()
	}
}

func (pr *surveyorProto) wantsPipeQueue() bool { return true }

func (pr *surveyorProto) newCtx() (ctxCore, error) {
	pr.mu.Lock()
	st := pr.surveyTime
	pr.mu.Unlock()
	return &surveyorCtx{pr: pr, surveyTime: st}, nil
}

func (pr *surveyorProto) close() {
	pr.mu.Lock()
	ctxs := make(map[*surveyorCtx]bool)
	for _, c := range pr.byID {
		ctxs[c] = true
	}
	pr.byID = make(map[uint32]*surveyorCtx)
	pr.mu.Unlock()
	ctxs[pr.defCtx] = true
	for c := range ctxs {
		c.close()
	}
}

func (pr *surveyorProto) setProtoOption(o api.Option, v any) error {
	if o != api.OptSurveyTime {
		return api.ErrNotSupported
	}
	d, ok := optDuration(v)
	if !ok || d < 0 {
		return api.ErrInvalidArg
	}
	pr.mu.Lock()
	pr.surveyTime = d
	pr.mu.Unlock()
	return pr.defCtx.setProtoOption(o, v)
}

func (pr *surveyorProto) getProtoOption(o api.Option) (any, error) {
	if o != api.OptSurveyTime {
		return nil, api.ErrNotSupported
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.surveyTime, nil
}

// surveyorCtx is one survey at a time. Starting a new survey abandons
// the old one; a parked receive past the deadline completes with
// ErrTimedOut, and receives after that fail with ErrState until the
// next survey.
type surveyorCtx struct {
	pr *surveyorProto
	c  *Ctx

	mu         sync.Mutex
	surveyID   uint32
	replies    []*message.Message
	recvOp     *operation
	surveyTime time.Duration
	timer      *time.Timer
	closed     bool
}

func (c *surveyorCtx) bind(cc *Ctx) { c.c = cc }

func (c *surveyorCtx) send(op *operation) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrClosed
	}
	c.mu.Unlock()

	id := c.pr.allocID(c)
	if !op.fire(nil, nil) {
		c.pr.dropID(id, c)
		return nil
	}
	m := op.msg
	m.HeaderAppendUint32(id)

	c.mu.Lock()
	oldID := c.surveyID
	old := c.replies
	c.replies = nil
	oldRecv := c.takeRecvLocked()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.surveyID = id
	if c.surveyTime > 0 {
		c.timer = time.AfterFunc(c.surveyTime, func() { c.expire(id) })
	} else {
		c.timer = nil
	}
	c.mu.Unlock()

	c.pr.dropID(oldID, c)
	for _, r := range old {
		r.Free()
	}
	if oldRecv != nil {
		oldRecv.fire(nil, api.ErrCanceled)
	}

	c.pr.s.mu.Lock()
	pipes := c.pr.s.pipeList()
	c.pr.s.mu.Unlock()
	broadcast(pipes, m)
	return nil
}

func (c *surveyorCtx) recv(op *operation) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrClosed
	}
	if len(c.replies) > 0 {
		m := c.replies[0]
		c.replies = c.replies[1:]
		c.mu.Unlock()
		if !op.fire(m, nil) {
			m.Free()
		}
		return nil
	}
	if c.surveyID == 0 {
		c.mu.Unlock()
		return api.ErrState
	}
	if c.recvOp != nil && !c.recvOp.done() {
		c.mu.Unlock()
		return api.ErrState
	}
	c.recvOp = op
	c.mu.Unlock()
	return nil
}

func (c *surveyorCtx) deliver(id uint32, m *message.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.surveyID != id {
		return false
	}
	if op := c.takeRecvLocked(); op != nil && op.fire(m, nil) {
		return true
	}
	if len(c.replies) >= surveyReplyBuf {
		return false
	}
	c.replies = append(c.replies, m)
	return true
}

func (c *surveyorCtx) expire(id uint32) {
	c.mu.Lock()
	if c.closed || c.surveyID != id {
		c.mu.Unlock()
		return
	}
	c.surveyID = 0
	old := c.replies
	c.replies = nil
	op := c.takeRecvLocked()
	c.mu.Unlock()

	c.pr.dropID(id, c)
	for _, r := range old {
		r.Free()
	}
	if op != nil {
		op.fire(nil, api.ErrTimedOut)
	}
}

func (c *surveyorCtx) takeRecvLocked() *operation {
	op := c.recvOp
	c.recvOp = nil
	if op != nil && op.done() {
		return nil
	}
	return op
}

func (c *surveyorCtx) setProtoOption(o api.Option, v any) error {
	if o != api.OptSurveyTime {
		return api.ErrNotSupported
	}
	d, ok := optDuration(v)
	if !ok || d < 0 {
		return api.ErrInvalidArg
	}
	c.mu.Lock()
	c.surveyTime = d
	c.mu.Unlock()
	return nil
}

func (c *surveyorCtx) getProtoOption(o api.Option) (any, error) {
	if o != api.OptSurveyTime {
		return nil, api.ErrNotSupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surveyTime, nil
}

func (c *surveyorCtx) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	id := c.surveyID
	c.surveyID = 0
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	old := c.replies
	c.replies = nil
	op := c.takeRecvLocked()
	c.mu.Unlock()

	c.pr.dropID(id, c)
	for _, r := range old {
		r.Free()
	}
	if op != nil {
		op.fire(nil, api.ErrClosed)
	}
}
