// File: core/reqrep.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Request/reply. Each request carries a 4-byte identifier with the
// high bit set in its header; the reply comes back with the same
// identifier leading its payload, which is how concurrent
// conversations multiplexed over one socket find their owners.
// Contexts hold the per-conversation state; the socket-level send and
// receive operations run on an implicit default context.

package core

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/message"
)

const requestIDFlag = uint32(0x80000000)

// defaultResendTime is how long an unanswered request waits before it
// is retransmitted. Zero disables retries.
const defaultResendTime = time.Minute

type reqProto struct {
	s *Socket

	mu     sync.Mutex
	nextID uint32
	byID   map[uint32]*reqCtx
	resend time.Duration
	closed bool

	defCtx *reqCtx
}

func newReqProto(s *Socket) protoCore {
	pr := &reqProto{
		s:      s,
		nextID: rand.Uint32(),
		byID:   make(map[uint32]*reqCtx),
		resend: defaultResendTime,
	}
	pr.defCtx = &reqCtx{pr: pr, resend: defaultResendTime}
	return pr
}

func (pr *reqProto) allocID(c *reqCtx) uint32 {
	pr.mu.Lock()
	pr.nextID++
	id := pr.nextID | requestIDFlag
	pr.byID[id] = c
	pr.mu.Unlock()
	return id
}

func (pr *reqProto) dropID(id uint32, c *reqCtx) {
	if id == 0 {
		return
	}
	pr.mu.Lock()
	if pr.byID[id] == c {
		delete(pr.byID, id)
	}
	pr.mu.Unlock()
}

func (pr *reqProto) attach(p *pipe) bool { return true }
func (pr *reqProto) detach(p *pipe)      {}

func (pr *reqProto) send(op *operation) error { return pr.defCtx.send(op) }
func (pr *reqProto) recv(op *operation) error { return pr.defCtx.recv(op) }

// fromPipe matches a reply to its conversation. Replies whose
// identifier matches no outstanding request are stale (a peer answered
// after a retry or cancellation) and are discarded.
func (pr *reqProto) fromPipe(p *pipe, m *message.Message) {
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

func (pr *reqProto) wantsPipeQueue() bool { return false }

func (pr *reqProto) newCtx() (ctxCore, error) {
	pr.mu.Lock()
	resend := pr.resend
	pr.mu.Unlock()
	return &reqCtx{pr: pr, resend: resend}, nil
}

func (pr *reqProto) close() {
	pr.mu.Lock()
	pr.closed = true
	ctxs := make(map[*reqCtx]bool)
	for _, c := range pr.byID {
		ctxs[c] = true
	}
	pr.byID = make(map[uint32]*reqCtx)
	pr.mu.Unlock()
	ctxs[pr.defCtx] = true
	for c := range ctxs {
		c.close()
	}
}

func (pr *reqProto) setProtoOption(o api.Option, v any) error {
	if o != api.OptResendTime {
		return api.ErrNotSupported
	}
	d, ok := optDuration(v)
	if !ok || d < 0 {
		return api.ErrInvalidArg
	}
	pr.mu.Lock()
	pr.resend = d
	pr.mu.Unlock()
	return pr.defCtx.setProtoOption(o, v)
}

func (pr *reqProto) getProtoOption(o api.Option) (any, error) {
	if o != api.OptResendTime {
		return nil, api.ErrNotSupported
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.resend, nil
}

// reqCtx is one request/reply conversation. At most one request is
// outstanding; sending a new one abandons the old, cancelling any
// parked receive.
type reqCtx struct {
	pr *reqProto
	c  *Ctx

	mu          sync.Mutex
	reqID       uint32
	reqMsg      *message.Message // retained for resend
	reply       *message.Message // arrived before anyone asked
	recvOp      *operation
	resend      time.Duration
	resendTimer *time.Timer
	closed      bool
}

func (c *reqCtx) bind(cc *Ctx) { c.c = cc }

func (c *reqCtx) send(op *operation) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrClosed
	}
	c.mu.Unlock()

	id := c.pr.allocID(c)
	if !op.fire(nil, nil) {
		// Lost to a concurrent cancel; the message went back to the
		// caller through the aio result.
		c.pr.dropID(id, c)
		return nil
	}
	m := op.msg
	m.HeaderAppendUint32(id)

	c.mu.Lock()
	oldID, oldMsg, oldReply := c.reqID, c.reqMsg, c.reply
	oldRecv := c.takeRecvLocked()
	c.stopTimerLocked()
	c.reqID, c.reqMsg, c.reply = id, m, nil
	c.armTimerLocked()
	c.mu.Unlock()

	c.pr.dropID(oldID, c)
	if oldMsg != nil {
		oldMsg.Free()
	}
	if oldReply != nil {
		oldReply.Free()
	}
	if oldRecv != nil {
		oldRecv.fire(nil, api.ErrCanceled)
	}

	c.transmit(id)
	return nil
}

func (c *reqCtx) recv(op *operation) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrClosed
	}
	if c.reply != nil {
		m := c.reply
		c.reply = nil
		c.mu.Unlock()
		if !op.fire(m, nil) {
			m.Free()
		}
		return nil
	}
	if c.reqID == 0 {
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

// deliver hands an inbound reply to this conversation. False means the
// identifier no longer matches and the caller keeps the message.
func (c *reqCtx) deliver(id uint32, m *message.Message) bool {
	c.mu.Lock()
	if c.closed || c.reqID != id {
		c.mu.Unlock()
		return false
	}
	c.reqID = 0
	c.stopTimerLocked()
	if c.reqMsg != nil {
		c.reqMsg.Free()
		c.reqMsg = nil
	}
	op := c.takeRecvLocked()
	if op != nil && op.fire(m, nil) {
		c.mu.Unlock()
		return true
	}
	c.reply = m
	c.mu.Unlock()
	c.pr.dropID(id, c)
	return true
}

func (c *reqCtx) takeRecvLocked() *operation {
	op := c.recvOp
	c.recvOp = nil
	if op != nil && op.done() {
		return nil
	}
	return op
}

func (c *reqCtx) stopTimerLocked() {
	if c.resendTimer != nil {
		c.resendTimer.Stop()
		c.resendTimer = nil
	}
}

func (c *reqCtx) armTimerLocked() {
	if c.resend <= 0 {
		return
	}
	id := c.reqID
	c.resendTimer = time.AfterFunc(c.resend, func() { c.retry(id) })
}

// transmit queues a copy of the outstanding request onto the balanced
// send queue. The retained original feeds retries.
func (c *reqCtx) transmit(id uint32) {
	c.mu.Lock()
	if c.closed || c.reqID != id || c.reqMsg == nil {
		c.mu.Unlock()
		return
	}
	wire := c.reqMsg.Dup()
	c.mu.Unlock()
	if !c.pr.s.sendQ.putMsg(wire) {
		// No room right now; the resend timer will try again.
		wire.Free()
	}
}

func (c *reqCtx) retry(id uint32) {
	c.mu.Lock()
	if c.closed || c.reqID != id {
		c.mu.Unlock()
		return
	}
	c.armTimerLocked()
	c.mu.Unlock()
	c.transmit(id)
}

func (c *reqCtx) setProtoOption(o api.Option, v any) error {
	if o != api.OptResendTime {
		return api.ErrNotSupported
	}
	d, ok := optDuration(v)
	if !ok || d < 0 {
		return api.ErrInvalidArg
	}
	c.mu.Lock()
	c.resend = d
	c.mu.Unlock()
	return nil
}

func (c *reqCtx) getProtoOption(o api.Option) (any, error) {
	if o != api.OptResendTime {
		return nil, api.ErrNotSupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resend, nil
}

func (c *reqCtx) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	id := c.reqID
	c.reqID = 0
	c.stopTimerLocked()
	reqMsg, reply := c.reqMsg, c.reply
	c.reqMsg, c.reply = nil, nil
	op := c.takeRecvLocked()
	c.mu.Unlock()

	c.pr.dropID(id, c)
	if reqMsg != nil {
		reqMsg.Free()
	}
	if reply != nil {
		reply.Free()
	}
	if op != nil {
		op.fire(nil, api.ErrClosed)
	}
}

// routedProto answers requests and surveys: inbound messages carry
// identifier chunks which move from body to header on receipt, and the
// reply retraces them to the pipe the request arrived on. Rep and
// respondent differ only in protocol number and peer.
type routedProto struct {
	s      *Socket
	defCtx *routedCtx
}

func newRepProto(s *Socket) protoCore {
	pr := &routedProto{s: s}
	pr.defCtx = &routedCtx{pr: pr}
	return pr
}

func newRespondentProto(s *Socket) protoCore {
	pr := &routedProto{s: s}
	pr.defCtx = &routedCtx{pr: pr}
	return pr
}

func (pr *routedProto) attach(p *pipe) bool { return true }
func (pr *routedProto) detach(p *pipe)      {}

func (pr *routedProto) send(op *operation) error { return pr.defCtx.send(op) }
func (pr *routedProto) recv(op *operation) error { return pr.defCtx.recv(op) }

// fromPipe relocates the identifier chunks from body to header, then
// queues the bare request. Malformed traffic is dropped.
func (pr *routedProto) fromPipe(p *pipe, m *message.Message) {
	if !liftRequestID(m, pr.s.hopLimit()) {
		m.Free()
		return
	}
	if !pr.s.recvQ.putMsgWait(m, p.stopped) {
		m.Free()
	}
}

func (pr *routedProto) wantsPipeQueue() bool { return true }

func (pr *routedProto) newCtx() (ctxCore, error) {
	return &routedCtx{pr: pr}, nil
}

func (pr *routedProto) close() {
	pr.defCtx.close()
}

// routedCtx is one responder conversation: receive a request, remember
// where it came from, send exactly one reply back there.
type routedCtx struct {
	pr *routedProto
	c  *Ctx

	mu     sync.Mutex
	btrace []byte
	pipeID uint32
	recvOp *operation
	closed bool
}

func (c *routedCtx) bind(cc *Ctx) { c.c = cc }

func (c *routedCtx) recv(op *operation) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrClosed
	}
	if c.recvOp != nil && !c.recvOp.done() {
		c.mu.Unlock()
		return api.ErrState
	}
	c.recvOp = op
	c.mu.Unlock()

	// On delivery, stash the return route and hide it from the caller.
	op.hook = func(m *message.Message) {
		c.mu.Lock()
		c.btrace = append(c.btrace[:0], m.Header()...)
		c.pipeID = m.Pipe()
		c.mu.Unlock()
		m.HeaderClear()
	}
	if err := c.pr.s.recvQ.get(op); err != nil {
		c.mu.Lock()
		if c.recvOp == op {
			c.recvOp = nil
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *routedCtx) send(op *operation) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrClosed
	}
	if len(c.btrace) == 0 {
		c.mu.Unlock()
		return api.ErrState
	}
	bt := append([]byte(nil), c.btrace...)
	pid := c.pipeID
	c.btrace = c.btrace[:0]
	c.mu.Unlock()

	if !op.fire(nil, nil) {
		return nil
	}
	wire := op.msg
	wire.HeaderClear()
	wire.HeaderAppend(bt)

	c.pr.s.mu.Lock()
	p := c.pr.s.pipes[pid]
	c.pr.s.mu.Unlock()
	// A requester that disconnected before its answer simply misses
	// it; the send itself still succeeded.
	if p == nil || p.sendQ == nil || !p.sendQ.putMsg(wire) {
		wire.Free()
	}
	return nil
}

func (c *routedCtx) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.btrace = nil
	op := c.recvOp
	c.recvOp = nil
	c.mu.Unlock()
	if op != nil {
		op.fire(nil, api.ErrClosed)
	}
}

// trimRequestID strips identifier chunks from the front of the body
// until the terminal one (high bit set), which it returns. maxHops
// bounds how many device traversal chunks are tolerated.
func trimRequestID(m *message.Message, maxHops int) (uint32, bool) {
	for i := 0; i <= maxHops; i++ {
		v, ok := m.TrimUint32()
		if !ok {
			return 0, false
		}
		if v&requestIDFlag != 0 {
			return v, true
		}
	}
	return 0, false
}

// liftRequestID moves identifier chunks from body to header up to and
// including the terminal one.
func liftRequestID(m *message.Message, maxHops int) bool {
	for i := 0; i <= maxHops; i++ {
		v, ok := m.TrimUint32()
		if !ok {
			return false
		}
		m.HeaderAppendUint32(v)
		if v&requestIDFlag != 0 {
			return true
		}
	}
	return false
}
