// File: core/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide handle registry. Each object kind (socket, context,
// dialer, listener, pipe) gets its own table mapping positive 31-bit
// identifiers to live objects. An identifier is never handed out again
// while its object is registered, so a stale handle can never alias a
// different live object.

package core

import "sync"

type registry struct {
	mu   sync.Mutex
	next uint32
	objs map[uint32]any
}

func newRegistry() *registry {
	return &registry{objs: make(map[uint32]any)}
}

// register stores obj and returns a fresh positive id. Ids increment
// and wrap at 2^31-1, skipping any id still in use.
func (r *registry) register(obj any) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		r.next++
		if r.next == 0 || r.next > 0x7fffffff {
			r.next = 1
		}
		if _, busy := r.objs[r.next]; !busy {
			r.objs[r.next] = obj
			return r.next
		}
	}
}

func (r *registry) lookup(id uint32) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objs[id]
	return obj, ok
}

func (r *registry) remove(id uint32) {
	r.mu.Lock()
	delete(r.objs, id)
	r.mu.Unlock()
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objs)
}
