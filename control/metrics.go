// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime counters for the SP engine: open sockets, live pipes, relayed
// messages, completed operations. Thread-safe map with dynamic keys.

package control

import (
	"sync"
	"time"
)

// Registry holds mutable runtime counters.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]int64
	updated time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]int64),
	}
}

// Add increments a counter by delta, creating it on first use.
func (r *Registry) Add(key string, delta int64) {
	r.mu.Lock()
	r.metrics[key] += delta
	r.updated = time.Now()
	r.mu.Unlock()
}

// Set overwrites a counter.
func (r *Registry) Set(key string, value int64) {
	r.mu.Lock()
	r.metrics[key] = value
	r.updated = time.Now()
	r.mu.Unlock()
}

// Get returns one counter's current value.
func (r *Registry) Get(key string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[key]
}

// Snapshot returns a copy of all counters.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.metrics))
	for k, v := range r.metrics {
		out[k] = v
	}
	return out
}

// Updated returns the time of the last mutation.
func (r *Registry) Updated() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updated
}
