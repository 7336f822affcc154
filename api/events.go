// File: api/events.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// PipeEvent describes a connection lifecycle transition delivered to a
// registered pipe observer. Events for one pipe arrive in causal order;
// no ordering holds across different pipes.
type PipeEvent int

const (
	// PipeAdded fires after a pipe is attached to its socket and
	// before any message flows on it.
	PipeAdded PipeEvent = iota

	// PipeRemoved fires after a pipe is detached, whether by local
	// close or peer disconnect.
	PipeRemoved

	// PipeConnectError fires when a dial attempt fails; the pipe
	// handle carries only the dialer back-reference.
	PipeConnectError
)

func (e PipeEvent) String() string {
	switch e {
	case PipeAdded:
		return "added"
	case PipeRemoved:
		return "removed"
	case PipeConnectError:
		return "connect-error"
	default:
		return "unknown"
	}
}
