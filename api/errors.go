// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed error taxonomy for the library. Every fallible operation
// terminates with exactly one value from this enumeration; there are no
// partial or ambiguous error states. Out-of-memory is deliberately
// absent: message buffer growth treats allocation failure as fatal.

package api

import "fmt"

// Errno is the library's error kind. It implements error directly so
// that callers can compare with errors.Is against the exported
// constants without unwrapping.
type Errno int

const (
	// ErrInterrupted reports an operation cut short by shutdown.
	ErrInterrupted Errno = iota + 1

	// ErrInvalidArg reports a malformed argument or option value.
	ErrInvalidArg

	// ErrBusy reports a resource already occupied by another operation.
	ErrBusy

	// ErrTimedOut reports an expired send/recv deadline.
	ErrTimedOut

	// ErrConnRefused reports a peer that rejected the connection.
	ErrConnRefused

	// ErrClosed reports a handle that is closed or was never opened.
	ErrClosed

	// ErrTryAgain reports an operation that would block or a submit on
	// a busy aio.
	ErrTryAgain

	// ErrNotSupported reports an operation or option the target does
	// not implement.
	ErrNotSupported

	// ErrAddrInUse reports a listen address already bound.
	ErrAddrInUse

	// ErrState reports an operation invalid in the current protocol
	// state, such as a reply with no outstanding request.
	ErrState

	// ErrProto reports a peer that violated the SP wire protocol.
	ErrProto

	// ErrAddrInvalid reports an unparseable or unknown transport URL.
	ErrAddrInvalid

	// ErrMsgSize reports an inbound message above the receive limit.
	ErrMsgSize

	// ErrConnAborted reports a connection attempt aborted locally.
	ErrConnAborted

	// ErrConnReset reports a connection dropped by the peer.
	ErrConnReset

	// ErrCanceled reports an operation terminated by Cancel. It is a
	// requested outcome, not a failure of the system.
	ErrCanceled

	// ErrInternal reports a driver invariant violation.
	ErrInternal
)

// Error implements the error interface.
func (e Errno) Error() string {
	switch e {
	case ErrInterrupted:
		return "interrupted"
	case ErrInvalidArg:
		return "invalid argument"
	case ErrBusy:
		return "resource busy"
	case ErrTimedOut:
		return "timed out"
	case ErrConnRefused:
		return "connection refused"
	case ErrClosed:
		return "object closed"
	case ErrTryAgain:
		return "try again"
	case ErrNotSupported:
		return "not supported"
	case ErrAddrInUse:
		return "address in use"
	case ErrState:
		return "incorrect state"
	case ErrProto:
		return "protocol error"
	case ErrAddrInvalid:
		return "address invalid"
	case ErrMsgSize:
		return "message too large"
	case ErrConnAborted:
		return "connection aborted"
	case ErrConnReset:
		return "connection reset"
	case ErrCanceled:
		return "operation canceled"
	case ErrInternal:
		return "internal error"
	default:
		return fmt.Sprintf("unknown error #%d", int(e))
	}
}
