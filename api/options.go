// File: api/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed option keys. Each key is recognized by a fixed set of scopes
// (socket, context, dialer, listener, pipe); getting or setting a key
// on a scope that does not recognize it fails with ErrNotSupported,
// and an out-of-range value fails with ErrInvalidArg.

package api

// Option names a configuration key.
type Option string

const (
	// OptRecvTimeout bounds a blocking or asynchronous receive.
	// Value: time.Duration, <= 0 means no limit. Scope: socket, context.
	OptRecvTimeout Option = "recv-timeout"

	// OptSendTimeout bounds a blocking or asynchronous send.
	// Value: time.Duration. Scope: socket, context.
	OptSendTimeout Option = "send-timeout"

	// OptRecvBufferSize is the receive queue depth in messages.
	// Value: int in [1, 8192]. Scope: socket.
	OptRecvBufferSize Option = "recv-buffer"

	// OptSendBufferSize is the send queue depth in messages.
	// Value: int in [1, 8192]. Scope: socket.
	OptSendBufferSize Option = "send-buffer"

	// OptReconnectMinTime is the initial redial backoff.
	// Value: time.Duration > 0. Scope: socket, dialer.
	OptReconnectMinTime Option = "reconnect-min-time"

	// OptReconnectMaxTime caps the redial backoff.
	// Value: time.Duration, 0 means same as minimum. Scope: socket, dialer.
	OptReconnectMaxTime Option = "reconnect-max-time"

	// OptMaxRecvSize caps inbound message size in bytes.
	// Value: int64, 0 means unlimited. Scope: socket, dialer, listener.
	OptMaxRecvSize Option = "max-recv-size"

	// OptMaxTTL caps device traversals for hop-counted protocols.
	// Value: int in [1, 255]. Scope: socket.
	OptMaxTTL Option = "max-ttl"

	// OptSubscribe adds a topic prefix on a sub socket.
	// Value: []byte or string. Scope: socket (sub only).
	OptSubscribe Option = "subscribe"

	// OptUnsubscribe removes a previously added prefix.
	// Value: []byte or string. Scope: socket (sub only).
	OptUnsubscribe Option = "unsubscribe"

	// OptResendTime is the request retry interval on req sockets.
	// Value: time.Duration, 0 disables resend. Scope: socket, context.
	OptResendTime Option = "resend-time"

	// OptSurveyTime bounds the response window on surveyor sockets.
	// Value: time.Duration. Scope: socket, context.
	OptSurveyTime Option = "survey-time"

	// OptTLSConfig supplies certificate and identity material.
	// Value: *tls.Config. Scope: socket, dialer, listener.
	OptTLSConfig Option = "tls-config"

	// OptIpcPermissions is the ipc socket file mode.
	// Value: uint32 or os.FileMode. Scope: socket, listener.
	OptIpcPermissions Option = "ipc-permissions"

	// OptTCPNoDelay disables Nagle batching on tcp pipes.
	// Value: bool, default true. Scope: socket, dialer, listener.
	OptTCPNoDelay Option = "tcp-nodelay"

	// OptTCPKeepAlive enables tcp keepalive probes.
	// Value: bool, default false. Scope: socket, dialer, listener.
	OptTCPKeepAlive Option = "tcp-keepalive"

	// OptLocalAddr is the bound local address. Read-only.
	// Value: string. Scope: listener, pipe.
	OptLocalAddr Option = "local-address"

	// OptRemoteAddr is the peer address. Read-only.
	// Value: string. Scope: pipe.
	OptRemoteAddr Option = "remote-address"
)

// Flags modify dial, listen, send and recv calls.
type Flags int

const (
	// FlagNonblock makes a synchronous send or recv fail with
	// ErrTryAgain instead of waiting.
	FlagNonblock Flags = 1 << iota

	// FlagSynch makes Dial report the first connection attempt's
	// result synchronously instead of retrying in the background.
	FlagSynch
)
