// File: sp/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package sp is the public surface of the scalability-protocols
// driver: socket handles over the pair, pub/sub, push/pull, req/rep,
// surveyor/respondent and bus protocols, reachable over the inproc,
// ipc, tcp, tls+tcp and websocket transports.
//
// Handles are plain values sharing driver-owned cores: copying a
// Socket yields another handle on the same endpoint, and closing
// either copy closes both. Dropping a handle without Close leaks the
// endpoint until process exit; there are no finalizers.
//
// Send and Recv block; SendAio and RecvAio complete through an Aio
// callback on a driver-owned worker. One Aio carries at most one
// operation at a time.
package sp

import (
	_ "github.com/momentics/hioload-sp/transport/inproc"
	_ "github.com/momentics/hioload-sp/transport/ipc"
	_ "github.com/momentics/hioload-sp/transport/tcp"
	_ "github.com/momentics/hioload-sp/transport/tlstcp"
	_ "github.com/momentics/hioload-sp/transport/ws"
)
