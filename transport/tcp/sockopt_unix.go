// File: transport/tcp/sockopt_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build unix

package tcp

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// listenControl sets SO_REUSEADDR before bind so a listener restarted
// onto a TIME_WAIT address does not fail with ErrAddrInUse.
func listenControl(network, address string, rc syscall.RawConn) error {
	var serr error
	err := rc.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return serr
}
