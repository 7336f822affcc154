// File: transport/tcp/sockopt_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build !unix

package tcp

import "syscall"

func listenControl(network, address string, rc syscall.RawConn) error {
	return nil
}
