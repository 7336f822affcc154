// File: transport/ipc/ipc_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build !unix

package ipc

import (
	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/transport"
)

func init() {
	transport.Register(&ipcTran{})
}

type ipcTran struct{}

func (*ipcTran) Scheme() string { return "ipc" }

func (*ipcTran) NewDialer(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportDialer, error) {
	return nil, api.ErrNotSupported
}

func (*ipcTran) NewListener(url string, proto api.Protocol, opts *api.TransportOptions) (api.TransportListener, error) {
	return nil, api.ErrNotSupported
}
