// File: core/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket-scope option dispatch. Protocol-owned keys are forwarded to
// the protocol core; transport keys mutate the option snapshot that
// new dialers and listeners copy at creation time.

package core

import (
	"crypto/tls"
	"os"
	"time"

	"github.com/momentics/hioload-sp/api"
)

const maxQueueDepth = 8192

func optDuration(v any) (time.Duration, bool) {
	d, ok := v.(time.Duration)
	return d, ok
}

func optBytes(v any) ([]byte, bool) {
	switch t := v.(type) {
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	}
	return nil, false
}

// SetOption adjusts a socket-scoped option. Keys the socket's scope
// does not recognize fail with ErrNotSupported; out-of-range values
// fail with ErrInvalidArg. Buffer sizes apply to operations submitted
// after the call.
func (s *Socket) SetOption(o api.Option, v any) error {
	if s.isClosed() {
		return api.ErrClosed
	}
	switch o {
	case api.OptRecvTimeout, api.OptSendTimeout:
		d, ok := optDuration(v)
		if !ok || d < 0 {
			return api.ErrInvalidArg
		}
		s.mu.Lock()
		if o == api.OptRecvTimeout {
			s.opts.recvTimeout = d
		} else {
			s.opts.sendTimeout = d
		}
		s.mu.Unlock()
		return nil

	case api.OptRecvBufferSize, api.OptSendBufferSize:
		n, ok := v.(int)
		if !ok || n < 1 || n > maxQueueDepth {
			return api.ErrInvalidArg
		}
		s.mu.Lock()
		if o == api.OptRecvBufferSize {
			s.opts.recvBuf = n
		} else {
			s.opts.sendBuf = n
		}
		s.mu.Unlock()
		if o == api.OptRecvBufferSize {
			s.recvQ.setCap(n)
		} else {
			s.sendQ.setCap(n)
		}
		return nil

	case api.OptReconnectMinTime:
		d, ok := optDuration(v)
		if !ok || d <= 0 {
			return api.ErrInvalidArg
		}
		s.mu.Lock()
		s.opts.reconnMin = d
		s.mu.Unlock()
		return nil

	case api.OptReconnectMaxTime:
		d, ok := optDuration(v)
		if !ok || d < 0 {
			return api.ErrInvalidArg
		}
		s.mu.Lock()
		s.opts.reconnMax = d
		s.mu.Unlock()
		return nil

	case api.OptMaxRecvSize:
		var n int64
		switch t := v.(type) {
		case int64:
			n = t
		case int:
			n = int64(t)
		default:
			return api.ErrInvalidArg
		}
		if n < 0 {
			return api.ErrInvalidArg
		}
		s.mu.Lock()
		s.opts.transport.MaxRecvSize = n
		s.mu.Unlock()
		return nil

	case api.OptMaxTTL:
		n, ok := v.(int)
		if !ok || n < 1 || n > 255 {
			return api.ErrInvalidArg
		}
		s.mu.Lock()
		s.opts.maxTTL = n
		s.mu.Unlock()
		return nil

	case api.OptTLSConfig:
		cfg, ok := v.(*tls.Config)
		if !ok {
			return api.ErrInvalidArg
		}
		s.mu.Lock()
		s.opts.transport.TLS = cfg
		s.mu.Unlock()
		return nil

	case api.OptIpcPermissions:
		var mode os.FileMode
		switch t := v.(type) {
		case os.FileMode:
			mode = t
		case uint32:
			mode = os.FileMode(t)
		default:
			return api.ErrInvalidArg
		}
		if mode&^os.FileMode(0o777) != 0 {
			return api.ErrInvalidArg
		}
		s.mu.Lock()
		s.opts.transport.IpcPerms = mode
		s.mu.Unlock()
		return nil

	case api.OptTCPNoDelay, api.OptTCPKeepAlive:
		b, ok := v.(bool)
		if !ok {
			return api.ErrInvalidArg
		}
		s.mu.Lock()
		if o == api.OptTCPNoDelay {
			s.opts.transport.NoDelay = b
		} else {
			s.opts.transport.KeepAlive = b
		}
		s.mu.Unlock()
		return nil

	case api.OptSubscribe, api.OptUnsubscribe, api.OptResendTime, api.OptSurveyTime:
		if po, ok := s.proto.(protoOptions); ok {
			return po.setProtoOption(o, v)
		}
		return api.ErrNotSupported

	default:
		return api.ErrNotSupported
	}
}

// GetOption reads a socket-scoped option.
func (s *Socket) GetOption(o api.Option) (any, error) {
	if s.isClosed() {
		return nil, api.ErrClosed
	}
	s.mu.Lock()
	opts := s.opts
	s.mu.Unlock()
	switch o {
	case api.OptRecvTimeout:
		return opts.recvTimeout, nil
	case api.OptSendTimeout:
		return opts.sendTimeout, nil
	case api.OptRecvBufferSize:
		return opts.recvBuf, nil
	case api.OptSendBufferSize:
		return opts.sendBuf, nil
	case api.OptReconnectMinTime:
		return opts.reconnMin, nil
	case api.OptReconnectMaxTime:
		return opts.reconnMax, nil
	case api.OptMaxRecvSize:
		return opts.transport.MaxRecvSize, nil
	case api.OptMaxTTL:
		return opts.maxTTL, nil
	case api.OptTLSConfig:
		return opts.transport.TLS, nil
	case api.OptIpcPermissions:
		return opts.transport.IpcPerms, nil
	case api.OptTCPNoDelay:
		return opts.transport.NoDelay, nil
	case api.OptTCPKeepAlive:
		return opts.transport.KeepAlive, nil
	case api.OptResendTime, api.OptSurveyTime:
		if po, ok := s.proto.(protoOptions); ok {
			return po.getProtoOption(o)
		}
		return nil, api.ErrNotSupported
	default:
		return nil, api.ErrNotSupported
	}
}
