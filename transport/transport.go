// File: transport/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheme registry. Transport implementations register themselves from
// init; importing a transport package for side effects is how an
// application selects which schemes its binary carries.

package transport

import (
	"strings"
	"sync"

	"github.com/momentics/hioload-sp/api"
)

var (
	regMu   sync.RWMutex
	schemes = make(map[string]api.Transport)
)

// Register installs a transport for its scheme, replacing any prior
// registration.
func Register(t api.Transport) {
	regMu.Lock()
	schemes[t.Scheme()] = t
	regMu.Unlock()
}

// Lookup resolves the transport for an endpoint URL.
func Lookup(url string) (api.Transport, error) {
	scheme, _, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	regMu.RLock()
	t := schemes[scheme]
	regMu.RUnlock()
	if t == nil {
		return nil, api.ErrNotSupported
	}
	return t, nil
}

// ParseURL splits an endpoint URL into scheme and address. The address
// keeps everything past "://" verbatim; individual transports impose
// their own address syntax.
func ParseURL(url string) (scheme, addr string, err error) {
	i := strings.Index(url, "://")
	if i <= 0 || i+3 >= len(url) {
		return "", "", api.ErrAddrInvalid
	}
	return url[:i], url[i+3:], nil
}
