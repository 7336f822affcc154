// File: transport/transport_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"testing"

	"github.com/momentics/hioload-sp/api"
)

func TestParseURL(t *testing.T) {
	cases := []struct {
		url    string
		scheme string
		addr   string
		err    error
	}{
		{"tcp://127.0.0.1:5555", "tcp", "127.0.0.1:5555", nil},
		{"inproc://a", "inproc", "a", nil},
		{"ipc:///tmp/sp.sock", "ipc", "/tmp/sp.sock", nil},
		{"tls+tcp://host:80", "tls+tcp", "host:80", nil},
		{"ws://host:80/path", "ws", "host:80/path", nil},
		{"tcp://", "", "", api.ErrAddrInvalid},
		{"://addr", "", "", api.ErrAddrInvalid},
		{"no-scheme", "", "", api.ErrAddrInvalid},
		{"", "", "", api.ErrAddrInvalid},
	}
	for _, c := range cases {
		scheme, addr, err := ParseURL(c.url)
		if err != c.err {
			t.Fatalf("ParseURL(%q) err = %v, want %v", c.url, err, c.err)
		}
		if scheme != c.scheme || addr != c.addr {
			t.Fatalf("ParseURL(%q) = %q, %q", c.url, scheme, addr)
		}
	}
}

func TestLookupUnknownScheme(t *testing.T) {
	if _, err := Lookup("carrier-pigeon://coop"); err != api.ErrNotSupported {
		t.Fatalf("lookup = %v", err)
	}
	if _, err := Lookup("not a url"); err != api.ErrAddrInvalid {
		t.Fatalf("lookup = %v", err)
	}
}

type fakeTransport struct{ scheme string }

func (f *fakeTransport) Scheme() string { return f.scheme }
func (f *fakeTransport) NewDialer(addr string, proto api.Protocol, opts *api.TransportOptions) (api.TransportDialer, error) {
	return nil, api.ErrNotSupported
}
func (f *fakeTransport) NewListener(addr string, proto api.Protocol, opts *api.TransportOptions) (api.TransportListener, error) {
	return nil, api.ErrNotSupported
}

func TestRegisterAndLookup(t *testing.T) {
	ft := &fakeTransport{scheme: "testscheme"}
	Register(ft)
	got, err := Lookup("testscheme://anything")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != api.Transport(ft) {
		t.Fatal("lookup returned a different transport")
	}
}
