// File: api/proto.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SP protocol identifiers. The numeric values are the wire protocol
// numbers exchanged during the transport handshake, (major << 4) | minor.

package api

// Protocol identifies one SP protocol.
type Protocol uint16

const (
	Pair0       Protocol = 0x10
	Pub0        Protocol = 0x20
	Sub0        Protocol = 0x21
	Req0        Protocol = 0x30
	Rep0        Protocol = 0x31
	Push0       Protocol = 0x50
	Pull0       Protocol = 0x51
	Surveyor0   Protocol = 0x62
	Respondent0 Protocol = 0x63
	Bus0        Protocol = 0x70
)

func (p Protocol) String() string {
	switch p {
	case Pair0:
		return "pair"
	case Pub0:
		return "pub"
	case Sub0:
		return "sub"
	case Req0:
		return "req"
	case Rep0:
		return "rep"
	case Push0:
		return "push"
	case Pull0:
		return "pull"
	case Surveyor0:
		return "surveyor"
	case Respondent0:
		return "respondent"
	case Bus0:
		return "bus"
	default:
		return "unknown"
	}
}

// Peer returns the protocol this protocol connects to. Symmetric
// protocols peer with themselves.
func (p Protocol) Peer() Protocol {
	switch p {
	case Pub0:
		return Sub0
	case Sub0:
		return Pub0
	case Req0:
		return Rep0
	case Rep0:
		return Req0
	case Push0:
		return Pull0
	case Pull0:
		return Push0
	case Surveyor0:
		return Respondent0
	case Respondent0:
		return Surveyor0
	default:
		return p
	}
}

// Valid reports whether p is a known protocol number.
func (p Protocol) Valid() bool {
	switch p {
	case Pair0, Pub0, Sub0, Req0, Rep0, Push0, Pull0, Surveyor0, Respondent0, Bus0:
		return true
	}
	return false
}
