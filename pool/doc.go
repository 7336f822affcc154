// Package pool
// Author: momentics <momentics@gmail.com>
//
// Buffer and object pooling for hioload-sp. Size-classed byte pools
// back message bodies and transport framing scratch; the generic
// SyncPool recycles arbitrary objects. See bytepool.go and objpool.go.
package pool
