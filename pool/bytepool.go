// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// BytePool recycles fixed-capacity byte slices.
type BytePool struct {
	size int
	pool sync.Pool
}

// NewBytePool creates a pool of buffers with the given capacity.
func NewBytePool(size int) *BytePool {
	bp := &BytePool{size: size}
	bp.pool.New = func() any { return make([]byte, 0, size) }
	return bp
}

// GetBuffer returns a zero-length buffer with the pool's capacity.
func (b *BytePool) GetBuffer() []byte {
	return b.pool.Get().([]byte)[:0]
}

// PutBuffer returns a buffer to the pool. Buffers that were regrown
// beyond the pool's capacity are left to the GC.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	b.pool.Put(buf[:0]) //nolint:staticcheck
}

// sizeClasses are the capacities served by the shared Grab/Recycle pair.
var sizeClasses = []int{1 << 10, 8 << 10, 64 << 10}

var classPools = func() []*BytePool {
	ps := make([]*BytePool, len(sizeClasses))
	for i, sz := range sizeClasses {
		ps[i] = NewBytePool(sz)
	}
	return ps
}()

// Grab returns a zero-length buffer with capacity at least n, pooled
// when n fits a size class.
func Grab(n int) []byte {
	for i, sz := range sizeClasses {
		if n <= sz {
			return classPools[i].GetBuffer()
		}
	}
	return make([]byte, 0, n)
}

// Recycle returns a buffer obtained from Grab.
func Recycle(buf []byte) {
	for i, sz := range sizeClasses {
		if cap(buf) == sz {
			classPools[i].PutBuffer(buf)
			return
		}
	}
}
