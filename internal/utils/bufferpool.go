// Package utils provides utility functions for the pixel store.
package utils

import "sync"

// scratchCapacity is the default capacity of pooled buffers: one 512x512
// uint16 plane.
const scratchCapacity = 512 * 512 * 2

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 0, scratchCapacity)
	},
}

// GetBuffer returns a scratch byte slice from the pool. Its contents are
// undefined; callers must overwrite all size bytes before reading them.
// Buffers handed to callers outside the package that owns them must be
// fresh allocations, never pooled ones.
func GetBuffer(size int) []byte {
	buf := bufferPool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

// ReleaseBuffer returns a buffer to the pool.
func ReleaseBuffer(buf []byte) {
	//nolint:staticcheck // SA6002: slice descriptor copy is acceptable for sync.Pool
	bufferPool.Put(buf[:0])
}
