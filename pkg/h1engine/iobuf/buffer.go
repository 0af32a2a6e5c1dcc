// Package iobuf implements the growable byte buffer the reader and writer
// state machines accumulate bytes into: O(1) append, and in-place block
// removal that never reallocates downward (removing a prefix shrinks the
// buffer's length, never its backing capacity).
package iobuf

import "github.com/valyala/bytebufferpool"

// defaultPool is shared across every Buffer that doesn't request its own,
// mirroring the teacher's size-classed buffer_pool.go: one shared pool
// backs the recv/staging buffers of every reader and writer in the process.
var defaultPool bytebufferpool.Pool

// Buffer is a growable byte slice with in-place compaction. The zero value
// is not usable; construct with New.
type Buffer struct {
	pool *bytebufferpool.Pool
	bb   *bytebufferpool.ByteBuffer
}

// New returns a Buffer backed by the package-wide shared pool.
func New() *Buffer {
	return &Buffer{pool: &defaultPool, bb: defaultPool.Get()}
}

// NewWithPool returns a Buffer backed by a caller-supplied pool, for callers
// that want an isolated pool instead of the shared default.
func NewWithPool(pool *bytebufferpool.Pool) *Buffer {
	return &Buffer{pool: pool, bb: pool.Get()}
}

// Append adds p to the end of the buffer, growing the backing array if
// needed. Amortized O(1).
func (b *Buffer) Append(p []byte) {
	b.bb.B = append(b.bb.B, p...)
}

// Bytes returns the buffer's current contents. The returned slice is only
// valid until the next call to Append, RemoveBlock, or Reset.
func (b *Buffer) Bytes() []byte {
	return b.bb.B
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int {
	return len(b.bb.B)
}

// RemoveBlock deletes the length bytes starting at offset by shifting the
// remainder down over them (memmove-style compaction) and shrinking the
// length. Capacity is never reduced, so repeated append/remove cycles on a
// long-lived buffer settle into a steady-state allocation.
func (b *Buffer) RemoveBlock(offset, length int) {
	if length <= 0 {
		return
	}
	data := b.bb.B
	copy(data[offset:], data[offset+length:])
	b.bb.B = data[:len(data)-length]
}

// Reset empties the buffer without releasing its backing array.
func (b *Buffer) Reset() {
	b.bb.Reset()
}

// Release returns the backing array to its pool for reuse by a future
// Buffer. Callers must not use b after calling Release.
//
// It must only be called when no SystemOwned view into the buffer has
// escaped a callback that could still be holding a reference to it — see
// the reader's callback_issued discipline, which decides whether Release is
// safe to call at teardown.
func (b *Buffer) Release() {
	b.pool.Put(b.bb)
	b.bb = nil
}
