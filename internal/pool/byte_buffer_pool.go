package pool

import (
	"sync"
)

const (
	// FrameBufferDefaultSize is the default capacity of a buffer obtained
	// from the frame pool. Most encoded frames fit well under this.
	FrameBufferDefaultSize = 1024 * 4 // 4KiB
	// FrameBufferMaxThreshold is the capacity above which buffers are not
	// returned to the pool, so oversized one-off frames don't pin memory.
	FrameBufferMaxThreshold = 1024 * 256 // 256KiB
)

// ByteBuffer is a minimal append-oriented byte buffer with an amortized
// growth strategy, pooled across frame and stream encode calls.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified initial capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite appends data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// WriteByte appends a single byte to the buffer.
func (bb *ByteBuffer) WriteByte(c byte) error {
	bb.B = append(bb.B, c)
	return nil
}

// Grow ensures the buffer can hold requiredBytes more bytes without
// reallocating. If the buffer already has sufficient capacity, Grow does
// nothing.
//
// Small buffers grow by FrameBufferDefaultSize to minimize reallocations;
// larger buffers grow by 25% of current capacity to balance memory usage
// against reallocation cost.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	curLen := len(bb.B)
	if cap(bb.B)-curLen >= requiredBytes {
		return
	}

	growth := FrameBufferDefaultSize
	if cap(bb.B) >= 32*1024 {
		growth = cap(bb.B) / 4
	}
	if growth < requiredBytes {
		growth = requiredBytes
	}

	newBuf := make([]byte, curLen, cap(bb.B)+growth)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

var frameBufferPool = sync.Pool{
	New: func() any {
		return NewByteBuffer(FrameBufferDefaultSize)
	},
}

// GetFrameBuffer obtains a reset ByteBuffer from the pool.
func GetFrameBuffer() *ByteBuffer {
	buf, _ := frameBufferPool.Get().(*ByteBuffer)
	buf.Reset()

	return buf
}

// PutFrameBuffer returns a ByteBuffer to the pool. Buffers that grew past
// FrameBufferMaxThreshold are dropped instead of pooled.
func PutFrameBuffer(buf *ByteBuffer) {
	if buf == nil || buf.Cap() > FrameBufferMaxThreshold {
		return
	}
	frameBufferPool.Put(buf)
}
