package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer_Write(t *testing.T) {
	bb := NewByteBuffer(16)
	require.Equal(t, 0, bb.Len())

	bb.MustWrite([]byte{0x01, 0x02})
	require.NoError(t, bb.WriteByte(0x03))
	require.Equal(t, 3, bb.Len())
	require.Equal(t, []byte{0x01, 0x02, 0x03}, bb.Bytes())
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("payload"))

	capBefore := bb.Cap()
	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.Equal(t, capBefore, bb.Cap())
}

func TestByteBuffer_Grow(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.MustWrite([]byte{0xAA})

	bb.Grow(1024)
	require.GreaterOrEqual(t, bb.Cap()-bb.Len(), 1024)
	require.Equal(t, []byte{0xAA}, bb.Bytes())

	// Growing within existing capacity is a no-op.
	capBefore := bb.Cap()
	bb.Grow(1)
	require.Equal(t, capBefore, bb.Cap())
}

func TestFrameBufferPool_RoundTrip(t *testing.T) {
	buf := GetFrameBuffer()
	require.NotNil(t, buf)
	require.Equal(t, 0, buf.Len())

	buf.MustWrite([]byte("chunk"))
	PutFrameBuffer(buf)

	again := GetFrameBuffer()
	require.Equal(t, 0, again.Len())
	PutFrameBuffer(again)
}

func TestFrameBufferPool_DropsOversized(t *testing.T) {
	big := NewByteBuffer(FrameBufferMaxThreshold + 1)
	// Must not panic; oversized buffers are simply not pooled.
	PutFrameBuffer(big)
	PutFrameBuffer(nil)
}
