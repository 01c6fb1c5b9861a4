package stream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
	"github.com/lnmplang/lnmp/internal/hash"
)

func mustStreamEncoder(t *testing.T, opts ...EncoderOption) *Encoder {
	t.Helper()
	enc, err := NewEncoder(opts...)
	require.NoError(t, err)

	return enc
}

func mustStreamDecoder(t *testing.T, opts ...DecoderOption) *Decoder {
	t.Helper()
	dec, err := NewDecoder(opts...)
	require.NoError(t, err)

	return dec
}

// pump runs a full payload through an encoder/decoder pair in chunkSize
// pieces and returns the reassembled bytes.
func pump(t *testing.T, enc *Encoder, dec *Decoder, payload []byte, chunkSize int) []byte {
	t.Helper()

	frame, err := enc.BeginStream()
	require.NoError(t, err)
	ev, err := dec.FeedFrame(frame)
	require.NoError(t, err)
	require.Equal(t, EventStreamStarted, ev.Type)

	for off := 0; off < len(payload); off += chunkSize {
		end := off + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		frame, err = enc.WriteChunk(payload[off:end])
		require.NoError(t, err)
		ev, err = dec.FeedFrame(frame)
		require.NoError(t, err)
		require.Equal(t, EventChunkReceived, ev.Type)
		require.Equal(t, end-off, ev.Bytes)
	}

	frame, err = enc.EndStream()
	require.NoError(t, err)
	ev, err = dec.FeedFrame(frame)
	require.NoError(t, err)
	require.Equal(t, EventStreamComplete, ev.Type)
	require.Equal(t, len(payload), ev.TotalBytes)

	return dec.CompletePayload()
}

func testPayload(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i * 31 / 7)
	}

	return data
}

func TestStreamRoundTrip(t *testing.T) {
	payload := testPayload(10000)

	enc := mustStreamEncoder(t, WithChecksums(true), WithStreamID(42))
	dec := mustStreamDecoder(t)

	got := pump(t, enc, dec, payload, 1024)
	require.True(t, bytes.Equal(payload, got))
	require.Equal(t, StateComplete, dec.State())
	require.Equal(t, uint32(42), dec.StreamID())
}

func TestStreamCompressedRoundTrip(t *testing.T) {
	payload := testPayload(32 * 1024)

	for _, compression := range []format.CompressionType{
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(compression.String(), func(t *testing.T) {
			enc := mustStreamEncoder(t, WithChecksums(true), WithCompression(compression))
			dec := mustStreamDecoder(t, WithDecoderCompression(compression))

			got := pump(t, enc, dec, payload, DefaultChunkSize)
			require.True(t, bytes.Equal(payload, got))
		})
	}
}

func TestChecksumTamperDetection(t *testing.T) {
	enc := mustStreamEncoder(t, WithChecksums(true))
	dec := mustStreamDecoder(t)

	begin, err := enc.BeginStream()
	require.NoError(t, err)
	_, err = dec.FeedFrame(begin)
	require.NoError(t, err)

	chunk, err := enc.WriteChunk([]byte("integrity matters"))
	require.NoError(t, err)

	// flip one payload byte, leaving the stored checksum stale
	chunk[10] ^= 0xFF
	_, err = dec.FeedFrame(chunk)
	require.ErrorIs(t, err, errs.ErrChecksumMismatch)
	require.ErrorIs(t, err, errs.ErrStreaming)
	require.Equal(t, StateFailed, dec.State())
	require.Nil(t, dec.CompletePayload())

	// the stream stays failed for subsequent frames
	endFrame, err := enc.EndStream()
	require.NoError(t, err)
	_, err = dec.FeedFrame(endFrame)
	require.ErrorIs(t, err, errs.ErrStreamErrored)
}

func TestCompletePayloadOnlyWhenComplete(t *testing.T) {
	enc := mustStreamEncoder(t)
	dec := mustStreamDecoder(t)

	require.Nil(t, dec.CompletePayload())

	begin, _ := enc.BeginStream()
	_, err := dec.FeedFrame(begin)
	require.NoError(t, err)
	require.Nil(t, dec.CompletePayload())

	chunk, _ := enc.WriteChunk([]byte("partial"))
	_, err = dec.FeedFrame(chunk)
	require.NoError(t, err)
	require.Nil(t, dec.CompletePayload())

	end, _ := enc.EndStream()
	_, err = dec.FeedFrame(end)
	require.NoError(t, err)
	require.Equal(t, []byte("partial"), dec.CompletePayload())
}

func TestEncoderStateMachine(t *testing.T) {
	enc := mustStreamEncoder(t)
	require.Equal(t, StateIdle, enc.State())

	_, err := enc.WriteChunk([]byte("x"))
	require.ErrorIs(t, err, errs.ErrStreamNotStarted)
	_, err = enc.EndStream()
	require.ErrorIs(t, err, errs.ErrStreamNotStarted)

	_, err = enc.BeginStream()
	require.NoError(t, err)
	require.Equal(t, StateStarted, enc.State())

	_, err = enc.BeginStream()
	require.ErrorIs(t, err, errs.ErrUnexpectedFrame)

	_, err = enc.WriteChunk([]byte("x"))
	require.NoError(t, err)
	require.Equal(t, StateStreaming, enc.State())

	_, err = enc.EndStream()
	require.NoError(t, err)
	require.Equal(t, StateEnded, enc.State())

	_, err = enc.WriteChunk([]byte("x"))
	require.ErrorIs(t, err, errs.ErrStreamComplete)

	// a finished encoder can start a fresh stream
	_, err = enc.BeginStream()
	require.NoError(t, err)
	require.Equal(t, StateStarted, enc.State())
}

func TestEncoderErrorFrame(t *testing.T) {
	enc := mustStreamEncoder(t)
	dec := mustStreamDecoder(t)

	begin, _ := enc.BeginStream()
	_, err := dec.FeedFrame(begin)
	require.NoError(t, err)

	errFrame, err := enc.ErrorFrame("upstream gave up")
	require.NoError(t, err)
	require.Equal(t, StateErrored, enc.State())

	ev, err := dec.FeedFrame(errFrame)
	require.NoError(t, err)
	require.Equal(t, EventStreamError, ev.Type)
	require.Equal(t, "upstream gave up", ev.Message)
	require.Equal(t, StateFailed, dec.State())
	require.Equal(t, "upstream gave up", dec.ErrorMessage())
	require.Nil(t, dec.CompletePayload())

	_, err = enc.WriteChunk([]byte("x"))
	require.ErrorIs(t, err, errs.ErrStreamErrored)
}

func TestChunkSizeCap(t *testing.T) {
	enc := mustStreamEncoder(t, WithChunkSize(8))
	_, err := enc.BeginStream()
	require.NoError(t, err)

	_, err = enc.WriteChunk(make([]byte, 9))
	require.ErrorIs(t, err, errs.ErrChunkSizeExceeded)

	_, err = enc.WriteChunk(make([]byte, 8))
	require.NoError(t, err)
}

func TestDecoderRejectsOutOfOrderFrames(t *testing.T) {
	enc := mustStreamEncoder(t)
	dec := mustStreamDecoder(t)

	begin, _ := enc.BeginStream()
	_, err := dec.FeedFrame(begin)
	require.NoError(t, err)

	first, _ := enc.WriteChunk([]byte("one"))
	second, _ := enc.WriteChunk([]byte("two"))

	_, err = dec.FeedFrame(second)
	require.ErrorIs(t, err, errs.ErrOutOfOrderFrame)
	require.Equal(t, StateFailed, dec.State())

	_, err = dec.FeedFrame(first)
	require.ErrorIs(t, err, errs.ErrStreamErrored)
}

func TestDecoderRejectsChunkBeforeBegin(t *testing.T) {
	enc := mustStreamEncoder(t)
	_, err := enc.BeginStream()
	require.NoError(t, err)
	chunk, err := enc.WriteChunk([]byte("early"))
	require.NoError(t, err)

	dec := mustStreamDecoder(t)
	_, err = dec.FeedFrame(chunk)
	require.ErrorIs(t, err, errs.ErrStreamNotStarted)
}

func TestDecoderRejectsForeignStreamID(t *testing.T) {
	encA := mustStreamEncoder(t, WithStreamID(1))
	encB := mustStreamEncoder(t, WithStreamID(2))
	dec := mustStreamDecoder(t)

	begin, _ := encA.BeginStream()
	_, err := dec.FeedFrame(begin)
	require.NoError(t, err)

	_, err = encB.BeginStream()
	require.NoError(t, err)
	chunk, err := encB.WriteChunk([]byte("intruder"))
	require.NoError(t, err)

	_, err = dec.FeedFrame(chunk)
	require.ErrorIs(t, err, errs.ErrUnexpectedFrame)
}

func TestDecoderRestartAfterComplete(t *testing.T) {
	enc := mustStreamEncoder(t)
	dec := mustStreamDecoder(t)

	got := pump(t, enc, dec, []byte("first stream"), 4)
	require.Equal(t, []byte("first stream"), got)

	got = pump(t, enc, dec, []byte("second"), 4)
	require.Equal(t, []byte("second"), got)
}

func TestInvalidFrameType(t *testing.T) {
	dec := mustStreamDecoder(t)
	frame := []byte{0x7F, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}
	_, err := dec.FeedFrame(frame)
	require.ErrorIs(t, err, errs.ErrInvalidFrameType)
}

func TestFrameWireRoundTrip(t *testing.T) {
	f := &Frame{
		Type:     format.FrameChunk,
		Flags:    flagHasMore | flagChecksummed,
		StreamID: 0xDEADBEEF,
		Seq:      300,
		Payload:  []byte("wire"),
	}

	data := f.Encode()
	got, n, err := DecodeFrame(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, f.Type, got.Type)
	require.Equal(t, f.Flags, got.Flags)
	require.Equal(t, f.StreamID, got.StreamID)
	require.Equal(t, f.Seq, got.Seq)
	require.Equal(t, f.Payload, got.Payload)
	require.NoError(t, got.verifyChecksum())

	// truncation at every prefix fails
	for i := 1; i < len(data); i++ {
		_, _, err := DecodeFrame(data[:i])
		require.Error(t, err)
	}
}

func TestStreamDigest(t *testing.T) {
	payload := testPayload(5000)

	enc := mustStreamEncoder(t, WithDigest(true))
	dec := mustStreamDecoder(t)

	got := pump(t, enc, dec, payload, 512)
	require.True(t, bytes.Equal(payload, got))

	encDigest, ok := enc.Digest()
	require.True(t, ok)
	decDigest, ok := dec.Digest()
	require.True(t, ok)
	require.Equal(t, hash.Sum64(payload), encDigest)
	require.Equal(t, encDigest, decDigest)
}

func TestDigestDisabled(t *testing.T) {
	enc := mustStreamEncoder(t)
	_, ok := enc.Digest()
	require.False(t, ok)
}

func TestBackpressureAccounting(t *testing.T) {
	bp := NewBackpressureControllerWithWindow(100)
	require.True(t, bp.CanSend())
	require.Equal(t, 100, bp.AvailableWindow())

	bp.OnChunkSent(60)
	require.True(t, bp.CanSend())
	require.Equal(t, 40, bp.AvailableWindow())

	bp.OnChunkSent(40)
	require.False(t, bp.CanSend())
	require.Equal(t, 0, bp.AvailableWindow())
	require.Equal(t, 100, bp.BytesInFlight())

	bp.OnChunkAcked(30)
	require.True(t, bp.CanSend())
	require.Equal(t, 70, bp.BytesInFlight())

	// acks never drive the count below zero
	bp.OnChunkAcked(1000)
	require.Equal(t, 0, bp.BytesInFlight())
	require.Equal(t, 100, bp.AvailableWindow())

	bp.OnChunkSent(10)
	bp.Reset()
	require.Equal(t, 0, bp.BytesInFlight())
}

func TestBackpressureDefaults(t *testing.T) {
	bp := NewBackpressureController()
	require.Equal(t, DefaultWindowSize, bp.WindowSize())

	fallback := NewBackpressureControllerWithWindow(0)
	require.Equal(t, DefaultWindowSize, fallback.WindowSize())
}
