package stream

import (
	"fmt"

	"github.com/lnmplang/lnmp/compress"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
	"github.com/lnmplang/lnmp/internal/hash"
	"github.com/lnmplang/lnmp/internal/options"
)

// EncoderState is the sender side stream lifecycle.
type EncoderState uint8

const (
	// StateIdle is the initial state, before BeginStream.
	StateIdle EncoderState = iota
	// StateStarted follows BeginStream, before the first chunk.
	StateStarted
	// StateStreaming follows the first WriteChunk.
	StateStreaming
	// StateEnded follows EndStream.
	StateEnded
	// StateErrored follows ErrorFrame.
	StateErrored
)

func (s EncoderState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarted:
		return "Started"
	case StateStreaming:
		return "Streaming"
	case StateEnded:
		return "Ended"
	case StateErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// Encoder emits the frame sequence for one stream at a time: BEGIN, then
// CHUNK frames, then END or ERROR. Calls that violate that order fail
// loudly instead of producing a silently broken stream.
//
// An Encoder is single-stream state; it is not safe for concurrent use.
type Encoder struct {
	codec       compress.Codec
	digest      *hash.Digest
	streamID    uint32
	seq         uint64
	chunkSize   int
	compression format.CompressionType
	state       EncoderState
	checksums   bool
	trackDigest bool
}

// EncoderOption configures a stream Encoder.
type EncoderOption = options.Option[*Encoder]

// WithStreamID sets the stream identifier stamped on every frame.
func WithStreamID(id uint32) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.streamID = id
	})
}

// WithChunkSize caps the payload size WriteChunk accepts.
func WithChunkSize(size int) EncoderOption {
	return options.New(func(e *Encoder) error {
		if size < 1 {
			return fmt.Errorf("%w: chunk size must be at least 1, got %d", errs.ErrInvalidValue, size)
		}
		e.chunkSize = size

		return nil
	})
}

// WithChecksums enables the trailing CRC32 on chunk frames.
func WithChecksums(enabled bool) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.checksums = enabled
	})
}

// WithCompression compresses chunk payloads with the given algorithm
// before they are framed. The receiver must be configured with the same
// algorithm.
func WithCompression(compression format.CompressionType) EncoderOption {
	return options.New(func(e *Encoder) error {
		codec, err := compress.CreateCodec(compression, "chunk")
		if err != nil {
			return err
		}
		e.compression = compression
		e.codec = codec

		return nil
	})
}

// WithDigest tracks an xxHash64 digest of the uncompressed payload bytes
// written to the stream, for content addressing of the streamed whole.
func WithDigest(enabled bool) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.trackDigest = enabled
	})
}

// NewEncoder creates a stream Encoder. Defaults: stream ID 1, 4KiB chunk
// cap, no checksums, no compression, no digest.
func NewEncoder(opts ...EncoderOption) (*Encoder, error) {
	enc := &Encoder{
		streamID:    1,
		chunkSize:   DefaultChunkSize,
		compression: format.CompressionNone,
	}
	if err := options.Apply(enc, opts...); err != nil {
		return nil, err
	}

	return enc, nil
}

// State returns the encoder's current lifecycle state.
func (e *Encoder) State() EncoderState {
	return e.state
}

// StreamID returns the identifier stamped on this stream's frames.
func (e *Encoder) StreamID() uint32 {
	return e.streamID
}

// Digest returns the xxHash64 of all payload bytes written so far. ok is
// false when digest tracking is disabled.
func (e *Encoder) Digest() (uint64, bool) {
	if !e.trackDigest || e.digest == nil {
		return 0, false
	}

	return e.digest.Sum64(), true
}

// BeginStream emits the BEGIN frame. Valid from Idle, Ended or Errored;
// beginning again after a finished stream starts a fresh one with the
// sequence reset.
func (e *Encoder) BeginStream() ([]byte, error) {
	switch e.state {
	case StateIdle, StateEnded, StateErrored:
	case StateStarted, StateStreaming:
		return nil, fmt.Errorf("%w: begin while stream in progress", errs.ErrUnexpectedFrame)
	}

	e.state = StateStarted
	e.seq = 0
	if e.trackDigest {
		e.digest = hash.NewDigest()
	}

	f := &Frame{Type: format.FrameBegin, StreamID: e.streamID, Seq: e.seq}
	e.seq++

	return f.Encode(), nil
}

// WriteChunk emits one CHUNK frame carrying data. The data must fit the
// configured chunk size; it is compressed (when configured) and
// checksummed (when enabled) on its way out.
func (e *Encoder) WriteChunk(data []byte) ([]byte, error) {
	switch e.state {
	case StateStarted, StateStreaming:
	case StateIdle:
		return nil, errs.ErrStreamNotStarted
	case StateEnded:
		return nil, errs.ErrStreamComplete
	case StateErrored:
		return nil, errs.ErrStreamErrored
	}

	if len(data) > e.chunkSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds chunk size %d",
			errs.ErrChunkSizeExceeded, len(data), e.chunkSize)
	}

	if e.digest != nil {
		// Write on xxhash.Digest never fails.
		_, _ = e.digest.Write(data)
	}

	payload := data
	var flags byte = flagHasMore
	if e.codec != nil && e.compression != format.CompressionNone {
		compressed, err := e.codec.Compress(data)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk compression failed: %w", errs.ErrStreaming, err)
		}
		payload = compressed
		flags |= flagCompressed
	}
	if e.checksums {
		flags |= flagChecksummed
	}

	f := &Frame{
		Type:     format.FrameChunk,
		Flags:    flags,
		StreamID: e.streamID,
		Seq:      e.seq,
		Payload:  payload,
	}
	e.seq++
	e.state = StateStreaming

	return f.Encode(), nil
}

// EndStream emits the END frame and finishes the stream.
func (e *Encoder) EndStream() ([]byte, error) {
	switch e.state {
	case StateStarted, StateStreaming:
	case StateIdle:
		return nil, errs.ErrStreamNotStarted
	case StateEnded:
		return nil, errs.ErrStreamComplete
	case StateErrored:
		return nil, errs.ErrStreamErrored
	}

	f := &Frame{Type: format.FrameEnd, StreamID: e.streamID, Seq: e.seq}
	e.seq++
	e.state = StateEnded

	return f.Encode(), nil
}

// ErrorFrame emits an ERROR frame carrying the message and moves the
// stream to Errored. Valid in any state, since errors can surface at any
// point.
func (e *Encoder) ErrorFrame(message string) ([]byte, error) {
	f := &Frame{
		Type:     format.FrameError,
		StreamID: e.streamID,
		Seq:      e.seq,
		Payload:  []byte(message),
	}
	e.seq++
	e.state = StateErrored

	return f.Encode(), nil
}
