package stream

import (
	"fmt"

	"github.com/lnmplang/lnmp/compress"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
	"github.com/lnmplang/lnmp/internal/hash"
	"github.com/lnmplang/lnmp/internal/options"
)

// DecoderState is the receiver side stream lifecycle.
type DecoderState uint8

const (
	// StateWaitingBegin is the initial state, before a BEGIN frame.
	StateWaitingBegin DecoderState = iota
	// StateAccumulating means chunks are being buffered.
	StateAccumulating
	// StateComplete follows the END frame; the payload is whole.
	StateComplete
	// StateFailed follows a checksum mismatch, a protocol violation, or an
	// ERROR frame.
	StateFailed
)

func (s DecoderState) String() string {
	switch s {
	case StateWaitingBegin:
		return "WaitingBegin"
	case StateAccumulating:
		return "Accumulating"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Errored"
	default:
		return "Unknown"
	}
}

// EventType discriminates the events FeedFrame reports.
type EventType uint8

const (
	// EventStreamStarted reports an accepted BEGIN frame.
	EventStreamStarted EventType = iota
	// EventChunkReceived reports an accepted, verified chunk.
	EventChunkReceived
	// EventStreamComplete reports an accepted END frame.
	EventStreamComplete
	// EventStreamError reports a received ERROR frame.
	EventStreamError
)

// Event is what one accepted frame did to the stream.
type Event struct {
	// Message carries the ERROR frame text for EventStreamError.
	Message string
	// Bytes is the decompressed chunk size for EventChunkReceived.
	Bytes int
	// TotalBytes is the reassembled payload size for EventStreamComplete.
	TotalBytes int
	Type       EventType
}

// Decoder reassembles one stream's payload from its frame sequence.
//
// Frames are verified before their bytes are buffered: a chunk whose CRC32
// does not match, a frame out of sequence, or a frame illegal in the
// current state moves the decoder to the failed state, and the partial
// buffer is never exposed. A Decoder is single-stream state; it is not
// safe for concurrent use.
type Decoder struct {
	codec          compress.Codec
	buffer         []byte
	errMessage     string
	streamID       uint32
	nextSeq        uint64
	maxPayloadSize int
	compression    format.CompressionType
	state          DecoderState
}

// DecoderOption configures a stream Decoder.
type DecoderOption = options.Option[*Decoder]

// WithDecoderCompression sets the algorithm used to decompress chunks that
// arrive with the compressed flag. It must match the sender's setting.
func WithDecoderCompression(compression format.CompressionType) DecoderOption {
	return options.New(func(d *Decoder) error {
		codec, err := compress.CreateCodec(compression, "chunk")
		if err != nil {
			return err
		}
		d.compression = compression
		d.codec = codec

		return nil
	})
}

// WithMaxPayloadSize caps the reassembled payload size in bytes. Zero
// means unlimited.
func WithMaxPayloadSize(maxSize int) DecoderOption {
	return options.New(func(d *Decoder) error {
		if maxSize < 0 {
			return fmt.Errorf("%w: max payload size must not be negative, got %d", errs.ErrInvalidValue, maxSize)
		}
		d.maxPayloadSize = maxSize

		return nil
	})
}

// NewDecoder creates a stream Decoder. Defaults: no compression, no
// payload size cap.
func NewDecoder(opts ...DecoderOption) (*Decoder, error) {
	dec := &Decoder{compression: format.CompressionNone}
	if err := options.Apply(dec, opts...); err != nil {
		return nil, err
	}

	return dec, nil
}

// State returns the decoder's current lifecycle state.
func (d *Decoder) State() DecoderState {
	return d.state
}

// StreamID returns the identifier of the stream being reassembled. Zero
// until a BEGIN frame is accepted.
func (d *Decoder) StreamID() uint32 {
	return d.streamID
}

// ErrorMessage returns the text of the ERROR frame that failed the
// stream, if any.
func (d *Decoder) ErrorMessage() string {
	return d.errMessage
}

// FeedFrame consumes one wire frame and reports what it did to the
// stream. On any verification failure the decoder moves to the failed
// state and all further frames are rejected until the next BEGIN.
func (d *Decoder) FeedFrame(frameBytes []byte) (Event, error) {
	f, _, err := DecodeFrame(frameBytes)
	if err != nil {
		return Event{}, err
	}

	switch f.Type {
	case format.FrameBegin:
		return d.onBegin(f)
	case format.FrameChunk:
		return d.onChunk(f)
	case format.FrameEnd:
		return d.onEnd(f)
	case format.FrameError:
		return d.onError(f)
	default:
		return Event{}, fmt.Errorf("%w: 0x%02X", errs.ErrInvalidFrameType, byte(f.Type))
	}
}

// CompletePayload returns the reassembled payload only in the Complete
// state; nil in every other state, so partial data can never be mistaken
// for the whole.
func (d *Decoder) CompletePayload() []byte {
	if d.state != StateComplete {
		return nil
	}

	return d.buffer
}

// Digest returns the xxHash64 of the reassembled payload. ok is false
// until the stream is complete.
func (d *Decoder) Digest() (uint64, bool) {
	if d.state != StateComplete {
		return 0, false
	}

	return hash.Sum64(d.buffer), true
}

func (d *Decoder) onBegin(f *Frame) (Event, error) {
	switch d.state {
	case StateWaitingBegin, StateComplete, StateFailed:
	case StateAccumulating:
		return Event{}, d.fail(fmt.Errorf("%w: begin while stream in progress", errs.ErrUnexpectedFrame))
	}
	if f.Seq != 0 {
		return Event{}, d.fail(fmt.Errorf("%w: begin frame has sequence %d", errs.ErrOutOfOrderFrame, f.Seq))
	}

	d.state = StateAccumulating
	d.streamID = f.StreamID
	d.buffer = d.buffer[:0]
	d.errMessage = ""
	d.nextSeq = 1

	return Event{Type: EventStreamStarted}, nil
}

func (d *Decoder) onChunk(f *Frame) (Event, error) {
	if err := d.checkStreaming(f); err != nil {
		return Event{}, err
	}

	if f.Checksummed() {
		if err := f.verifyChecksum(); err != nil {
			return Event{}, d.fail(err)
		}
	}

	payload := f.Payload
	if f.Compressed() {
		if d.codec == nil || d.compression == format.CompressionNone {
			return Event{}, d.fail(fmt.Errorf("%w: compressed chunk but no codec configured", errs.ErrStreaming))
		}
		decompressed, err := d.codec.Decompress(payload)
		if err != nil {
			return Event{}, d.fail(fmt.Errorf("%w: chunk decompression failed: %w", errs.ErrStreaming, err))
		}
		payload = decompressed
	}

	if d.maxPayloadSize > 0 && len(d.buffer)+len(payload) > d.maxPayloadSize {
		return Event{}, d.fail(fmt.Errorf("%w: reassembled payload exceeds %d bytes",
			errs.ErrStreaming, d.maxPayloadSize))
	}

	d.buffer = append(d.buffer, payload...)
	d.nextSeq++

	return Event{Type: EventChunkReceived, Bytes: len(payload)}, nil
}

func (d *Decoder) onEnd(f *Frame) (Event, error) {
	if err := d.checkStreaming(f); err != nil {
		return Event{}, err
	}

	d.state = StateComplete
	d.nextSeq++

	return Event{Type: EventStreamComplete, TotalBytes: len(d.buffer)}, nil
}

func (d *Decoder) onError(f *Frame) (Event, error) {
	d.state = StateFailed
	d.errMessage = string(f.Payload)

	return Event{Type: EventStreamError, Message: d.errMessage}, nil
}

// checkStreaming validates state, stream identity and sequence for chunk
// and end frames.
func (d *Decoder) checkStreaming(f *Frame) error {
	switch d.state {
	case StateAccumulating:
	case StateWaitingBegin:
		return errs.ErrStreamNotStarted
	case StateComplete:
		return errs.ErrStreamComplete
	case StateFailed:
		return errs.ErrStreamErrored
	}

	if f.StreamID != d.streamID {
		return d.fail(fmt.Errorf("%w: frame for stream %d while reassembling stream %d",
			errs.ErrUnexpectedFrame, f.StreamID, d.streamID))
	}
	if f.Seq != d.nextSeq {
		return d.fail(fmt.Errorf("%w: sequence %d, expected %d", errs.ErrOutOfOrderFrame, f.Seq, d.nextSeq))
	}

	return nil
}

// fail moves the decoder to the failed state and passes the error
// through.
func (d *Decoder) fail(err error) error {
	d.state = StateFailed
	d.errMessage = err.Error()

	return err
}
