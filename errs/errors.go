// Package errs defines the error taxonomy shared by all lnmp packages.
//
// Every failure mode is anchored by a sentinel error so callers can test
// with errors.Is regardless of how much context was wrapped around it.
// Failures that carry structured context (depth counters, byte counts,
// checksum values) use typed errors that unwrap to their sentinel, so the
// context is available through errors.As without re-parsing the message.
package errs

import (
	"errors"
	"fmt"
)

// Frame codec errors.
var (
	// ErrUnsupportedVersion indicates the frame version byte is unknown or
	// incompatible with the requested decode.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrInvalidFID indicates a field identifier violates a constraint.
	ErrInvalidFID = errors.New("invalid FID")

	// ErrInvalidTypeTag indicates an unknown type tag byte. Unknown tags are
	// always an error, never silently skipped.
	ErrInvalidTypeTag = errors.New("invalid type tag")

	// ErrInvalidValue indicates a value payload that cannot be decoded for
	// its declared type tag.
	ErrInvalidValue = errors.New("invalid value")

	// ErrTrailingData indicates bytes remain after the last entry under
	// strict parsing.
	ErrTrailingData = errors.New("trailing data after frame")

	// ErrCanonicalViolation indicates unsorted or duplicate FIDs where
	// canonical form is required.
	ErrCanonicalViolation = errors.New("canonical form violation")

	// ErrUnexpectedEOF indicates the input ended before a declared length
	// was satisfied.
	ErrUnexpectedEOF = errors.New("unexpected end of input")

	// ErrInvalidVarInt indicates a malformed variable-length integer:
	// truncated, over-long, or non-minimal in strict mode.
	ErrInvalidVarInt = errors.New("invalid varint")

	// ErrInvalidUtf8 indicates a string payload that is not valid UTF-8.
	ErrInvalidUtf8 = errors.New("invalid UTF-8")

	// ErrNestingDepthExceeded indicates nested records deeper than the
	// configured maximum.
	ErrNestingDepthExceeded = errors.New("nesting depth exceeded")

	// ErrNestedStructureNotSupported indicates a nested entry inside a
	// version 0x04 frame.
	ErrNestedStructureNotSupported = errors.New("nested structures not supported in v0.4 frames")

	// ErrRecordSizeExceeded indicates a frame larger than the configured
	// record size limit.
	ErrRecordSizeExceeded = errors.New("record size exceeded")

	// ErrInvalidNestedStructure indicates a structurally broken nested
	// record body.
	ErrInvalidNestedStructure = errors.New("invalid nested structure")
)

// Streaming layer errors. All unwrap to ErrStreaming.
var (
	// ErrStreaming is the root of the streaming error family.
	ErrStreaming = errors.New("streaming error")

	// ErrChecksumMismatch indicates a chunk whose computed checksum differs
	// from the stored one.
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", ErrStreaming)

	// ErrInvalidFrameType indicates an unknown streaming frame type byte.
	ErrInvalidFrameType = fmt.Errorf("%w: invalid frame type", ErrStreaming)

	// ErrUnexpectedFrame indicates a frame that is valid in isolation but
	// illegal in the current stream state.
	ErrUnexpectedFrame = fmt.Errorf("%w: unexpected frame", ErrStreaming)

	// ErrStreamNotStarted indicates a chunk or end frame before begin.
	ErrStreamNotStarted = fmt.Errorf("%w: stream not started", ErrStreaming)

	// ErrStreamComplete indicates an operation on a stream that already
	// ended.
	ErrStreamComplete = fmt.Errorf("%w: stream already complete", ErrStreaming)

	// ErrStreamErrored indicates an operation on a stream that entered the
	// errored state.
	ErrStreamErrored = fmt.Errorf("%w: stream errored", ErrStreaming)

	// ErrChunkSizeExceeded indicates a chunk payload larger than the
	// configured chunk size.
	ErrChunkSizeExceeded = fmt.Errorf("%w: chunk size exceeded", ErrStreaming)

	// ErrOutOfOrderFrame indicates a frame whose sequence number does not
	// follow the previous one.
	ErrOutOfOrderFrame = fmt.Errorf("%w: out-of-order frame", ErrStreaming)
)

// Negotiation errors. All unwrap to ErrNegotiation.
var (
	// ErrNegotiation is the root of the capability negotiation family.
	ErrNegotiation = errors.New("negotiation error")

	// ErrIncompatibleVersion indicates no protocol version acceptable to
	// both peers.
	ErrIncompatibleVersion = fmt.Errorf("%w: incompatible versions", ErrNegotiation)

	// ErrNoCommonTypes indicates an empty type tag intersection.
	ErrNoCommonTypes = fmt.Errorf("%w: no common type tags", ErrNegotiation)

	// ErrFeatureUnsupported indicates a mandatory feature one side lacks.
	ErrFeatureUnsupported = fmt.Errorf("%w: mandatory feature unsupported", ErrNegotiation)

	// ErrInvalidState indicates a negotiation call in the wrong session
	// state.
	ErrInvalidState = fmt.Errorf("%w: invalid session state", ErrNegotiation)
)

// Container errors.
var (
	// ErrInvalidMagic indicates a container header without the LNMP magic.
	ErrInvalidMagic = errors.New("invalid magic number")

	// ErrUnknownMode indicates an unrecognized container mode byte.
	ErrUnknownMode = errors.New("unknown container mode")

	// ErrInvalidHeaderSize indicates a container header shorter than the
	// fixed layout.
	ErrInvalidHeaderSize = errors.New("invalid header size")
)

// VersionError reports a frame version the decoder does not support.
type VersionError struct {
	Found     byte
	Supported []byte
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported version 0x%02X, supported versions %v", e.Found, e.Supported)
}

func (e *VersionError) Unwrap() error { return ErrUnsupportedVersion }

// EOFError reports how far the input fell short of a declared length.
type EOFError struct {
	Expected int
	Found    int
}

func (e *EOFError) Error() string {
	return fmt.Sprintf("unexpected end of input: expected %d bytes, found %d", e.Expected, e.Found)
}

func (e *EOFError) Unwrap() error { return ErrUnexpectedEOF }

// TrailingDataError reports leftover bytes after a strict-mode decode.
type TrailingDataError struct {
	BytesRemaining int
}

func (e *TrailingDataError) Error() string {
	return fmt.Sprintf("trailing data: %d bytes remaining after frame", e.BytesRemaining)
}

func (e *TrailingDataError) Unwrap() error { return ErrTrailingData }

// Utf8Error reports the field whose string payload failed UTF-8 validation.
type Utf8Error struct {
	FieldID uint16
}

func (e *Utf8Error) Error() string {
	return fmt.Sprintf("invalid UTF-8 in field %d", e.FieldID)
}

func (e *Utf8Error) Unwrap() error { return ErrInvalidUtf8 }

// NestingDepthError reports the depth at which the limit was crossed.
type NestingDepthError struct {
	Depth int
	Max   int
}

func (e *NestingDepthError) Error() string {
	return fmt.Sprintf("nesting depth exceeded: depth %d exceeds maximum %d", e.Depth, e.Max)
}

func (e *NestingDepthError) Unwrap() error { return ErrNestingDepthExceeded }

// RecordSizeError reports a frame that exceeds the configured byte limit.
type RecordSizeError struct {
	Size int
	Max  int
}

func (e *RecordSizeError) Error() string {
	return fmt.Sprintf("record size exceeded: %d bytes exceeds maximum %d", e.Size, e.Max)
}

func (e *RecordSizeError) Unwrap() error { return ErrRecordSizeExceeded }

// ValueError reports a value payload that cannot be decoded for its tag.
type ValueError struct {
	FieldID uint16
	TypeTag byte
	Reason  string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value for field %d (type tag 0x%02X): %s", e.FieldID, e.TypeTag, e.Reason)
}

func (e *ValueError) Unwrap() error { return ErrInvalidValue }

// ChecksumError reports a chunk integrity failure.
type ChecksumError struct {
	Expected uint32
	Found    uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08X, found 0x%08X", e.Expected, e.Found)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }
