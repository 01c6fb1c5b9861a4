// Package stream implements the chunked streaming layer: large payloads
// are split into CHUNK frames between a BEGIN and an END frame, with
// per-chunk CRC32 integrity checks, optional compression, and explicit
// state machines on both sides.
//
// The streamed payload is opaque here, typically an encoded binary frame.
// Reassembly is pure concatenation in arrival order after integrity checks
// pass.
package stream

import (
	"fmt"
	"hash/crc32"

	"github.com/lnmplang/lnmp/encoding"
	"github.com/lnmplang/lnmp/endian"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
)

const (
	// DefaultChunkSize is the chunk payload cap applied when none is
	// configured.
	DefaultChunkSize = 4096

	// flag bits in the frame FLAGS byte
	flagHasMore     = 0x01
	flagCompressed  = 0x02
	flagChecksummed = 0x04
)

var wireEngine = endian.GetLittleEndianEngine()

// Frame is one streaming layer frame in decoded form.
//
// Wire layout: TYPE(1) | FLAGS(1) | STREAM_ID(4, little-endian) |
// SEQ(varint) | LEN(varint) | PAYLOAD | CRC32(4, little-endian). The
// trailing CRC32 is present only on CHUNK frames with the checksummed flag
// bit set and covers the payload bytes as they travel, after compression.
type Frame struct {
	Payload  []byte
	Seq      uint64
	StreamID uint32
	Checksum uint32
	Type     format.StreamFrameType
	Flags    byte
}

// HasMore reports whether the has-more flag bit is set.
func (f *Frame) HasMore() bool {
	return f.Flags&flagHasMore != 0
}

// Compressed reports whether the chunk payload is compressed.
func (f *Frame) Compressed() bool {
	return f.Flags&flagCompressed != 0
}

// Checksummed reports whether the frame carries a trailing CRC32.
func (f *Frame) Checksummed() bool {
	return f.Type == format.FrameChunk && f.Flags&flagChecksummed != 0
}

// AppendTo appends the frame's wire form to dst, computing the trailing
// checksum when the checksummed flag is set.
func (f *Frame) AppendTo(dst []byte) []byte {
	dst = append(dst, byte(f.Type), f.Flags)
	dst = wireEngine.AppendUint32(dst, f.StreamID)
	dst = encoding.AppendUvarint(dst, f.Seq)
	dst = encoding.AppendUvarint(dst, uint64(len(f.Payload)))
	dst = append(dst, f.Payload...)
	if f.Checksummed() {
		dst = wireEngine.AppendUint32(dst, crc32.ChecksumIEEE(f.Payload))
	}

	return dst
}

// Encode returns the frame's wire form.
func (f *Frame) Encode() []byte {
	return f.AppendTo(nil)
}

// DecodeFrame parses one frame from the start of data and returns it with
// the bytes consumed. The stored checksum is read but not verified; the
// stream decoder verifies it so a mismatch can transition the stream
// state.
func DecodeFrame(data []byte) (*Frame, int, error) {
	if len(data) < 6 {
		return nil, 0, &errs.EOFError{Expected: 6, Found: len(data)}
	}

	ftype := format.StreamFrameType(data[0])
	if !ftype.IsValid() {
		return nil, 0, fmt.Errorf("%w: 0x%02X", errs.ErrInvalidFrameType, data[0])
	}

	f := &Frame{
		Type:     ftype,
		Flags:    data[1],
		StreamID: wireEngine.Uint32(data[2:]),
	}
	n := 6

	seq, sn, err := encoding.Uvarint(data[n:], false)
	if err != nil {
		return nil, 0, err
	}
	f.Seq = seq
	n += sn

	length, ln, err := encoding.Uvarint(data[n:], false)
	if err != nil {
		return nil, 0, err
	}
	n += ln
	if uint64(len(data)-n) < length {
		return nil, 0, &errs.EOFError{Expected: n + int(length), Found: len(data)}
	}
	f.Payload = data[n : n+int(length)]
	n += int(length)

	if f.Checksummed() {
		if len(data)-n < 4 {
			return nil, 0, &errs.EOFError{Expected: n + 4, Found: len(data)}
		}
		f.Checksum = wireEngine.Uint32(data[n:])
		n += 4
	}

	return f, n, nil
}

// verifyChecksum recomputes the payload CRC32 and compares it to the
// stored value.
func (f *Frame) verifyChecksum() error {
	computed := crc32.ChecksumIEEE(f.Payload)
	if computed != f.Checksum {
		return &errs.ChecksumError{Expected: f.Checksum, Found: computed}
	}

	return nil
}
