// Package container implements the persisted container header that
// prefixes stored LNMP payloads.
//
// The header is 12 fixed bytes: the "LNMP" magic, a protocol version, a
// payload mode, big-endian flags and the big-endian length of the
// metadata block that follows the header.
package container

import (
	"bytes"
	"fmt"

	"github.com/lnmplang/lnmp/endian"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
)

// HeaderSize is the fixed byte length of a container header.
const HeaderSize = 12

// Magic is the four byte signature opening every container.
var Magic = [4]byte{'L', 'N', 'M', 'P'}

var wireEngine = endian.GetBigEndianEngine()

// Header describes the payload stored after it.
type Header struct {
	// Version is the protocol version of the contained payload.
	Version format.Version
	// Mode identifies the payload kind.
	Mode format.ContainerMode
	// Flags carries mode-specific bits.
	Flags uint16
	// MetadataLen is the byte length of the metadata block between the
	// header and the payload.
	MetadataLen uint32
}

// NewHeader creates a header for the given payload mode.
func NewHeader(version format.Version, mode format.ContainerMode) (*Header, error) {
	if !version.IsSupported() {
		return nil, &errs.VersionError{Found: byte(version), Supported: []byte{byte(format.Version04), byte(format.Version05)}}
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: 0x%02X", errs.ErrUnknownMode, uint8(mode))
	}

	return &Header{Version: version, Mode: mode}, nil
}

// AppendTo appends the 12 byte wire form of the header to dst.
func (h *Header) AppendTo(dst []byte) []byte {
	dst = append(dst, Magic[:]...)
	dst = append(dst, byte(h.Version), byte(h.Mode))
	dst = wireEngine.AppendUint16(dst, h.Flags)
	dst = wireEngine.AppendUint32(dst, h.MetadataLen)

	return dst
}

// Bytes returns the 12 byte wire form of the header.
func (h *Header) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, HeaderSize))
}

// Parse decodes a container header from the start of data. Bytes past
// the header are ignored.
func Parse(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", errs.ErrInvalidHeaderSize, HeaderSize, len(data))
	}
	if !bytes.Equal(data[:4], Magic[:]) {
		return nil, fmt.Errorf("%w: got % X", errs.ErrInvalidMagic, data[:4])
	}

	version := format.Version(data[4])
	if !version.IsSupported() {
		return nil, &errs.VersionError{Found: data[4], Supported: []byte{byte(format.Version04), byte(format.Version05)}}
	}

	mode := format.ContainerMode(data[5])
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: 0x%02X", errs.ErrUnknownMode, data[5])
	}

	return &Header{
		Version:     version,
		Mode:        mode,
		Flags:       wireEngine.Uint16(data[6:8]),
		MetadataLen: wireEngine.Uint32(data[8:12]),
	}, nil
}

// Split separates a container into its header, metadata block and
// payload.
func Split(data []byte) (*Header, []byte, []byte, error) {
	h, err := Parse(data)
	if err != nil {
		return nil, nil, nil, err
	}

	body := data[HeaderSize:]
	if uint64(len(body)) < uint64(h.MetadataLen) {
		return nil, nil, nil, fmt.Errorf("%w: metadata length %d exceeds %d remaining bytes",
			errs.ErrInvalidHeaderSize, h.MetadataLen, len(body))
	}

	return h, body[:h.MetadataLen], body[h.MetadataLen:], nil
}

// Seal assembles a complete container from the header mode, a metadata
// block and a payload.
func Seal(h *Header, metadata, payload []byte) []byte {
	h.MetadataLen = uint32(len(metadata))

	out := make([]byte, 0, HeaderSize+len(metadata)+len(payload))
	out = h.AppendTo(out)
	out = append(out, metadata...)
	out = append(out, payload...)

	return out
}
