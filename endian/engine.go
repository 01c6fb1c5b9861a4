// Package endian provides byte order utilities for the binary frame and
// streaming codecs.
//
// It combines the ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single EndianEngine interface so encoders can use
// the faster append-style operations while decoders keep the familiar
// read-style ones.
//
// The wire format mixes byte orders: value payloads (floats,
// checksums, stream identifiers) are little-endian, while FIDs and container
// header fields are big-endian. Both engines are used side by side rather
// than configured per frame.
//
// All functions and returned engines are immutable, stateless, and safe for
// concurrent use.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface for convenient byte order operations.
//
// It is satisfied by binary.LittleEndian and binary.BigEndian, so it stays
// fully compatible with existing code that expects either interface.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. A little-endian host stores the LSB (0x00) first,
	// a big-endian host stores the MSB (0x01) first.
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))

	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

func IsNativeBigEndian() bool {
	return CheckEndianness() == binary.BigEndian
}

// GetLittleEndianEngine returns the little-endian engine used for value
// payloads, checksums and stream identifiers.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine used for FIDs and
// container header fields.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
