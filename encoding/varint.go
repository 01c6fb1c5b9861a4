// Package encoding implements the variable-length integer codec used
// throughout the binary frame and streaming layers.
//
// Integers are encoded as a minimal-length sequence of 7-bit groups with a
// continuation bit (base-128, little-endian group order). Signed values are
// zig-zag mapped first so small-magnitude negatives stay compact:
// 0 -> 0, -1 -> 1, 1 -> 2, -2 -> 3, and so on.
package encoding

import (
	"fmt"

	"github.com/lnmplang/lnmp/errs"
)

// MaxVarIntLen is the maximum number of groups a 64-bit varint may occupy.
// A continuation chain longer than this is rejected as malformed.
const MaxVarIntLen = 10

// AppendUvarint appends the minimal base-128 encoding of v to dst and
// returns the extended slice. It never emits leading all-zero continuation
// groups.
func AppendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}

// AppendVarint appends the zig-zag base-128 encoding of v to dst and
// returns the extended slice.
func AppendVarint(dst []byte, v int64) []byte {
	return AppendUvarint(dst, ZigZag(v))
}

// ZigZag maps a signed integer onto the unsigned domain so that values of
// small magnitude, positive or negative, encode in few groups.
func ZigZag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63) //nolint:gosec
}

// UnZigZag inverts ZigZag.
func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1) //nolint:gosec
}

// Uvarint decodes an unsigned base-128 varint from the start of buf.
//
// It returns the decoded value and the number of bytes consumed. When
// strict is true the encoding must also be minimal: a value followed by a
// redundant zero continuation group is rejected.
//
// Errors wrap errs.ErrInvalidVarInt for empty input, a truncated
// continuation chain, or a chain exceeding MaxVarIntLen groups, and
// errs.ErrUnexpectedEOF is reported through the same sentinel so callers
// only need one check.
func Uvarint(buf []byte, strict bool) (uint64, int, error) {
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("%w: empty input", errs.ErrInvalidVarInt)
	}

	var (
		value uint64
		shift uint
	)

	for i, b := range buf {
		if i >= MaxVarIntLen {
			return 0, 0, fmt.Errorf("%w: continuation chain exceeds %d groups", errs.ErrInvalidVarInt, MaxVarIntLen)
		}

		group := uint64(b & 0x7F)
		if i == MaxVarIntLen-1 && group > 0x01 {
			// The 10th group may only carry the top bit of a 64-bit value.
			return 0, 0, fmt.Errorf("%w: value overflows 64 bits", errs.ErrInvalidVarInt)
		}
		value |= group << shift

		if b&0x80 == 0 {
			if strict && i > 0 && b == 0x00 {
				return 0, 0, fmt.Errorf("%w: non-minimal encoding (%d groups)", errs.ErrInvalidVarInt, i+1)
			}

			return value, i + 1, nil
		}

		shift += 7
	}

	return 0, 0, fmt.Errorf("%w: truncated continuation chain", errs.ErrInvalidVarInt)
}

// Varint decodes a zig-zag base-128 varint from the start of buf, returning
// the signed value and the number of bytes consumed.
func Varint(buf []byte, strict bool) (int64, int, error) {
	u, n, err := Uvarint(buf, strict)
	if err != nil {
		return 0, 0, err
	}

	return UnZigZag(u), n, nil
}

// UvarintLen returns the number of bytes AppendUvarint would emit for v.
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}
