package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lnmplang/lnmp/errs"
)

func TestAppendUvarint_Minimal(t *testing.T) {
	require.Equal(t, []byte{0x00}, AppendUvarint(nil, 0))
	require.Equal(t, []byte{0x7F}, AppendUvarint(nil, 127))
	require.Equal(t, []byte{0x80, 0x01}, AppendUvarint(nil, 128))
	require.Equal(t, []byte{0xFF, 0x7F}, AppendUvarint(nil, 16383))
	require.Equal(t, []byte{0x80, 0x80, 0x01}, AppendUvarint(nil, 16384))
}

func TestAppendUvarint_Max(t *testing.T) {
	encoded := AppendUvarint(nil, math.MaxUint64)
	require.Len(t, encoded, MaxVarIntLen)

	value, n, err := Uvarint(encoded, true)
	require.NoError(t, err)
	require.Equal(t, MaxVarIntLen, n)
	require.Equal(t, uint64(math.MaxUint64), value)
}

func TestZigZag(t *testing.T) {
	cases := map[int64]uint64{
		0:             0,
		-1:            1,
		1:             2,
		-2:            3,
		2:             4,
		math.MaxInt64: math.MaxUint64 - 1,
		math.MinInt64: math.MaxUint64,
	}
	for signed, unsigned := range cases {
		require.Equal(t, unsigned, ZigZag(signed), "zigzag(%d)", signed)
		require.Equal(t, signed, UnZigZag(unsigned), "unzigzag(%d)", unsigned)
	}
}

func TestVarint_RoundTrip(t *testing.T) {
	values := []int64{
		0, 1, -1, 63, 64, -64, -65, 127, 128, -128,
		14532, -14532, 1_000_000, -1_000_000,
		math.MaxInt64, math.MinInt64, math.MaxInt64 - 1, math.MinInt64 + 1,
	}
	for _, v := range values {
		encoded := AppendVarint(nil, v)
		decoded, n, err := Varint(encoded, true)
		require.NoError(t, err, "value %d", v)
		require.Equal(t, len(encoded), n)
		require.Equal(t, v, decoded)
	}
}

func TestVarint_SmallNegativesStayCompact(t *testing.T) {
	for v := int64(-64); v <= 63; v++ {
		require.Len(t, AppendVarint(nil, v), 1, "value %d", v)
	}
}

func TestUvarint_EmptyInput(t *testing.T) {
	_, _, err := Uvarint(nil, false)
	require.ErrorIs(t, err, errs.ErrInvalidVarInt)
}

func TestUvarint_Truncated(t *testing.T) {
	_, _, err := Uvarint([]byte{0x80}, false)
	require.ErrorIs(t, err, errs.ErrInvalidVarInt)

	_, _, err = Uvarint([]byte{0xFF, 0xFF, 0x80}, false)
	require.ErrorIs(t, err, errs.ErrInvalidVarInt)
}

func TestUvarint_TooLong(t *testing.T) {
	chain := make([]byte, MaxVarIntLen+1)
	for i := range chain {
		chain[i] = 0x80
	}
	_, _, err := Uvarint(chain, false)
	require.ErrorIs(t, err, errs.ErrInvalidVarInt)
}

func TestUvarint_Overflow(t *testing.T) {
	// Ten groups whose final group carries more than the top bit.
	chain := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F}
	_, _, err := Uvarint(chain, false)
	require.ErrorIs(t, err, errs.ErrInvalidVarInt)
}

func TestUvarint_NonMinimal(t *testing.T) {
	// 1 encoded with a redundant zero continuation group.
	padded := []byte{0x81, 0x00}

	value, n, err := Uvarint(padded, false)
	require.NoError(t, err)
	require.Equal(t, uint64(1), value)
	require.Equal(t, 2, n)

	_, _, err = Uvarint(padded, true)
	require.ErrorIs(t, err, errs.ErrInvalidVarInt)
}

func TestUvarint_TrailingDataIgnored(t *testing.T) {
	value, n, err := Uvarint([]byte{0x01, 0xFF, 0xFF}, true)
	require.NoError(t, err)
	require.Equal(t, uint64(1), value)
	require.Equal(t, 1, n)
}

func TestUvarintLen(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, math.MaxUint64}
	for _, v := range values {
		require.Equal(t, len(AppendUvarint(nil, v)), UvarintLen(v), "value %d", v)
	}
}
