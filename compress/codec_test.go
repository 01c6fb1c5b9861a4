package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lnmplang/lnmp/format"
)

// chunkPayload builds a payload with enough repetition to compress.
func chunkPayload(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 37)
	}

	return data
}

func TestCreateCodec(t *testing.T) {
	tests := []struct {
		name string
		typ  format.CompressionType
	}{
		{"none", format.CompressionNone},
		{"zstd", format.CompressionZstd},
		{"s2", format.CompressionS2},
		{"lz4", format.CompressionLZ4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := CreateCodec(tt.typ, "chunks")
			require.NoError(t, err)
			require.NotNil(t, codec)
		})
	}

	_, err := CreateCodec(format.CompressionType(0xEE), "chunks")
	require.Error(t, err)
	require.Contains(t, err.Error(), "chunks")
}

func TestCodecRoundTrip(t *testing.T) {
	payload := chunkPayload(16 * 1024)

	for _, typ := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(typ.String(), func(t *testing.T) {
			codec, err := CreateCodec(typ, "chunks")
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)
			if typ != format.CompressionNone {
				require.Less(t, len(compressed), len(payload))
			}

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.True(t, bytes.Equal(payload, restored))
		})
	}
}

func TestCodecEmptyInput(t *testing.T) {
	for _, typ := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(typ.String(), func(t *testing.T) {
			codec, err := CreateCodec(typ, "chunks")
			require.NoError(t, err)

			compressed, err := codec.Compress(nil)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, restored)
		})
	}
}

func TestDecompressCorruptedInput(t *testing.T) {
	garbage := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01, 0x02}

	zstdCodec := NewZstdCompressor()
	_, err := zstdCodec.Decompress(garbage)
	require.Error(t, err)

	s2Codec := NewS2Compressor()
	_, err = s2Codec.Decompress(garbage)
	require.Error(t, err)
}

func TestNoOpSharesMemory(t *testing.T) {
	payload := chunkPayload(64)
	codec := NewNoOpCompressor()

	out, err := codec.Compress(payload)
	require.NoError(t, err)
	require.Same(t, &payload[0], &out[0])
}
