package compress

import (
	"fmt"

	"github.com/lnmplang/lnmp/format"
)

// Compressor compresses streaming chunk payloads.
//
// Chunk payloads are opaque byte runs, typically an encoded binary frame
// split at the configured chunk size, so implementations see payloads from
// a few hundred bytes up to the chunk cap.
type Compressor interface {
	// Compress compresses the input data and returns the compressed result.
	//
	// The returned slice is newly allocated and owned by the caller; the
	// input slice is never modified. Internal buffers may be reused across
	// calls.
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores chunk payloads compressed by the matching
// Compressor.
//
// Implementations must be safe for concurrent use; stream decoders for
// independent streams share codec instances.
type Decompressor interface {
	// Decompress decompresses the input data and returns the original
	// bytes.
	//
	// Returns an error when the data is corrupted or was compressed with a
	// different algorithm. The returned slice is newly allocated and owned
	// by the caller.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions for implementations that share state
// between them.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec creates the Codec for a compression type. target names what
// the codec is for and only appears in error messages.
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression type: %v", target, compressionType)
	}
}
