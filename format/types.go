package format

type (
	// TypeTag is the one-byte discriminator identifying which value variant
	// follows in a frame entry.
	TypeTag uint8

	// Version is the binary frame version byte.
	Version uint8

	// StreamFrameType identifies a streaming layer frame.
	StreamFrameType uint8

	// ContainerMode identifies the payload kind of a persisted container.
	ContainerMode uint8

	// CompressionType identifies a chunk payload compression algorithm.
	CompressionType uint8

	// NumericDType identifies the element type of a hybrid numeric array.
	NumericDType uint8
)

const (
	TagInt                TypeTag = 0x01 // TagInt is a zig-zag varint encoded integer.
	TagFloat              TypeTag = 0x02 // TagFloat is an 8-byte IEEE-754 little-endian double.
	TagBool               TypeTag = 0x03 // TagBool is a single 0x00/0x01 byte.
	TagString             TypeTag = 0x04 // TagString is varint length + UTF-8 bytes.
	TagStringArray        TypeTag = 0x05 // TagStringArray is varint count + length-prefixed strings.
	TagNestedRecord       TypeTag = 0x06 // TagNestedRecord is a length-prefixed nested frame body (v0.5+).
	TagNestedArray        TypeTag = 0x07 // TagNestedArray is a count of length-prefixed nested bodies (v0.5+).
	TagReserved08         TypeTag = 0x08 // TagReserved08 is reserved for future use.
	TagHybridNumericArray TypeTag = 0x09 // TagHybridNumericArray is a dense or sparse packed numeric array (v0.5+).
	TagIntArray           TypeTag = 0x0A // TagIntArray is varint count + zig-zag varint elements (v0.5+).
	TagFloatArray         TypeTag = 0x0B // TagFloatArray is varint count + 8-byte LE elements (v0.5+).
	TagBoolArray          TypeTag = 0x0C // TagBoolArray is varint count + 0x00/0x01 bytes (v0.5+).
	TagEmbedding          TypeTag = 0x0D // TagEmbedding is an opaque length-prefixed vector blob (v0.5+).
	TagEmbeddingDelta     TypeTag = 0x0E // TagEmbeddingDelta is an opaque length-prefixed delta blob (v0.5+).
	TagQuantizedEmbedding TypeTag = 0x0F // TagQuantizedEmbedding is an opaque length-prefixed quantized blob (v0.5+).
)

const (
	// Version04 frames carry scalar and string types only; nested and
	// extended entries are rejected.
	Version04 Version = 0x04
	// Version05 frames allow nested and extended entries with enforced
	// depth limits.
	Version05 Version = 0x05
)

const (
	FrameBegin StreamFrameType = 0x00 // FrameBegin opens a stream.
	FrameChunk StreamFrameType = 0x01 // FrameChunk carries one payload segment.
	FrameEnd   StreamFrameType = 0x02 // FrameEnd completes a stream.
	FrameError StreamFrameType = 0x03 // FrameError aborts a stream with a message payload.
)

const (
	ModeText        ContainerMode = 1 // ModeText holds text grammar payloads.
	ModeBinary      ContainerMode = 2 // ModeBinary holds binary frame payloads.
	ModeStream      ContainerMode = 3 // ModeStream holds streaming frame sequences.
	ModeDelta       ContainerMode = 4 // ModeDelta holds delta-encoded payloads.
	ModeQuantumSafe ContainerMode = 5 // ModeQuantumSafe holds post-quantum sealed payloads.
	ModeEmbedding   ContainerMode = 6 // ModeEmbedding holds embedding vector payloads.
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone leaves chunk payloads untouched.
	CompressionZstd CompressionType = 0x2 // CompressionZstd uses Zstandard.
	CompressionS2   CompressionType = 0x3 // CompressionS2 uses S2.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 uses LZ4 block compression.
)

const (
	DTypeI32 NumericDType = 0x0 // DTypeI32 packs 4-byte little-endian signed integers.
	DTypeI64 NumericDType = 0x1 // DTypeI64 packs 8-byte little-endian signed integers.
	DTypeF32 NumericDType = 0x2 // DTypeF32 packs 4-byte IEEE-754 floats.
	DTypeF64 NumericDType = 0x3 // DTypeF64 packs 8-byte IEEE-754 doubles.
)

// IsValid reports whether the tag is a known, non-reserved type tag.
func (t TypeTag) IsValid() bool {
	return t >= TagInt && t <= TagQuantizedEmbedding && t != TagReserved08
}

// IsExtended reports whether the tag requires a version 0x05 frame.
func (t TypeTag) IsExtended() bool {
	return t >= TagNestedRecord
}

// IsNested reports whether the tag carries nested record bodies.
func (t TypeTag) IsNested() bool {
	return t == TagNestedRecord || t == TagNestedArray
}

func (t TypeTag) String() string {
	switch t {
	case TagInt:
		return "Int"
	case TagFloat:
		return "Float"
	case TagBool:
		return "Bool"
	case TagString:
		return "String"
	case TagStringArray:
		return "StringArray"
	case TagNestedRecord:
		return "NestedRecord"
	case TagNestedArray:
		return "NestedArray"
	case TagHybridNumericArray:
		return "HybridNumericArray"
	case TagIntArray:
		return "IntArray"
	case TagFloatArray:
		return "FloatArray"
	case TagBoolArray:
		return "BoolArray"
	case TagEmbedding:
		return "Embedding"
	case TagEmbeddingDelta:
		return "EmbeddingDelta"
	case TagQuantizedEmbedding:
		return "QuantizedEmbedding"
	default:
		return "Unknown"
	}
}

// IsSupported reports whether the version byte is a known frame version.
func (v Version) IsSupported() bool {
	return v == Version04 || v == Version05
}

// AllowsExtended reports whether extended type tags may appear in frames of
// this version.
func (v Version) AllowsExtended() bool {
	return v >= Version05
}

func (v Version) String() string {
	switch v {
	case Version04:
		return "v0.4"
	case Version05:
		return "v0.5"
	default:
		return "Unknown"
	}
}

// IsValid reports whether the byte is a known streaming frame type.
func (f StreamFrameType) IsValid() bool {
	return f <= FrameError
}

func (f StreamFrameType) String() string {
	switch f {
	case FrameBegin:
		return "Begin"
	case FrameChunk:
		return "Chunk"
	case FrameEnd:
		return "End"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsValid reports whether the byte is a known container mode.
func (m ContainerMode) IsValid() bool {
	return m >= ModeText && m <= ModeEmbedding
}

func (m ContainerMode) String() string {
	switch m {
	case ModeText:
		return "Text"
	case ModeBinary:
		return "Binary"
	case ModeStream:
		return "Stream"
	case ModeDelta:
		return "Delta"
	case ModeQuantumSafe:
		return "QuantumSafe"
	case ModeEmbedding:
		return "Embedding"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Size returns the packed element width in bytes.
func (d NumericDType) Size() int {
	switch d {
	case DTypeI32, DTypeF32:
		return 4
	case DTypeI64, DTypeF64:
		return 8
	default:
		return 0
	}
}

// IsValid reports whether the dtype is one of the four packed element types.
func (d NumericDType) IsValid() bool {
	return d <= DTypeF64
}

func (d NumericDType) String() string {
	switch d {
	case DTypeI32:
		return "I32"
	case DTypeI64:
		return "I64"
	case DTypeF32:
		return "F32"
	case DTypeF64:
		return "F64"
	default:
		return "Unknown"
	}
}
