// Package compress provides the compression codecs used by the streaming
// layer for chunk payloads.
//
// Compression is applied per chunk, after the payload is split at the
// configured chunk size and before the chunk checksum is computed, so the
// checksum always covers the bytes that actually travel.
//
// Supported algorithms:
//   - None: no compression (fastest, largest)
//   - Zstd: best ratio, moderate speed
//   - S2: balanced ratio and speed
//   - LZ4: fast block compression
//
// Codecs are selected through CreateCodec with a format.CompressionType.
// All implementations are safe for concurrent use; the zstd and lz4 codecs
// reuse pooled encoder state internally.
//
// The Zstd codec has two interchangeable backends: the pure Go
// klauspost/compress implementation by default, and the native library via
// valyala/gozstd when building with the cgozstd tag.
package compress
