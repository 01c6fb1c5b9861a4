package compress

// ZstdCompressor compresses chunk payloads with Zstandard. It gives the
// best ratio of the supported codecs and suits streams headed for storage
// or slow links.
//
// Two implementations back this type: a pure Go one (default) and a cgo
// one selected with the cgozstd build tag for workloads where the native
// library's speed is worth the cgo dependency.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
