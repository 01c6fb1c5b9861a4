package hash

import "github.com/cespare/xxhash/v2"

// Sum64 computes the xxHash64 of the given bytes. It is the content
// addressing primitive: hashing a canonical frame encoding yields a stable
// 64-bit identity for the record.
func Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Sum64String computes the xxHash64 of the given string.
func Sum64String(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Digest is an incremental xxHash64 state for hashing data that arrives in
// pieces, such as reassembled stream payloads.
type Digest = xxhash.Digest

// NewDigest creates an incremental xxHash64 digest.
func NewDigest() *Digest {
	return xxhash.New()
}
