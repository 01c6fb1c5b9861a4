// Package lnmp provides a canonical binary wire format for typed,
// field-identifier-keyed records, plus a chunked streaming layer for
// moving large encoded payloads over message-oriented transports.
//
// Records map 16-bit field identifiers (FIDs) to typed values. The
// encoder always emits fields in ascending FID order, so any two
// records with the same FID to value mapping produce byte-identical
// output regardless of insertion order. That determinism is what makes
// encoded frames safe to hash, deduplicate and content-address.
//
// # Basic Usage
//
// Encoding and decoding a record:
//
//	import "github.com/lnmplang/lnmp"
//
//	rec := record.New()
//	rec.AddField(12, record.Int(14532))
//	rec.AddField(7, record.Bool(true))
//
//	data, _ := lnmp.Encode(rec)
//	back, _ := lnmp.Decode(data)
//
// Zero-copy decoding borrows payload bytes from the input buffer
// instead of allocating, which suits hot read paths:
//
//	view, _ := lnmp.DecodeView(data)
//	v, _ := view.GetField(12)
//	fmt.Println(v.Int())
//
// Content addressing hashes the canonical encoding:
//
//	id, _ := lnmp.RecordID(rec)
//
// # Package Structure
//
// This package wraps the most common entry points. The subpackages
// expose the full surface:
//
//   - record: the value model and canonical form helpers
//   - frame: the frame encoder, decoder and zero-copy view path
//   - stream: the chunked streaming layer with checksums
//   - negotiate: the capability handshake
//   - container: the persisted container header
package lnmp

import (
	"github.com/lnmplang/lnmp/frame"
	"github.com/lnmplang/lnmp/internal/hash"
	"github.com/lnmplang/lnmp/record"
)

// Encode encodes a record into its canonical frame bytes with default
// settings. The frame version is chosen automatically: 0x04 for scalar
// and string fields only, 0x05 when extended entries are present.
func Encode(rec *record.Record) ([]byte, error) {
	enc, err := frame.NewEncoder()
	if err != nil {
		return nil, err
	}

	return enc.Encode(rec)
}

// Decode parses frame bytes into an owned record with default settings:
// strict parsing off, ordering validation off, duplicate FIDs always
// rejected.
func Decode(data []byte) (*record.Record, error) {
	dec, err := frame.NewDecoder()
	if err != nil {
		return nil, err
	}

	return dec.Decode(data)
}

// DecodeView parses frame bytes into a zero-copy view whose string and
// array payloads alias the input buffer. The buffer must stay reachable
// and unmodified for the lifetime of the view.
func DecodeView(data []byte) (*frame.RecordView, error) {
	dec, err := frame.NewDecoder()
	if err != nil {
		return nil, err
	}

	return dec.DecodeView(data)
}

// RecordID returns the xxHash64 of the record's canonical encoding.
// Records with equal FID to value mappings share an ID regardless of
// field insertion order.
func RecordID(rec *record.Record) (uint64, error) {
	data, err := Encode(rec)
	if err != nil {
		return 0, err
	}

	return hash.Sum64(data), nil
}
