// Package frame implements the canonical binary frame codec: a versioned
// header followed by FID-sorted typed entries.
//
// A frame is VERSION(1) | FLAGS(1) | ENTRY_COUNT(varint) | ENTRY*, where
// each entry is FID(2, big-endian) | TAG(1) | payload. Encoding the same
// FID to value mapping always yields byte-identical output regardless of
// insertion order, which is what makes frames hashable and deduplicatable.
package frame

import (
	"fmt"

	"github.com/lnmplang/lnmp/encoding"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
	"github.com/lnmplang/lnmp/internal/options"
	"github.com/lnmplang/lnmp/internal/pool"
	"github.com/lnmplang/lnmp/record"
)

// Encoder turns records into canonical binary frames. A configured Encoder
// is immutable and safe for concurrent use.
type Encoder struct {
	version           format.Version // 0 selects automatically per record
	flags             byte
	maxDepth          int
	maxRecordSize     int // 0 = unlimited
	validateCanonical bool
}

// EncoderOption configures an Encoder.
type EncoderOption = options.Option[*Encoder]

// WithVersion pins the frame version instead of selecting it from the
// record's contents. Encoding a record that needs features the pinned
// version lacks fails.
func WithVersion(v format.Version) EncoderOption {
	return options.New(func(e *Encoder) error {
		if !v.IsSupported() {
			return &errs.VersionError{
				Found:     byte(v),
				Supported: []byte{byte(format.Version04), byte(format.Version05)},
			}
		}
		e.version = v

		return nil
	})
}

// WithValidateCanonical makes Encode reject records that are not already in
// canonical form instead of sorting them.
func WithValidateCanonical(validate bool) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.validateCanonical = validate
	})
}

// WithEncoderMaxDepth sets the nesting depth limit.
func WithEncoderMaxDepth(maxDepth int) EncoderOption {
	return options.New(func(e *Encoder) error {
		if maxDepth < 1 {
			return fmt.Errorf("%w: max depth must be at least 1, got %d", errs.ErrInvalidValue, maxDepth)
		}
		e.maxDepth = maxDepth

		return nil
	})
}

// WithMaxRecordSize caps the encoded frame size in bytes. Zero means
// unlimited.
func WithMaxRecordSize(maxSize int) EncoderOption {
	return options.New(func(e *Encoder) error {
		if maxSize < 0 {
			return fmt.Errorf("%w: max record size must not be negative, got %d", errs.ErrInvalidValue, maxSize)
		}
		e.maxRecordSize = maxSize

		return nil
	})
}

// WithFrameFlags sets the header flags byte. The codec itself assigns no
// meaning to it.
func WithFrameFlags(flags byte) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.flags = flags
	})
}

// NewEncoder creates an Encoder with the given options. The defaults
// select the version per record, sort fields, and apply the default depth
// limit with no size cap.
func NewEncoder(opts ...EncoderOption) (*Encoder, error) {
	enc := &Encoder{maxDepth: DefaultMaxDepth}
	if err := options.Apply(enc, opts...); err != nil {
		return nil, err
	}

	return enc, nil
}

// Encode serializes a record into a canonical binary frame.
//
// Fields are emitted in ascending FID order. With canonical validation
// enabled, a record that is unsorted or holds duplicate FIDs fails with
// ErrCanonicalViolation; otherwise fields are stably sorted first and only
// duplicates are rejected. Nested records are sorted at every level either
// way.
func (e *Encoder) Encode(rec *record.Record) ([]byte, error) {
	if rec == nil {
		rec = record.New()
	}

	var fields []record.Field
	if e.validateCanonical {
		if err := rec.ValidateCanonical(); err != nil {
			return nil, err
		}
		fields = rec.Fields()
	} else {
		fields = rec.SortedFields()
		for i := 1; i < len(fields); i++ {
			if fields[i-1].FID == fields[i].FID {
				return nil, fmt.Errorf("%w: duplicate FID %d", errs.ErrInvalidFID, fields[i].FID)
			}
		}
	}

	version := e.version
	if version == 0 {
		version = format.Version04
		if rec.HasExtended() {
			version = format.Version05
		}
	} else if !version.AllowsExtended() {
		if err := checkScalarOnly(fields); err != nil {
			return nil, err
		}
	}

	if depth := rec.Depth(); depth > e.maxDepth {
		return nil, &errs.NestingDepthError{Depth: depth, Max: e.maxDepth}
	}

	buf := pool.GetFrameBuffer()
	defer pool.PutFrameBuffer(buf)

	out, err := e.appendFrame(buf.Bytes(), version, fields)
	if err != nil {
		return nil, err
	}
	if e.maxRecordSize > 0 && len(out) > e.maxRecordSize {
		return nil, &errs.RecordSizeError{Size: len(out), Max: e.maxRecordSize}
	}

	// The pooled buffer goes back on return, so hand out a copy.
	buf.B = out
	encoded := make([]byte, len(out))
	copy(encoded, out)

	return encoded, nil
}

func (e *Encoder) appendFrame(dst []byte, version format.Version, fields []record.Field) ([]byte, error) {
	dst = append(dst, byte(version), e.flags)
	dst = encoding.AppendUvarint(dst, uint64(len(fields)))

	var err error
	for _, f := range fields {
		if dst, err = appendEntry(dst, f, 0, e.maxDepth); err != nil {
			return nil, err
		}
	}

	return dst, nil
}

// checkScalarOnly rejects fields a version 0x04 frame cannot carry.
func checkScalarOnly(fields []record.Field) error {
	for _, f := range fields {
		tag := f.Value.Tag()
		if !tag.IsExtended() {
			continue
		}
		if tag.IsNested() {
			return fmt.Errorf("%w: field %d has tag %s",
				errs.ErrNestedStructureNotSupported, f.FID, tag)
		}

		return fmt.Errorf("%w: tag %s in field %d requires version %s",
			errs.ErrUnsupportedVersion, tag, f.FID, format.Version05)
	}

	return nil
}
