package frame

import (
	"fmt"

	"github.com/lnmplang/lnmp/encoding"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
	"github.com/lnmplang/lnmp/internal/options"
	"github.com/lnmplang/lnmp/record"
)

// Decoder parses binary frames back into records. A configured Decoder is
// immutable and safe for concurrent use.
//
// Decoding is atomic: any failure returns a nil record, never a partial
// one. Duplicate FIDs within one nesting level are rejected in every mode.
type Decoder struct {
	maxDepth         int
	maxRecordSize    int // 0 = unlimited
	strict           bool
	validateOrdering bool
}

// DecoderOption configures a Decoder.
type DecoderOption = options.Option[*Decoder]

// WithValidateOrdering makes Decode require strictly ascending FIDs, the
// canonical order the Encoder emits.
func WithValidateOrdering(validate bool) DecoderOption {
	return options.NoError(func(d *Decoder) {
		d.validateOrdering = validate
	})
}

// WithStrictParsing rejects trailing bytes after the last entry and
// non-minimal varint encodings.
func WithStrictParsing(strict bool) DecoderOption {
	return options.NoError(func(d *Decoder) {
		d.strict = strict
	})
}

// WithMaxDepth sets the nesting depth limit.
func WithMaxDepth(maxDepth int) DecoderOption {
	return options.New(func(d *Decoder) error {
		if maxDepth < 1 {
			return fmt.Errorf("%w: max depth must be at least 1, got %d", errs.ErrInvalidValue, maxDepth)
		}
		d.maxDepth = maxDepth

		return nil
	})
}

// WithDecoderMaxRecordSize caps the accepted frame size in bytes. Zero
// means unlimited.
func WithDecoderMaxRecordSize(maxSize int) DecoderOption {
	return options.New(func(d *Decoder) error {
		if maxSize < 0 {
			return fmt.Errorf("%w: max record size must not be negative, got %d", errs.ErrInvalidValue, maxSize)
		}
		d.maxRecordSize = maxSize

		return nil
	})
}

// NewDecoder creates a Decoder with the given options. The defaults accept
// any entry order, tolerate trailing bytes, and apply the default depth
// limit with no size cap.
func NewDecoder(opts ...DecoderOption) (*Decoder, error) {
	dec := &Decoder{maxDepth: DefaultMaxDepth}
	if err := options.Apply(dec, opts...); err != nil {
		return nil, err
	}

	return dec, nil
}

// Decode parses a binary frame into an owned record.
func (d *Decoder) Decode(data []byte) (*record.Record, error) {
	version, _, n, err := d.parseHeader(data)
	if err != nil {
		return nil, err
	}

	o := decodeOpts{
		version:          version,
		strict:           d.strict,
		validateOrdering: d.validateOrdering,
		maxDepth:         d.maxDepth,
	}

	count, cn, err := encoding.Uvarint(data[n:], o.strict)
	if err != nil {
		return nil, err
	}
	n += cn

	rec := record.New()
	seen := make(map[uint16]struct{}, count)
	prev := -1
	for i := uint64(0); i < count; i++ {
		f, fn, err := decodeEntry(data[n:], o, 0)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[f.FID]; dup {
			return nil, fmt.Errorf("%w: duplicate FID %d", errs.ErrInvalidFID, f.FID)
		}
		seen[f.FID] = struct{}{}
		if o.validateOrdering && int(f.FID) <= prev {
			return nil, fmt.Errorf("%w: FID %d follows %d", errs.ErrCanonicalViolation, f.FID, prev)
		}
		prev = int(f.FID)
		rec.AddField(f.FID, f.Value)
		n += fn
	}

	if d.strict && n != len(data) {
		return nil, &errs.TrailingDataError{BytesRemaining: len(data) - n}
	}

	return rec, nil
}

// parseHeader validates the size cap and fixed header, returning the
// version, flags, and bytes consumed.
func (d *Decoder) parseHeader(data []byte) (format.Version, byte, int, error) {
	if d.maxRecordSize > 0 && len(data) > d.maxRecordSize {
		return 0, 0, 0, &errs.RecordSizeError{Size: len(data), Max: d.maxRecordSize}
	}
	if len(data) < 2 {
		return 0, 0, 0, &errs.EOFError{Expected: 2, Found: len(data)}
	}

	version := format.Version(data[0])
	if !version.IsSupported() {
		return 0, 0, 0, &errs.VersionError{
			Found:     data[0],
			Supported: []byte{byte(format.Version04), byte(format.Version05)},
		}
	}

	return version, data[1], 2, nil
}
