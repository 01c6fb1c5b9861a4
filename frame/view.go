package frame

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/lnmplang/lnmp/encoding"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
	"github.com/lnmplang/lnmp/record"
)

// RecordView is a zero-copy decode of a binary frame. String, array and
// hybrid payload accessors return sub-slices of the input buffer instead
// of owned copies, so the view is only valid while that buffer stays alive
// and unmodified.
//
// The whole frame is validated during DecodeView; the per-field accessors
// never re-validate.
type RecordView struct {
	buf     []byte // backing buffer, kept so payload slices stay reachable
	fields  []FieldView
	version format.Version
	flags   byte
}

// FieldView is one entry inside a RecordView. Its payload aliases the
// frame buffer.
type FieldView struct {
	payload []byte
	fid     uint16
	tag     format.TypeTag
}

// DecodeView parses a binary frame without copying payload bytes.
//
// The view path requires canonical frames: FIDs must be strictly
// ascending, since GetField binary-searches over that order. The frame is
// fully validated up front, including nested bodies, so accessor calls on
// the result cannot fail.
func (d *Decoder) DecodeView(data []byte) (*RecordView, error) {
	version, flags, n, err := d.parseHeader(data)
	if err != nil {
		return nil, err
	}

	o := decodeOpts{
		version:          version,
		strict:           d.strict,
		validateOrdering: true,
		maxDepth:         d.maxDepth,
	}

	count, cn, err := encoding.Uvarint(data[n:], o.strict)
	if err != nil {
		return nil, err
	}
	n += cn

	fields := make([]FieldView, 0, int(min(count, uint64(len(data)-n))))
	prev := -1
	for i := uint64(0); i < count; i++ {
		if len(data)-n < 3 {
			return nil, &errs.EOFError{Expected: n + 3, Found: len(data)}
		}
		fid := fidEngine.Uint16(data[n:])
		tag := format.TypeTag(data[n+2])
		if !tag.IsValid() {
			return nil, fmt.Errorf("%w: 0x%02X in field %d", errs.ErrInvalidTypeTag, byte(tag), fid)
		}
		if tag.IsExtended() && !version.AllowsExtended() {
			if tag.IsNested() {
				return nil, fmt.Errorf("%w: field %d has tag %s",
					errs.ErrNestedStructureNotSupported, fid, tag)
			}

			return nil, fmt.Errorf("%w: tag %s in field %d requires version %s",
				errs.ErrUnsupportedVersion, tag, fid, format.Version05)
		}
		if int(fid) <= prev {
			if int(fid) == prev {
				return nil, fmt.Errorf("%w: duplicate FID %d", errs.ErrInvalidFID, fid)
			}

			return nil, fmt.Errorf("%w: FID %d follows %d", errs.ErrCanonicalViolation, fid, prev)
		}
		prev = int(fid)

		vn, err := walkValue(data[n+3:], fid, tag, o, 0)
		if err != nil {
			return nil, err
		}
		fields = append(fields, FieldView{
			fid:     fid,
			tag:     tag,
			payload: data[n+3 : n+3+vn],
		})
		n += 3 + vn
	}

	if d.strict && n != len(data) {
		return nil, &errs.TrailingDataError{BytesRemaining: len(data) - n}
	}

	return &RecordView{buf: data, fields: fields, version: version, flags: flags}, nil
}

// Version returns the frame version byte.
func (v *RecordView) Version() format.Version {
	return v.version
}

// Flags returns the frame header flags byte.
func (v *RecordView) Flags() byte {
	return v.flags
}

// Len returns the number of top-level fields.
func (v *RecordView) Len() int {
	return len(v.fields)
}

// Fields returns the field views in ascending FID order.
func (v *RecordView) Fields() []FieldView {
	return v.fields
}

// GetField binary-searches the ascending FID index built during decode.
func (v *RecordView) GetField(fid uint16) (FieldView, bool) {
	i := sort.Search(len(v.fields), func(i int) bool {
		return v.fields[i].fid >= fid
	})
	if i < len(v.fields) && v.fields[i].fid == fid {
		return v.fields[i], true
	}

	return FieldView{}, false
}

// ToRecord converts the view into an owned record. The result no longer
// references the frame buffer and equals Decode of the same bytes field
// for field.
func (v *RecordView) ToRecord() (*record.Record, error) {
	rec := record.New()
	for _, f := range v.fields {
		val, err := f.Value()
		if err != nil {
			return nil, err
		}
		rec.AddField(f.fid, val)
	}

	return rec, nil
}

// FID returns the field identifier.
func (f FieldView) FID() uint16 {
	return f.fid
}

// Tag returns the field's type tag.
func (f FieldView) Tag() format.TypeTag {
	return f.tag
}

// Payload returns the raw type-specific payload bytes, aliasing the frame
// buffer.
func (f FieldView) Payload() []byte {
	return f.payload
}

// Int returns the integer payload. Zero for other tags.
func (f FieldView) Int() int64 {
	if f.tag != format.TagInt {
		return 0
	}
	v, _, _ := encoding.Varint(f.payload, false)

	return v
}

// Float returns the floating-point payload. Zero for other tags.
func (f FieldView) Float() float64 {
	if f.tag != format.TagFloat {
		return 0
	}

	return math.Float64frombits(wireEngine.Uint64(f.payload))
}

// Bool returns the boolean payload. False for other tags.
func (f FieldView) Bool() bool {
	return f.tag == format.TagBool && f.payload[0] == 0x01
}

// StringBytes returns the UTF-8 bytes of a string payload without copying.
// Nil for other tags.
func (f FieldView) StringBytes() []byte {
	if f.tag != format.TagString {
		return nil
	}
	length, n, _ := encoding.Uvarint(f.payload, false)

	return f.payload[n : n+int(length)]
}

// Str returns the string payload as an owned string. Empty for other tags.
func (f FieldView) Str() string {
	return string(f.StringBytes())
}

// Strings returns the elements of a string array payload as borrowed byte
// slices. Nil for other tags.
func (f FieldView) Strings() [][]byte {
	if f.tag != format.TagStringArray {
		return nil
	}

	count, n, _ := encoding.Uvarint(f.payload, false)
	out := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		length, ln, _ := encoding.Uvarint(f.payload[n:], false)
		n += ln
		out = append(out, f.payload[n:n+int(length)])
		n += int(length)
	}

	return out
}

// Ints returns the decoded elements of an integer array payload. Nil for
// other tags.
func (f FieldView) Ints() []int64 {
	if f.tag != format.TagIntArray {
		return nil
	}

	count, n, _ := encoding.Uvarint(f.payload, false)
	out := make([]int64, 0, count)
	for i := uint64(0); i < count; i++ {
		v, vn, _ := encoding.Varint(f.payload[n:], false)
		out = append(out, v)
		n += vn
	}

	return out
}

// Floats returns the decoded elements of a float array payload. Nil for
// other tags.
func (f FieldView) Floats() []float64 {
	if f.tag != format.TagFloatArray {
		return nil
	}

	count, n, _ := encoding.Uvarint(f.payload, false)
	out := make([]float64, 0, count)
	for i := uint64(0); i < count; i++ {
		out = append(out, math.Float64frombits(wireEngine.Uint64(f.payload[n+int(i)*8:])))
	}

	return out
}

// Bools returns the decoded elements of a boolean array payload. Nil for
// other tags.
func (f FieldView) Bools() []bool {
	if f.tag != format.TagBoolArray {
		return nil
	}

	count, n, _ := encoding.Uvarint(f.payload, false)
	out := make([]bool, 0, count)
	for i := uint64(0); i < count; i++ {
		out = append(out, f.payload[n+int(i)] == 0x01)
	}

	return out
}

// Blob returns the payload of an embedding variant without copying. Nil
// for other tags.
func (f FieldView) Blob() []byte {
	switch f.tag {
	case format.TagEmbedding, format.TagEmbeddingDelta, format.TagQuantizedEmbedding:
		length, n, _ := encoding.Uvarint(f.payload, false)

		return f.payload[n : n+int(length)]
	default:
		return nil
	}
}

// Hybrid returns the packed numeric array payload. Dense arrays alias the
// frame buffer; sparse arrays unpack their interleaved element bytes into
// a fresh slice. ok is false for other tags.
func (f FieldView) Hybrid() (record.HybridArray, bool) {
	if f.tag != format.TagHybridNumericArray {
		return record.HybridArray{}, false
	}

	flags := f.payload[0]
	dtype := format.NumericDType(flags & 0x03)
	sparse := flags&hybridSparseBit != 0
	size := dtype.Size()

	dim64, n, _ := encoding.Uvarint(f.payload[1:], false)
	n++
	dim := int(dim64)

	if !sparse {
		h, _ := record.NewHybridDense(dtype, f.payload[n:n+dim*size])

		return h, true
	}

	pairs64, pn, _ := encoding.Uvarint(f.payload[n:], false)
	n += pn
	pairs := int(pairs64)
	indices := make([]uint32, 0, pairs)
	data := make([]byte, 0, pairs*size)
	for i := 0; i < pairs; i++ {
		idx, in, _ := encoding.Uvarint(f.payload[n:], false)
		n += in
		indices = append(indices, uint32(idx))
		data = append(data, f.payload[n:n+size]...)
		n += size
	}

	h, _ := record.NewHybridSparse(dtype, dim, indices, data)

	return h, true
}

// NestedView decodes a nested record payload into child views that keep
// aliasing the frame buffer. ok is false for other tags; for nested
// arrays, views holds one entry per element.
func (f FieldView) NestedView() (views []*RecordView, ok bool) {
	switch f.tag {
	case format.TagNestedRecord:
		body, _, _ := decodeLengthPrefixed(f.payload, false)

		return []*RecordView{nestedBodyView(body)}, true
	case format.TagNestedArray:
		count, n, _ := encoding.Uvarint(f.payload, false)
		views = make([]*RecordView, 0, count)
		for i := uint64(0); i < count; i++ {
			body, bn, _ := decodeLengthPrefixed(f.payload[n:], false)
			views = append(views, nestedBodyView(body))
			n += bn
		}

		return views, true
	default:
		return nil, false
	}
}

// Value decodes this field into an owned record.Value.
func (f FieldView) Value() (record.Value, error) {
	o := decodeOpts{version: format.Version05, maxDepth: DefaultMaxDepth}
	val, _, err := decodeValue(f.payload, f.fid, f.tag, o, 0)
	if err != nil {
		return record.Value{}, err
	}

	return val, nil
}

// nestedBodyView builds a RecordView over an already validated nested
// record body.
func nestedBodyView(body []byte) *RecordView {
	count, n, _ := encoding.Uvarint(body, false)
	fields := make([]FieldView, 0, count)
	for i := uint64(0); i < count; i++ {
		fid := fidEngine.Uint16(body[n:])
		tag := format.TypeTag(body[n+2])
		o := decodeOpts{version: format.Version05, maxDepth: DefaultMaxDepth}
		vn, _ := walkValue(body[n+3:], fid, tag, o, 0)
		fields = append(fields, FieldView{fid: fid, tag: tag, payload: body[n+3 : n+3+vn]})
		n += 3 + vn
	}

	return &RecordView{buf: body, fields: fields, version: format.Version05}
}

// walkValue validates one payload without materializing it and returns the
// bytes consumed. It mirrors decodeValue exactly; the two must agree on
// every layout rule.
//
//nolint:gocyclo // one arm per wire type
func walkValue(buf []byte, fid uint16, tag format.TypeTag, o decodeOpts, depth int) (int, error) {
	switch tag {
	case format.TagInt:
		_, n, err := encoding.Varint(buf, o.strict)

		return n, err

	case format.TagFloat:
		if len(buf) < 8 {
			return 0, &errs.EOFError{Expected: 8, Found: len(buf)}
		}

		return 8, nil

	case format.TagBool:
		if len(buf) < 1 {
			return 0, &errs.EOFError{Expected: 1, Found: len(buf)}
		}
		if buf[0] > 0x01 {
			return 0, &errs.ValueError{
				FieldID: fid,
				TypeTag: byte(tag),
				Reason:  fmt.Sprintf("boolean byte must be 0x00 or 0x01, got 0x%02X", buf[0]),
			}
		}

		return 1, nil

	case format.TagString:
		return walkString(buf, fid, o.strict)

	case format.TagStringArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return 0, err
		}
		for i := 0; i < count; i++ {
			sn, err := walkString(buf[n:], fid, o.strict)
			if err != nil {
				return 0, err
			}
			n += sn
		}

		return n, nil

	case format.TagIntArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return 0, err
		}
		for i := 0; i < count; i++ {
			_, vn, err := encoding.Varint(buf[n:], o.strict)
			if err != nil {
				return 0, err
			}
			n += vn
		}

		return n, nil

	case format.TagFloatArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return 0, err
		}
		if len(buf) < n+count*8 {
			return 0, &errs.EOFError{Expected: n + count*8, Found: len(buf)}
		}

		return n + count*8, nil

	case format.TagBoolArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return 0, err
		}
		if len(buf) < n+count {
			return 0, &errs.EOFError{Expected: n + count, Found: len(buf)}
		}
		for i := 0; i < count; i++ {
			if buf[n+i] > 0x01 {
				return 0, &errs.ValueError{
					FieldID: fid,
					TypeTag: byte(tag),
					Reason:  fmt.Sprintf("boolean byte must be 0x00 or 0x01, got 0x%02X", buf[n+i]),
				}
			}
		}

		return n + count, nil

	case format.TagNestedRecord:
		body, n, err := decodeLengthPrefixed(buf, o.strict)
		if err != nil {
			return 0, err
		}
		if err := walkNestedBody(body, o, depth+1); err != nil {
			return 0, err
		}

		return n, nil

	case format.TagNestedArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return 0, err
		}
		for i := 0; i < count; i++ {
			body, bn, err := decodeLengthPrefixed(buf[n:], o.strict)
			if err != nil {
				return 0, err
			}
			if err := walkNestedBody(body, o, depth+1); err != nil {
				return 0, err
			}
			n += bn
		}

		return n, nil

	case format.TagHybridNumericArray:
		return walkHybrid(buf, fid, o.strict)

	case format.TagEmbedding, format.TagEmbeddingDelta, format.TagQuantizedEmbedding:
		_, n, err := decodeLengthPrefixed(buf, o.strict)

		return n, err

	default:
		return 0, fmt.Errorf("%w: 0x%02X in field %d", errs.ErrInvalidTypeTag, byte(tag), fid)
	}
}

// walkHybrid validates a hybrid payload without unpacking element bytes.
func walkHybrid(buf []byte, fid uint16, strict bool) (int, error) {
	if len(buf) < 1 {
		return 0, &errs.EOFError{Expected: 1, Found: len(buf)}
	}

	flags := buf[0]
	dtype := format.NumericDType(flags & 0x03)
	sparse := flags&hybridSparseBit != 0
	if flags&^(0x03|hybridSparseBit) != 0 {
		return 0, &errs.ValueError{
			FieldID: fid,
			TypeTag: byte(format.TagHybridNumericArray),
			Reason:  fmt.Sprintf("unknown hybrid flag bits 0x%02X", flags),
		}
	}

	dim64, n, err := encoding.Uvarint(buf[1:], strict)
	if err != nil {
		return 0, err
	}
	n++
	if dim64 > math.MaxUint32 {
		return 0, &errs.ValueError{
			FieldID: fid,
			TypeTag: byte(format.TagHybridNumericArray),
			Reason:  fmt.Sprintf("hybrid dimension %d out of range", dim64),
		}
	}
	dim := int(dim64)
	size := dtype.Size()

	if !sparse {
		if dim64 > uint64((len(buf)-n)/size) {
			return 0, &errs.EOFError{Expected: n + dim*size, Found: len(buf)}
		}

		return n + dim*size, nil
	}

	pairs64, pn, err := encoding.Uvarint(buf[n:], strict)
	if err != nil {
		return 0, err
	}
	n += pn
	if pairs64 > uint64(len(buf)-n) {
		return 0, &errs.ValueError{
			FieldID: fid,
			TypeTag: byte(format.TagHybridNumericArray),
			Reason:  fmt.Sprintf("declared pair count %d exceeds remaining %d bytes", pairs64, len(buf)-n),
		}
	}

	prev := -1
	for i := uint64(0); i < pairs64; i++ {
		idx, in, err := encoding.Uvarint(buf[n:], strict)
		if err != nil {
			return 0, err
		}
		if idx >= dim64 || int(idx) <= prev {
			return 0, &errs.ValueError{
				FieldID: fid,
				TypeTag: byte(format.TagHybridNumericArray),
				Reason:  fmt.Sprintf("sparse index %d invalid for dimension %d", idx, dim64),
			}
		}
		prev = int(idx)
		n += in
		if len(buf) < n+size {
			return 0, &errs.EOFError{Expected: n + size, Found: len(buf)}
		}
		n += size
	}

	return n, nil
}

func walkString(buf []byte, fid uint16, strict bool) (int, error) {
	length, n, err := encoding.Uvarint(buf, strict)
	if err != nil {
		return 0, err
	}
	if uint64(len(buf)-n) < length {
		return 0, &errs.EOFError{Expected: n + int(length), Found: len(buf)}
	}
	end := n + int(length)
	if !utf8.Valid(buf[n:end]) {
		return 0, &errs.Utf8Error{FieldID: fid}
	}

	return end, nil
}

// walkNestedBody validates ENTRY_COUNT | ENTRY* in place, enforcing the
// same duplicate, ordering, and exact-consumption rules as an owned
// decode, plus the view path's mandatory ascending order.
func walkNestedBody(body []byte, o decodeOpts, depth int) error {
	if depth > o.maxDepth {
		return &errs.NestingDepthError{Depth: depth, Max: o.maxDepth}
	}

	count, n, err := encoding.Uvarint(body, o.strict)
	if err != nil {
		return err
	}

	prev := -1
	for i := uint64(0); i < count; i++ {
		if len(body)-n < 3 {
			return &errs.EOFError{Expected: n + 3, Found: len(body)}
		}
		fid := fidEngine.Uint16(body[n:])
		tag := format.TypeTag(body[n+2])
		if !tag.IsValid() {
			return fmt.Errorf("%w: 0x%02X in field %d", errs.ErrInvalidTypeTag, byte(tag), fid)
		}
		if int(fid) <= prev {
			if int(fid) == prev {
				return fmt.Errorf("%w: duplicate FID %d in nested record", errs.ErrInvalidFID, fid)
			}

			return fmt.Errorf("%w: FID %d follows %d in nested record",
				errs.ErrCanonicalViolation, fid, prev)
		}
		prev = int(fid)

		vn, err := walkValue(body[n+3:], fid, tag, o, depth)
		if err != nil {
			return err
		}
		n += 3 + vn
	}

	if n != len(body) {
		return fmt.Errorf("%w: %d trailing bytes in nested record body",
			errs.ErrInvalidNestedStructure, len(body)-n)
	}

	return nil
}
