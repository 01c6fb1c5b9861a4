package frame

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/lnmplang/lnmp/encoding"
	"github.com/lnmplang/lnmp/endian"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
	"github.com/lnmplang/lnmp/record"
)

// DefaultMaxDepth is the nesting depth limit applied when none is
// configured.
const DefaultMaxDepth = 32

var (
	// Value payloads, checksums and stream identifiers are little-endian.
	wireEngine = endian.GetLittleEndianEngine()
	// FIDs are fixed two-byte big-endian so frames sort bytewise by field.
	fidEngine = endian.GetBigEndianEngine()
)

const hybridSparseBit = 0x04

// appendEntry appends one FID | TAG | payload entry. depth is the nesting
// level the entry lives at; top-level entries are depth 0.
func appendEntry(dst []byte, f record.Field, depth, maxDepth int) ([]byte, error) {
	tag := f.Value.Tag()
	if !tag.IsValid() {
		return nil, fmt.Errorf("%w: 0x%02X", errs.ErrInvalidTypeTag, byte(tag))
	}

	dst = fidEngine.AppendUint16(dst, f.FID)
	dst = append(dst, byte(tag))

	return appendValue(dst, f.FID, f.Value, depth, maxDepth)
}

// appendValue appends the type-specific payload for a value whose tag byte
// has already been written.
func appendValue(dst []byte, fid uint16, v record.Value, depth, maxDepth int) ([]byte, error) {
	switch v.Tag() {
	case format.TagInt:
		return encoding.AppendVarint(dst, v.Int()), nil

	case format.TagFloat:
		return wireEngine.AppendUint64(dst, math.Float64bits(v.Float())), nil

	case format.TagBool:
		if v.Bool() {
			return append(dst, 0x01), nil
		}

		return append(dst, 0x00), nil

	case format.TagString:
		return appendString(dst, fid, v.Str())

	case format.TagStringArray:
		strs := v.Strings()
		dst = encoding.AppendUvarint(dst, uint64(len(strs)))
		var err error
		for _, s := range strs {
			if dst, err = appendString(dst, fid, s); err != nil {
				return nil, err
			}
		}

		return dst, nil

	case format.TagIntArray:
		ints := v.Ints()
		dst = encoding.AppendUvarint(dst, uint64(len(ints)))
		for _, n := range ints {
			dst = encoding.AppendVarint(dst, n)
		}

		return dst, nil

	case format.TagFloatArray:
		floats := v.Floats()
		dst = encoding.AppendUvarint(dst, uint64(len(floats)))
		for _, f := range floats {
			dst = wireEngine.AppendUint64(dst, math.Float64bits(f))
		}

		return dst, nil

	case format.TagBoolArray:
		bools := v.Bools()
		dst = encoding.AppendUvarint(dst, uint64(len(bools)))
		for _, b := range bools {
			if b {
				dst = append(dst, 0x01)
			} else {
				dst = append(dst, 0x00)
			}
		}

		return dst, nil

	case format.TagNestedRecord:
		body, err := appendNestedBody(nil, v.Record(), depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
		dst = encoding.AppendUvarint(dst, uint64(len(body)))

		return append(dst, body...), nil

	case format.TagNestedArray:
		recs := v.Records()
		dst = encoding.AppendUvarint(dst, uint64(len(recs)))
		for i := range recs {
			body, err := appendNestedBody(nil, &recs[i], depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			dst = encoding.AppendUvarint(dst, uint64(len(body)))
			dst = append(dst, body...)
		}

		return dst, nil

	case format.TagHybridNumericArray:
		return appendHybrid(dst, v.Hybrid())

	case format.TagEmbedding, format.TagEmbeddingDelta, format.TagQuantizedEmbedding:
		blob := v.Blob()
		dst = encoding.AppendUvarint(dst, uint64(len(blob)))

		return append(dst, blob...), nil

	default:
		return nil, fmt.Errorf("%w: 0x%02X", errs.ErrInvalidTypeTag, byte(v.Tag()))
	}
}

func appendString(dst []byte, fid uint16, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, &errs.Utf8Error{FieldID: fid}
	}
	dst = encoding.AppendUvarint(dst, uint64(len(s)))

	return append(dst, s...), nil
}

// appendNestedBody appends ENTRY_COUNT | ENTRY* for a nested record.
// Nested bodies are always emitted in canonical order regardless of the
// record's insertion order, so nesting never breaks output determinism.
func appendNestedBody(dst []byte, rec *record.Record, depth, maxDepth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, &errs.NestingDepthError{Depth: depth, Max: maxDepth}
	}
	if rec == nil {
		rec = record.New()
	}

	fields := rec.SortedFields()
	for i := 1; i < len(fields); i++ {
		if fields[i-1].FID == fields[i].FID {
			return nil, fmt.Errorf("%w: duplicate FID %d in nested record",
				errs.ErrInvalidFID, fields[i].FID)
		}
	}

	dst = encoding.AppendUvarint(dst, uint64(len(fields)))
	var err error
	for _, f := range fields {
		if dst, err = appendEntry(dst, f, depth, maxDepth); err != nil {
			return nil, err
		}
	}

	return dst, nil
}

// appendHybrid appends FLAGS | DIM | elements (dense) or
// FLAGS | DIM | PAIR_COUNT | (INDEX, element)* (sparse). Element bytes are
// already packed little-endian inside the HybridArray.
func appendHybrid(dst []byte, h record.HybridArray) ([]byte, error) {
	if !h.DType().IsValid() {
		return nil, fmt.Errorf("%w: unknown hybrid dtype 0x%02X", errs.ErrInvalidValue, byte(h.DType()))
	}

	flags := byte(h.DType())
	if h.IsSparse() {
		flags |= hybridSparseBit
	}
	dst = append(dst, flags)
	dst = encoding.AppendUvarint(dst, uint64(h.Dim()))

	if !h.IsSparse() {
		return append(dst, h.Data()...), nil
	}

	size := h.DType().Size()
	indices := h.Indices()
	data := h.Data()
	dst = encoding.AppendUvarint(dst, uint64(len(indices)))
	for i, idx := range indices {
		dst = encoding.AppendUvarint(dst, uint64(idx))
		dst = append(dst, data[i*size:(i+1)*size]...)
	}

	return dst, nil
}

// decodeOpts carries the decoder settings that entry decoding needs at
// every nesting level.
type decodeOpts struct {
	version          format.Version
	strict           bool
	validateOrdering bool
	maxDepth         int
}

// decodeEntry decodes one FID | TAG | payload entry and returns the field
// and the number of bytes consumed.
func decodeEntry(buf []byte, o decodeOpts, depth int) (record.Field, int, error) {
	if len(buf) < 3 {
		return record.Field{}, 0, &errs.EOFError{Expected: 3, Found: len(buf)}
	}

	fid := fidEngine.Uint16(buf)
	tag := format.TypeTag(buf[2])

	if !tag.IsValid() {
		return record.Field{}, 0, fmt.Errorf("%w: 0x%02X in field %d", errs.ErrInvalidTypeTag, byte(tag), fid)
	}
	if tag.IsExtended() && !o.version.AllowsExtended() {
		if tag.IsNested() {
			return record.Field{}, 0, fmt.Errorf("%w: field %d has tag %s",
				errs.ErrNestedStructureNotSupported, fid, tag)
		}

		return record.Field{}, 0, fmt.Errorf("%w: tag %s in field %d requires version %s",
			errs.ErrUnsupportedVersion, tag, fid, format.Version05)
	}

	val, n, err := decodeValue(buf[3:], fid, tag, o, depth)
	if err != nil {
		return record.Field{}, 0, err
	}

	return record.Field{FID: fid, Value: val}, 3 + n, nil
}

// decodeValue decodes the type-specific payload following a tag byte.
//
//nolint:gocyclo // one arm per wire type
func decodeValue(buf []byte, fid uint16, tag format.TypeTag, o decodeOpts, depth int) (record.Value, int, error) {
	switch tag {
	case format.TagInt:
		v, n, err := encoding.Varint(buf, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}

		return record.Int(v), n, nil

	case format.TagFloat:
		if len(buf) < 8 {
			return record.Value{}, 0, &errs.EOFError{Expected: 8, Found: len(buf)}
		}

		return record.Float(math.Float64frombits(wireEngine.Uint64(buf))), 8, nil

	case format.TagBool:
		if len(buf) < 1 {
			return record.Value{}, 0, &errs.EOFError{Expected: 1, Found: len(buf)}
		}
		switch buf[0] {
		case 0x00:
			return record.Bool(false), 1, nil
		case 0x01:
			return record.Bool(true), 1, nil
		default:
			return record.Value{}, 0, &errs.ValueError{
				FieldID: fid,
				TypeTag: byte(tag),
				Reason:  fmt.Sprintf("boolean byte must be 0x00 or 0x01, got 0x%02X", buf[0]),
			}
		}

	case format.TagString:
		s, n, err := decodeString(buf, fid, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}

		return record.String(s), n, nil

	case format.TagStringArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}
		strs := make([]string, 0, count)
		for i := 0; i < count; i++ {
			s, sn, err := decodeString(buf[n:], fid, o.strict)
			if err != nil {
				return record.Value{}, 0, err
			}
			strs = append(strs, s)
			n += sn
		}

		return record.StringArray(strs), n, nil

	case format.TagIntArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}
		ints := make([]int64, 0, count)
		for i := 0; i < count; i++ {
			v, vn, err := encoding.Varint(buf[n:], o.strict)
			if err != nil {
				return record.Value{}, 0, err
			}
			ints = append(ints, v)
			n += vn
		}

		return record.IntArray(ints), n, nil

	case format.TagFloatArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}
		if len(buf) < n+count*8 {
			return record.Value{}, 0, &errs.EOFError{Expected: n + count*8, Found: len(buf)}
		}
		floats := make([]float64, 0, count)
		for i := 0; i < count; i++ {
			floats = append(floats, math.Float64frombits(wireEngine.Uint64(buf[n+i*8:])))
		}

		return record.FloatArray(floats), n + count*8, nil

	case format.TagBoolArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}
		if len(buf) < n+count {
			return record.Value{}, 0, &errs.EOFError{Expected: n + count, Found: len(buf)}
		}
		bools := make([]bool, 0, count)
		for i := 0; i < count; i++ {
			switch buf[n+i] {
			case 0x00:
				bools = append(bools, false)
			case 0x01:
				bools = append(bools, true)
			default:
				return record.Value{}, 0, &errs.ValueError{
					FieldID: fid,
					TypeTag: byte(tag),
					Reason:  fmt.Sprintf("boolean byte must be 0x00 or 0x01, got 0x%02X", buf[n+i]),
				}
			}
		}

		return record.BoolArray(bools), n + count, nil

	case format.TagNestedRecord:
		body, n, err := decodeLengthPrefixed(buf, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}
		rec, err := decodeNestedBody(body, o, depth+1)
		if err != nil {
			return record.Value{}, 0, err
		}

		return record.Nested(rec), n, nil

	case format.TagNestedArray:
		count, n, err := decodeCount(buf, fid, tag, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}
		recs := make([]record.Record, 0, count)
		for i := 0; i < count; i++ {
			body, bn, err := decodeLengthPrefixed(buf[n:], o.strict)
			if err != nil {
				return record.Value{}, 0, err
			}
			rec, err := decodeNestedBody(body, o, depth+1)
			if err != nil {
				return record.Value{}, 0, err
			}
			recs = append(recs, *rec)
			n += bn
		}

		return record.NestedArray(recs), n, nil

	case format.TagHybridNumericArray:
		h, n, err := decodeHybrid(buf, fid, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}

		return record.Hybrid(h), n, nil

	case format.TagEmbedding, format.TagEmbeddingDelta, format.TagQuantizedEmbedding:
		body, n, err := decodeLengthPrefixed(buf, o.strict)
		if err != nil {
			return record.Value{}, 0, err
		}
		blob := make([]byte, len(body))
		copy(blob, body)

		switch tag {
		case format.TagEmbeddingDelta:
			return record.EmbeddingDelta(blob), n, nil
		case format.TagQuantizedEmbedding:
			return record.QuantizedEmbedding(blob), n, nil
		default:
			return record.Embedding(blob), n, nil
		}

	default:
		return record.Value{}, 0, fmt.Errorf("%w: 0x%02X in field %d", errs.ErrInvalidTypeTag, byte(tag), fid)
	}
}

// decodeString reads a varint length plus that many UTF-8 bytes.
func decodeString(buf []byte, fid uint16, strict bool) (string, int, error) {
	length, n, err := encoding.Uvarint(buf, strict)
	if err != nil {
		return "", 0, err
	}
	if uint64(len(buf)-n) < length {
		return "", 0, &errs.EOFError{Expected: n + int(length), Found: len(buf)}
	}
	end := n + int(length)
	raw := buf[n:end]
	if !utf8.Valid(raw) {
		return "", 0, &errs.Utf8Error{FieldID: fid}
	}

	return string(raw), end, nil
}

// decodeCount reads a varint element count and bounds it by the bytes that
// remain, so a hostile count cannot drive a huge allocation.
func decodeCount(buf []byte, fid uint16, tag format.TypeTag, strict bool) (int, int, error) {
	count, n, err := encoding.Uvarint(buf, strict)
	if err != nil {
		return 0, 0, err
	}
	if count > uint64(len(buf)-n) {
		return 0, 0, &errs.ValueError{
			FieldID: fid,
			TypeTag: byte(tag),
			Reason:  fmt.Sprintf("declared count %d exceeds remaining %d bytes", count, len(buf)-n),
		}
	}

	return int(count), n, nil
}

// decodeLengthPrefixed reads a varint byte length and returns the payload
// sub-slice plus total bytes consumed.
func decodeLengthPrefixed(buf []byte, strict bool) ([]byte, int, error) {
	length, n, err := encoding.Uvarint(buf, strict)
	if err != nil {
		return nil, 0, err
	}
	if uint64(len(buf)-n) < length {
		return nil, 0, &errs.EOFError{Expected: n + int(length), Found: len(buf)}
	}

	return buf[n : n+int(length)], n + int(length), nil
}

// decodeNestedBody decodes ENTRY_COUNT | ENTRY* and requires the body to be
// consumed exactly.
func decodeNestedBody(body []byte, o decodeOpts, depth int) (*record.Record, error) {
	if depth > o.maxDepth {
		return nil, &errs.NestingDepthError{Depth: depth, Max: o.maxDepth}
	}

	count, n, err := encoding.Uvarint(body, o.strict)
	if err != nil {
		return nil, err
	}

	rec := record.New()
	seen := make(map[uint16]struct{}, count)
	prev := -1
	for i := uint64(0); i < count; i++ {
		f, fn, err := decodeEntry(body[n:], o, depth)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[f.FID]; dup {
			return nil, fmt.Errorf("%w: duplicate FID %d in nested record", errs.ErrInvalidFID, f.FID)
		}
		seen[f.FID] = struct{}{}
		if o.validateOrdering && int(f.FID) <= prev {
			return nil, fmt.Errorf("%w: FID %d follows %d in nested record",
				errs.ErrCanonicalViolation, f.FID, prev)
		}
		prev = int(f.FID)
		rec.AddField(f.FID, f.Value)
		n += fn
	}

	if n != len(body) {
		return nil, fmt.Errorf("%w: %d trailing bytes in nested record body",
			errs.ErrInvalidNestedStructure, len(body)-n)
	}

	return rec, nil
}

// decodeHybrid decodes FLAGS | DIM | elements or FLAGS | DIM | PAIR_COUNT |
// (INDEX, element)*.
func decodeHybrid(buf []byte, fid uint16, strict bool) (record.HybridArray, int, error) {
	if len(buf) < 1 {
		return record.HybridArray{}, 0, &errs.EOFError{Expected: 1, Found: len(buf)}
	}

	flags := buf[0]
	dtype := format.NumericDType(flags & 0x03)
	sparse := flags&hybridSparseBit != 0
	if flags &^ (0x03 | hybridSparseBit) != 0 {
		return record.HybridArray{}, 0, &errs.ValueError{
			FieldID: fid,
			TypeTag: byte(format.TagHybridNumericArray),
			Reason:  fmt.Sprintf("unknown hybrid flag bits 0x%02X", flags),
		}
	}

	dim64, n, err := encoding.Uvarint(buf[1:], strict)
	if err != nil {
		return record.HybridArray{}, 0, err
	}
	n++ // flags byte
	if dim64 > math.MaxUint32 {
		return record.HybridArray{}, 0, &errs.ValueError{
			FieldID: fid,
			TypeTag: byte(format.TagHybridNumericArray),
			Reason:  fmt.Sprintf("hybrid dimension %d out of range", dim64),
		}
	}
	dim := int(dim64)
	size := dtype.Size()

	if !sparse {
		if dim64 > uint64((len(buf)-n)/size) {
			return record.HybridArray{}, 0, &errs.EOFError{Expected: n + dim*size, Found: len(buf)}
		}
		total := n + dim*size
		data := make([]byte, dim*size)
		copy(data, buf[n:total])
		h, err := record.NewHybridDense(dtype, data)
		if err != nil {
			return record.HybridArray{}, 0, err
		}

		return h, total, nil
	}

	pairs64, pn, err := encoding.Uvarint(buf[n:], strict)
	if err != nil {
		return record.HybridArray{}, 0, err
	}
	n += pn
	if pairs64 > uint64(len(buf)-n) {
		return record.HybridArray{}, 0, &errs.ValueError{
			FieldID: fid,
			TypeTag: byte(format.TagHybridNumericArray),
			Reason:  fmt.Sprintf("declared pair count %d exceeds remaining %d bytes", pairs64, len(buf)-n),
		}
	}

	pairs := int(pairs64)
	indices := make([]uint32, 0, pairs)
	data := make([]byte, 0, pairs*size)
	for i := 0; i < pairs; i++ {
		idx, in, err := encoding.Uvarint(buf[n:], strict)
		if err != nil {
			return record.HybridArray{}, 0, err
		}
		if idx > math.MaxUint32 {
			return record.HybridArray{}, 0, &errs.ValueError{
				FieldID: fid,
				TypeTag: byte(format.TagHybridNumericArray),
				Reason:  fmt.Sprintf("sparse index %d out of range", idx),
			}
		}
		n += in
		if len(buf) < n+size {
			return record.HybridArray{}, 0, &errs.EOFError{Expected: n + size, Found: len(buf)}
		}
		indices = append(indices, uint32(idx))
		data = append(data, buf[n:n+size]...)
		n += size
	}

	h, err := record.NewHybridSparse(dtype, dim, indices, data)
	if err != nil {
		return record.HybridArray{}, 0, err
	}

	return h, n, nil
}
