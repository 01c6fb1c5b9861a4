// Package record defines the in-memory data model: typed values, field
// assignments, and records built from them.
//
// A Value is a tagged union over every payload type the binary frame format
// can carry, from scalars up to nested records and packed numeric arrays.
// Values are immutable once constructed; the constructors copy nothing, so
// callers that hand a slice to a constructor must not mutate it afterwards.
package record

import (
	"bytes"

	"github.com/lnmplang/lnmp/format"
)

// Value holds one typed payload. The zero Value has no valid tag and is not
// encodable; always build values through the constructors.
type Value struct {
	tag    format.TypeTag
	intv   int64
	floatv float64
	boolv  bool
	str    string
	strs   []string
	ints   []int64
	floats []float64
	bools  []bool
	rec    *Record
	recs   []Record
	hybrid HybridArray
	blob   []byte
}

// Int creates an integer value.
func Int(v int64) Value {
	return Value{tag: format.TagInt, intv: v}
}

// Float creates a floating-point value.
func Float(v float64) Value {
	return Value{tag: format.TagFloat, floatv: v}
}

// Bool creates a boolean value.
func Bool(v bool) Value {
	return Value{tag: format.TagBool, boolv: v}
}

// String creates a string value. The string must be valid UTF-8 to encode.
func String(v string) Value {
	return Value{tag: format.TagString, str: v}
}

// StringArray creates a string array value.
func StringArray(v []string) Value {
	return Value{tag: format.TagStringArray, strs: v}
}

// IntArray creates an integer array value.
func IntArray(v []int64) Value {
	return Value{tag: format.TagIntArray, ints: v}
}

// FloatArray creates a floating-point array value.
func FloatArray(v []float64) Value {
	return Value{tag: format.TagFloatArray, floats: v}
}

// BoolArray creates a boolean array value.
func BoolArray(v []bool) Value {
	return Value{tag: format.TagBoolArray, bools: v}
}

// Nested creates a nested record value. A nil record is treated as empty.
func Nested(r *Record) Value {
	if r == nil {
		r = New()
	}

	return Value{tag: format.TagNestedRecord, rec: r}
}

// NestedArray creates a value holding an array of nested records.
func NestedArray(rs []Record) Value {
	return Value{tag: format.TagNestedArray, recs: rs}
}

// Hybrid creates a packed numeric array value.
func Hybrid(h HybridArray) Value {
	return Value{tag: format.TagHybridNumericArray, hybrid: h}
}

// Embedding creates an opaque embedding vector blob value.
func Embedding(b []byte) Value {
	return Value{tag: format.TagEmbedding, blob: b}
}

// EmbeddingDelta creates an opaque embedding delta blob value.
func EmbeddingDelta(b []byte) Value {
	return Value{tag: format.TagEmbeddingDelta, blob: b}
}

// QuantizedEmbedding creates an opaque quantized embedding blob value.
func QuantizedEmbedding(b []byte) Value {
	return Value{tag: format.TagQuantizedEmbedding, blob: b}
}

// Tag returns the type tag identifying which variant this value holds.
func (v Value) Tag() format.TypeTag {
	return v.tag
}

// Int returns the integer payload, or 0 when the value is not an integer.
func (v Value) Int() int64 {
	return v.intv
}

// Float returns the floating-point payload, or 0 when the value is not a
// float.
func (v Value) Float() float64 {
	return v.floatv
}

// Bool returns the boolean payload, or false when the value is not a bool.
func (v Value) Bool() bool {
	return v.boolv
}

// Str returns the string payload, or "" when the value is not a string.
func (v Value) Str() string {
	return v.str
}

// Strings returns the string array payload, or nil for other variants.
func (v Value) Strings() []string {
	return v.strs
}

// Ints returns the integer array payload, or nil for other variants.
func (v Value) Ints() []int64 {
	return v.ints
}

// Floats returns the float array payload, or nil for other variants.
func (v Value) Floats() []float64 {
	return v.floats
}

// Bools returns the boolean array payload, or nil for other variants.
func (v Value) Bools() []bool {
	return v.bools
}

// Record returns the nested record payload, or nil for other variants.
func (v Value) Record() *Record {
	return v.rec
}

// Records returns the nested record array payload, or nil for other
// variants.
func (v Value) Records() []Record {
	return v.recs
}

// Hybrid returns the packed numeric array payload. The result is only
// meaningful when Tag() is TagHybridNumericArray.
func (v Value) Hybrid() HybridArray {
	return v.hybrid
}

// Blob returns the opaque blob payload of an embedding variant, or nil for
// other variants.
func (v Value) Blob() []byte {
	return v.blob
}

// Depth returns the nesting depth contributed by this value: 0 for flat
// payloads, 1 plus the deepest child for nested records and arrays.
func (v Value) Depth() int {
	switch v.tag {
	case format.TagNestedRecord:
		return 1 + v.rec.Depth()
	case format.TagNestedArray:
		maxDepth := 0
		for i := range v.recs {
			if d := v.recs[i].Depth(); d > maxDepth {
				maxDepth = d
			}
		}

		return 1 + maxDepth
	default:
		return 0
	}
}

// Equal reports whether two values hold the same tag and payload. Floats
// compare bit-for-bit through ==, so NaN never equals NaN.
func (v Value) Equal(other Value) bool {
	if v.tag != other.tag {
		return false
	}

	switch v.tag {
	case format.TagInt:
		return v.intv == other.intv
	case format.TagFloat:
		return v.floatv == other.floatv
	case format.TagBool:
		return v.boolv == other.boolv
	case format.TagString:
		return v.str == other.str
	case format.TagStringArray:
		if len(v.strs) != len(other.strs) {
			return false
		}
		for i := range v.strs {
			if v.strs[i] != other.strs[i] {
				return false
			}
		}

		return true
	case format.TagIntArray:
		if len(v.ints) != len(other.ints) {
			return false
		}
		for i := range v.ints {
			if v.ints[i] != other.ints[i] {
				return false
			}
		}

		return true
	case format.TagFloatArray:
		if len(v.floats) != len(other.floats) {
			return false
		}
		for i := range v.floats {
			if v.floats[i] != other.floats[i] {
				return false
			}
		}

		return true
	case format.TagBoolArray:
		if len(v.bools) != len(other.bools) {
			return false
		}
		for i := range v.bools {
			if v.bools[i] != other.bools[i] {
				return false
			}
		}

		return true
	case format.TagNestedRecord:
		return v.rec.Equal(other.rec)
	case format.TagNestedArray:
		if len(v.recs) != len(other.recs) {
			return false
		}
		for i := range v.recs {
			if !v.recs[i].Equal(&other.recs[i]) {
				return false
			}
		}

		return true
	case format.TagHybridNumericArray:
		return v.hybrid.Equal(other.hybrid)
	case format.TagEmbedding, format.TagEmbeddingDelta, format.TagQuantizedEmbedding:
		return bytes.Equal(v.blob, other.blob)
	default:
		return false
	}
}
