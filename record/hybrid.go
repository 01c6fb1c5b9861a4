package record

import (
	"bytes"
	"fmt"
	"math"

	"github.com/lnmplang/lnmp/endian"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
)

var hybridEngine = endian.GetLittleEndianEngine()

// HybridArray is a packed numeric array of a single element type, stored
// either densely (every element present) or sparsely (explicit indices into
// a logical dimension, unlisted positions implicitly zero).
//
// Element bytes are kept in wire form, packed little-endian, so encoding a
// hybrid array is a straight copy.
type HybridArray struct {
	dtype   format.NumericDType
	sparse  bool
	dim     int
	indices []uint32
	data    []byte
}

// DenseI32 creates a dense array of 32-bit integers.
func DenseI32(vals []int32) HybridArray {
	data := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		data = hybridEngine.AppendUint32(data, uint32(v))
	}

	return HybridArray{dtype: format.DTypeI32, dim: len(vals), data: data}
}

// DenseI64 creates a dense array of 64-bit integers.
func DenseI64(vals []int64) HybridArray {
	data := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		data = hybridEngine.AppendUint64(data, uint64(v))
	}

	return HybridArray{dtype: format.DTypeI64, dim: len(vals), data: data}
}

// DenseF32 creates a dense array of 32-bit floats.
func DenseF32(vals []float32) HybridArray {
	data := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		data = hybridEngine.AppendUint32(data, math.Float32bits(v))
	}

	return HybridArray{dtype: format.DTypeF32, dim: len(vals), data: data}
}

// DenseF64 creates a dense array of 64-bit floats.
func DenseF64(vals []float64) HybridArray {
	data := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		data = hybridEngine.AppendUint64(data, math.Float64bits(v))
	}

	return HybridArray{dtype: format.DTypeF64, dim: len(vals), data: data}
}

// SparseF32 creates a sparse array of 32-bit floats over a logical
// dimension. Indices must be strictly ascending and below dim, with one
// value per index.
func SparseF32(dim int, indices []uint32, vals []float32) (HybridArray, error) {
	if err := checkSparse(dim, indices, len(vals)); err != nil {
		return HybridArray{}, err
	}

	data := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		data = hybridEngine.AppendUint32(data, math.Float32bits(v))
	}

	return HybridArray{dtype: format.DTypeF32, sparse: true, dim: dim, indices: indices, data: data}, nil
}

// SparseF64 creates a sparse array of 64-bit floats over a logical
// dimension.
func SparseF64(dim int, indices []uint32, vals []float64) (HybridArray, error) {
	if err := checkSparse(dim, indices, len(vals)); err != nil {
		return HybridArray{}, err
	}

	data := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		data = hybridEngine.AppendUint64(data, math.Float64bits(v))
	}

	return HybridArray{dtype: format.DTypeF64, sparse: true, dim: dim, indices: indices, data: data}, nil
}

// SparseI64 creates a sparse array of 64-bit integers over a logical
// dimension.
func SparseI64(dim int, indices []uint32, vals []int64) (HybridArray, error) {
	if err := checkSparse(dim, indices, len(vals)); err != nil {
		return HybridArray{}, err
	}

	data := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		data = hybridEngine.AppendUint64(data, uint64(v))
	}

	return HybridArray{dtype: format.DTypeI64, sparse: true, dim: dim, indices: indices, data: data}, nil
}

// NewHybridDense wraps already-packed little-endian element bytes as a dense
// array. The data length must be a whole number of elements.
func NewHybridDense(dtype format.NumericDType, data []byte) (HybridArray, error) {
	if !dtype.IsValid() {
		return HybridArray{}, fmt.Errorf("%w: unknown hybrid dtype 0x%02X", errs.ErrInvalidValue, byte(dtype))
	}
	if len(data)%dtype.Size() != 0 {
		return HybridArray{}, fmt.Errorf("%w: hybrid data length %d not a multiple of element size %d",
			errs.ErrInvalidValue, len(data), dtype.Size())
	}

	return HybridArray{dtype: dtype, dim: len(data) / dtype.Size(), data: data}, nil
}

// NewHybridSparse wraps already-packed element bytes as a sparse array over
// a logical dimension, one packed element per index.
func NewHybridSparse(dtype format.NumericDType, dim int, indices []uint32, data []byte) (HybridArray, error) {
	if !dtype.IsValid() {
		return HybridArray{}, fmt.Errorf("%w: unknown hybrid dtype 0x%02X", errs.ErrInvalidValue, byte(dtype))
	}
	if len(data) != len(indices)*dtype.Size() {
		return HybridArray{}, fmt.Errorf("%w: hybrid data length %d does not match %d indices of element size %d",
			errs.ErrInvalidValue, len(data), len(indices), dtype.Size())
	}
	if err := checkSparse(dim, indices, len(indices)); err != nil {
		return HybridArray{}, err
	}

	return HybridArray{dtype: dtype, sparse: true, dim: dim, indices: indices, data: data}, nil
}

func checkSparse(dim int, indices []uint32, valCount int) error {
	if len(indices) != valCount {
		return fmt.Errorf("%w: sparse array has %d indices but %d values",
			errs.ErrInvalidValue, len(indices), valCount)
	}
	for i, idx := range indices {
		if int(idx) >= dim {
			return fmt.Errorf("%w: sparse index %d out of range for dimension %d",
				errs.ErrInvalidValue, idx, dim)
		}
		if i > 0 && indices[i-1] >= idx {
			return fmt.Errorf("%w: sparse indices not strictly ascending at position %d",
				errs.ErrInvalidValue, i)
		}
	}

	return nil
}

// DType returns the packed element type.
func (h HybridArray) DType() format.NumericDType {
	return h.dtype
}

// IsSparse reports whether the array stores explicit indices.
func (h HybridArray) IsSparse() bool {
	return h.sparse
}

// Dim returns the logical dimension: the element count for dense arrays,
// the declared dimension for sparse ones.
func (h HybridArray) Dim() int {
	return h.dim
}

// Len returns the number of stored elements. For sparse arrays this is the
// number of explicit entries, not the logical dimension.
func (h HybridArray) Len() int {
	if h.sparse {
		return len(h.indices)
	}

	return h.dim
}

// Indices returns the sparse index list, or nil for dense arrays.
func (h HybridArray) Indices() []uint32 {
	return h.indices
}

// Data returns the packed little-endian element bytes in wire form.
func (h HybridArray) Data() []byte {
	return h.data
}

// Float32Values unpacks the stored elements as float32. Returns false when
// the element type is not F32.
func (h HybridArray) Float32Values() ([]float32, bool) {
	if h.dtype != format.DTypeF32 {
		return nil, false
	}

	vals := make([]float32, h.Len())
	for i := range vals {
		vals[i] = math.Float32frombits(hybridEngine.Uint32(h.data[i*4:]))
	}

	return vals, true
}

// Float64Values unpacks the stored elements as float64. Returns false when
// the element type is not F64.
func (h HybridArray) Float64Values() ([]float64, bool) {
	if h.dtype != format.DTypeF64 {
		return nil, false
	}

	vals := make([]float64, h.Len())
	for i := range vals {
		vals[i] = math.Float64frombits(hybridEngine.Uint64(h.data[i*8:]))
	}

	return vals, true
}

// Int32Values unpacks the stored elements as int32. Returns false when the
// element type is not I32.
func (h HybridArray) Int32Values() ([]int32, bool) {
	if h.dtype != format.DTypeI32 {
		return nil, false
	}

	vals := make([]int32, h.Len())
	for i := range vals {
		vals[i] = int32(hybridEngine.Uint32(h.data[i*4:]))
	}

	return vals, true
}

// Int64Values unpacks the stored elements as int64. Returns false when the
// element type is not I64.
func (h HybridArray) Int64Values() ([]int64, bool) {
	if h.dtype != format.DTypeI64 {
		return nil, false
	}

	vals := make([]int64, h.Len())
	for i := range vals {
		vals[i] = int64(hybridEngine.Uint64(h.data[i*8:]))
	}

	return vals, true
}

// Equal reports whether two hybrid arrays have the same type, shape and
// element bytes.
func (h HybridArray) Equal(other HybridArray) bool {
	if h.dtype != other.dtype || h.sparse != other.sparse || h.dim != other.dim {
		return false
	}
	if len(h.indices) != len(other.indices) {
		return false
	}
	for i := range h.indices {
		if h.indices[i] != other.indices[i] {
			return false
		}
	}

	return bytes.Equal(h.data, other.data)
}
