package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
)

func TestDenseHybridRoundTrip(t *testing.T) {
	h := DenseF32([]float32{1.5, -2.25, 0})
	require.Equal(t, format.DTypeF32, h.DType())
	require.False(t, h.IsSparse())
	require.Equal(t, 3, h.Dim())
	require.Equal(t, 3, h.Len())
	require.Len(t, h.Data(), 12)

	vals, ok := h.Float32Values()
	require.True(t, ok)
	require.Equal(t, []float32{1.5, -2.25, 0}, vals)

	// wrong dtype accessor
	_, ok = h.Int64Values()
	require.False(t, ok)
}

func TestDenseHybridAllDTypes(t *testing.T) {
	i32 := DenseI32([]int32{-1, 2})
	v32, ok := i32.Int32Values()
	require.True(t, ok)
	require.Equal(t, []int32{-1, 2}, v32)

	i64 := DenseI64([]int64{-1 << 40, 7})
	v64, ok := i64.Int64Values()
	require.True(t, ok)
	require.Equal(t, []int64{-1 << 40, 7}, v64)

	f64 := DenseF64([]float64{3.14159, -0.5})
	vf, ok := f64.Float64Values()
	require.True(t, ok)
	require.Equal(t, []float64{3.14159, -0.5}, vf)
}

func TestSparseHybrid(t *testing.T) {
	h, err := SparseF32(128, []uint32{3, 17, 90}, []float32{0.5, -1, 2})
	require.NoError(t, err)
	require.True(t, h.IsSparse())
	require.Equal(t, 128, h.Dim())
	require.Equal(t, 3, h.Len())
	require.Equal(t, []uint32{3, 17, 90}, h.Indices())

	vals, ok := h.Float32Values()
	require.True(t, ok)
	require.Equal(t, []float32{0.5, -1, 2}, vals)
}

func TestSparseHybridValidation(t *testing.T) {
	// count mismatch
	_, err := SparseF64(10, []uint32{1, 2}, []float64{1})
	require.ErrorIs(t, err, errs.ErrInvalidValue)

	// index out of range
	_, err = SparseF64(10, []uint32{10}, []float64{1})
	require.ErrorIs(t, err, errs.ErrInvalidValue)

	// not strictly ascending
	_, err = SparseI64(10, []uint32{5, 5}, []int64{1, 2})
	require.ErrorIs(t, err, errs.ErrInvalidValue)
	_, err = SparseI64(10, []uint32{5, 3}, []int64{1, 2})
	require.ErrorIs(t, err, errs.ErrInvalidValue)
}

func TestNewHybridFromWireBytes(t *testing.T) {
	src := DenseI64([]int64{10, -20})
	h, err := NewHybridDense(format.DTypeI64, src.Data())
	require.NoError(t, err)
	require.True(t, h.Equal(src))

	// ragged byte length
	_, err = NewHybridDense(format.DTypeI64, src.Data()[:9])
	require.ErrorIs(t, err, errs.ErrInvalidValue)

	sparse, err := SparseF64(8, []uint32{1, 6}, []float64{0.25, -4})
	require.NoError(t, err)
	got, err := NewHybridSparse(format.DTypeF64, 8, sparse.Indices(), sparse.Data())
	require.NoError(t, err)
	require.True(t, got.Equal(sparse))

	_, err = NewHybridSparse(format.DTypeF64, 8, []uint32{1, 6}, sparse.Data()[:8])
	require.ErrorIs(t, err, errs.ErrInvalidValue)
}

func TestHybridEqual(t *testing.T) {
	a := DenseF64([]float64{1, 2})
	b := DenseF64([]float64{1, 2})
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(DenseF64([]float64{1, 3})))
	require.False(t, a.Equal(DenseF32([]float32{1, 2})))

	s1, err := SparseF64(4, []uint32{0}, []float64{1})
	require.NoError(t, err)
	require.False(t, a.Equal(s1))
}

func TestHybridValueVariant(t *testing.T) {
	h := DenseF32([]float32{1})
	v := Hybrid(h)
	require.Equal(t, format.TagHybridNumericArray, v.Tag())
	require.True(t, v.Hybrid().Equal(h))
	require.True(t, v.Equal(Hybrid(DenseF32([]float32{1}))))
	require.False(t, v.Equal(Hybrid(DenseF32([]float32{2}))))
}
