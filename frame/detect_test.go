package frame

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
	"github.com/lnmplang/lnmp/record"
)

func TestDetectVersion(t *testing.T) {
	scalar := record.New()
	scalar.AddField(1, record.Int(1))
	data, err := mustEncoder(t).Encode(scalar)
	require.NoError(t, err)

	v, err := DetectVersion(data)
	require.NoError(t, err)
	require.Equal(t, format.Version04, v)

	_, err = DetectVersion([]byte{0x42})
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)

	_, err = DetectVersion(nil)
	require.ErrorIs(t, err, errs.ErrUnexpectedEOF)
}

func TestContainsNested(t *testing.T) {
	flat := record.New()
	flat.AddField(1, record.Int(1))
	flat.AddField(2, record.IntArray([]int64{1}))
	data, err := mustEncoder(t).Encode(flat)
	require.NoError(t, err)

	nested, err := ContainsNested(data)
	require.NoError(t, err)
	require.False(t, nested)

	withNested := record.New()
	withNested.AddField(1, record.Int(1))
	withNested.AddField(2, record.Nested(record.New()))
	data, err = mustEncoder(t).Encode(withNested)
	require.NoError(t, err)

	nested, err = ContainsNested(data)
	require.NoError(t, err)
	require.True(t, nested)
}

// fidCodec is a minimal text codec for exercising the bridge hooks. It
// renders records as "fid=int" lines and parses the same form back.
type fidCodec struct{}

func (fidCodec) ParseText(text []byte) (*record.Record, error) {
	rec := record.New()
	var fid uint16
	var val int64
	if _, err := fmt.Sscanf(string(text), "%d=%d", &fid, &val); err != nil {
		return nil, err
	}
	rec.AddField(fid, record.Int(val))

	return rec, nil
}

func (fidCodec) EncodeText(rec *record.Record) ([]byte, error) {
	fields := rec.SortedFields()
	if len(fields) != 1 {
		return nil, fmt.Errorf("fidCodec handles single-field records, got %d", len(fields))
	}

	return []byte(fmt.Sprintf("%d=%d", fields[0].FID, fields[0].Value.Int())), nil
}

func TestTextBridge(t *testing.T) {
	enc := mustEncoder(t)
	dec := mustDecoder(t)

	data, err := enc.EncodeFromText([]byte("12=14532"), fidCodec{})
	require.NoError(t, err)

	rec, err := dec.Decode(data)
	require.NoError(t, err)
	v, ok := rec.GetField(12)
	require.True(t, ok)
	require.Equal(t, int64(14532), v.Int())

	text, err := dec.DecodeToText(data, fidCodec{})
	require.NoError(t, err)
	require.Equal(t, []byte("12=14532"), text)
}
