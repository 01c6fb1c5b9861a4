package frame

import (
	"github.com/lnmplang/lnmp/record"
)

// TextCodec bridges binary frames to an external text grammar. The grammar
// itself lives outside this module; implementations plug it in here.
type TextCodec interface {
	// ParseText parses text grammar input into a record.
	ParseText(text []byte) (*record.Record, error)

	// EncodeText renders a record in the text grammar.
	EncodeText(rec *record.Record) ([]byte, error)
}

// DecodeToText decodes a binary frame and renders it through the given
// text codec.
func (d *Decoder) DecodeToText(data []byte, codec TextCodec) ([]byte, error) {
	rec, err := d.Decode(data)
	if err != nil {
		return nil, err
	}

	return codec.EncodeText(rec)
}

// EncodeFromText parses text grammar input through the given codec and
// encodes the result as a binary frame.
func (e *Encoder) EncodeFromText(text []byte, codec TextCodec) ([]byte, error) {
	rec, err := codec.ParseText(text)
	if err != nil {
		return nil, err
	}

	return e.Encode(rec)
}
