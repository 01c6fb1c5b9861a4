package frame

import (
	"fmt"

	"github.com/lnmplang/lnmp/encoding"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
)

// DetectVersion returns the frame version byte without decoding the body.
func DetectVersion(data []byte) (format.Version, error) {
	if len(data) < 1 {
		return 0, &errs.EOFError{Expected: 1, Found: len(data)}
	}

	version := format.Version(data[0])
	if !version.IsSupported() {
		return 0, &errs.VersionError{
			Found:     data[0],
			Supported: []byte{byte(format.Version04), byte(format.Version05)},
		}
	}

	return version, nil
}

// ContainsNested reports whether any top-level entry carries a nested
// record or nested array. Payloads are skipped structurally, not decoded,
// so nested bodies themselves are not inspected; a nested tag at any
// deeper level implies one at the top.
func ContainsNested(data []byte) (bool, error) {
	version, err := DetectVersion(data)
	if err != nil {
		return false, err
	}
	if len(data) < 2 {
		return false, &errs.EOFError{Expected: 2, Found: len(data)}
	}

	o := decodeOpts{version: version, maxDepth: DefaultMaxDepth}

	count, cn, err := encoding.Uvarint(data[2:], false)
	if err != nil {
		return false, err
	}
	n := 2 + cn

	for i := uint64(0); i < count; i++ {
		if len(data)-n < 3 {
			return false, &errs.EOFError{Expected: n + 3, Found: len(data)}
		}
		fid := fidEngine.Uint16(data[n:])
		tag := format.TypeTag(data[n+2])
		if !tag.IsValid() {
			return false, fmt.Errorf("%w: 0x%02X in field %d", errs.ErrInvalidTypeTag, byte(tag), fid)
		}
		if tag.IsNested() {
			return true, nil
		}

		vn, err := walkValue(data[n+3:], fid, tag, o, 0)
		if err != nil {
			return false, err
		}
		n += 3 + vn
	}

	return false, nil
}
