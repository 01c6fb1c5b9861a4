// Package negotiate implements the capability handshake that gates
// version-dependent protocol features.
//
// Peers exchange a Capabilities summary once per connection. The
// negotiator intersects both summaries into the agreed parameter set:
// the lower protocol version, the bitwise AND of supported type tags,
// the lower nesting depth limit and the common feature set. Frames
// using features outside the agreement must not be exchanged.
package negotiate

import (
	"fmt"
	"strings"

	"github.com/lnmplang/lnmp/encoding"
	"github.com/lnmplang/lnmp/endian"
	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
)

var wireEngine = endian.GetBigEndianEngine()

// FeatureSet is a bitmask of optional protocol features.
type FeatureSet uint8

const (
	// FeatureNested enables nested record and nested array entries.
	FeatureNested FeatureSet = 1 << iota
	// FeatureStreaming enables the chunked streaming frame layer.
	FeatureStreaming
	// FeatureHybrid enables hybrid numeric array entries.
	FeatureHybrid
	// FeatureCompression enables compressed streaming chunks.
	FeatureCompression
	// FeatureChecksums enables per-chunk CRC32 checksums.
	FeatureChecksums
	// FeatureCanonical requires canonical field ordering on the wire.
	FeatureCanonical
)

var featureNames = []struct {
	flag FeatureSet
	name string
}{
	{FeatureNested, "nested"},
	{FeatureStreaming, "streaming"},
	{FeatureHybrid, "hybrid"},
	{FeatureCompression, "compression"},
	{FeatureChecksums, "checksums"},
	{FeatureCanonical, "canonical"},
}

// Has reports whether every feature in flags is present in the set.
func (s FeatureSet) Has(flags FeatureSet) bool {
	return s&flags == flags
}

func (s FeatureSet) String() string {
	if s == 0 {
		return "none"
	}

	var names []string
	for _, f := range featureNames {
		if s&f.flag != 0 {
			names = append(names, f.name)
		}
	}
	if extra := s &^ allFeatures(); extra != 0 {
		names = append(names, fmt.Sprintf("unknown(0x%02X)", uint8(extra)))
	}

	return strings.Join(names, "|")
}

func allFeatures() FeatureSet {
	var all FeatureSet
	for _, f := range featureNames {
		all |= f.flag
	}

	return all
}

// TagMask builds a type tag bitmask with bit N set for tag value N.
func TagMask(tags ...format.TypeTag) uint16 {
	var mask uint16
	for _, tag := range tags {
		mask |= 1 << uint16(tag)
	}

	return mask
}

// Capabilities summarizes what one peer supports. It is exchanged once
// during the handshake and read-only afterwards.
type Capabilities struct {
	// MaxVersion is the highest protocol version the peer accepts.
	MaxVersion format.Version
	// SupportedTags is a bitmask with bit N set when type tag N is
	// decodable by the peer.
	SupportedTags uint16
	// MaxNestingDepth bounds nested record recursion.
	MaxNestingDepth int
	// Features lists the optional features the peer can use.
	Features FeatureSet
	// Required lists features the peer insists the session uses.
	// A required feature missing from the intersection fails the
	// handshake.
	Required FeatureSet
}

// ScalarTags is the tag mask shared by every protocol version.
func ScalarTags() uint16 {
	return TagMask(
		format.TagInt, format.TagFloat, format.TagBool,
		format.TagString, format.TagStringArray,
	)
}

// ExtendedTags is the tag mask of entries that need version 0x05.
func ExtendedTags() uint16 {
	return TagMask(
		format.TagNestedRecord, format.TagNestedArray,
		format.TagHybridNumericArray,
		format.TagIntArray, format.TagFloatArray, format.TagBoolArray,
		format.TagEmbedding, format.TagEmbeddingDelta, format.TagQuantizedEmbedding,
	)
}

// DefaultCapabilities returns full version 0x05 capabilities.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		MaxVersion:      format.Version05,
		SupportedTags:   ScalarTags() | ExtendedTags(),
		MaxNestingDepth: 32,
		Features: FeatureNested | FeatureStreaming | FeatureHybrid |
			FeatureCompression | FeatureChecksums | FeatureCanonical,
		Required: FeatureCanonical,
	}
}

// ScalarCapabilities returns version 0x04 capabilities covering only
// scalar and string tags.
func ScalarCapabilities() Capabilities {
	return Capabilities{
		MaxVersion:      format.Version04,
		SupportedTags:   ScalarTags(),
		MaxNestingDepth: 0,
		Features:        FeatureCanonical,
		Required:        FeatureCanonical,
	}
}

// SupportsTag reports whether the peer can decode entries with the tag.
func (c Capabilities) SupportsTag(tag format.TypeTag) bool {
	return c.SupportedTags&(1<<uint16(tag)) != 0
}

// AppendTo appends the wire form of the capabilities to dst.
//
// Layout: VERSION(1) | FEATURES(1) | REQUIRED(1) | TAGS(2, BE) |
// DEPTH(VarInt).
func (c Capabilities) AppendTo(dst []byte) []byte {
	dst = append(dst, byte(c.MaxVersion), byte(c.Features), byte(c.Required))
	dst = wireEngine.AppendUint16(dst, c.SupportedTags)
	dst = encoding.AppendUvarint(dst, uint64(c.MaxNestingDepth))

	return dst
}

// Encode returns the wire form of the capabilities.
func (c Capabilities) Encode() []byte {
	return c.AppendTo(make([]byte, 0, 8))
}

// ParseCapabilities decodes a capabilities summary from its wire form.
func ParseCapabilities(data []byte) (Capabilities, error) {
	if len(data) < 5 {
		return Capabilities{}, fmt.Errorf("%w: capabilities need at least 5 bytes, got %d",
			errs.ErrNegotiation, len(data))
	}

	version := format.Version(data[0])
	if !version.IsSupported() {
		return Capabilities{}, fmt.Errorf("%w: version 0x%02X", errs.ErrIncompatibleVersion, data[0])
	}

	depth, n, err := encoding.Uvarint(data[5:], false)
	if err != nil {
		return Capabilities{}, fmt.Errorf("%w: bad depth field: %w", errs.ErrNegotiation, err)
	}
	if len(data) != 5+n {
		return Capabilities{}, fmt.Errorf("%w: %d trailing bytes after capabilities",
			errs.ErrNegotiation, len(data)-5-n)
	}

	return Capabilities{
		MaxVersion:      version,
		Features:        FeatureSet(data[1]),
		Required:        FeatureSet(data[2]),
		SupportedTags:   wireEngine.Uint16(data[3:5]),
		MaxNestingDepth: int(depth),
	}, nil
}

// SchemaNegotiator computes the agreed parameter set between the local
// capabilities and a remote summary.
type SchemaNegotiator struct {
	local Capabilities
}

// NewNegotiator creates a negotiator speaking for the local peer.
func NewNegotiator(local Capabilities) *SchemaNegotiator {
	return &SchemaNegotiator{local: local}
}

// Local returns the local capabilities.
func (n *SchemaNegotiator) Local() Capabilities {
	return n.local
}

// Intersect combines the local and remote capabilities into the agreed
// session parameters.
//
// The agreed version is the lower of the two maxima, the tag mask is
// the bitwise AND, the depth limit the minimum and the feature set the
// intersection of both sides. Features either side marked required must
// survive the intersection or the handshake fails.
func (n *SchemaNegotiator) Intersect(remote Capabilities) (Capabilities, error) {
	local := n.local

	version := local.MaxVersion
	if remote.MaxVersion < version {
		version = remote.MaxVersion
	}
	if !version.IsSupported() {
		return Capabilities{}, fmt.Errorf("%w: local max 0x%02X, remote max 0x%02X",
			errs.ErrIncompatibleVersion, byte(local.MaxVersion), byte(remote.MaxVersion))
	}

	tags := local.SupportedTags & remote.SupportedTags
	features := local.Features & remote.Features
	required := local.Required | remote.Required

	depth := local.MaxNestingDepth
	if remote.MaxNestingDepth < depth {
		depth = remote.MaxNestingDepth
	}

	// version 0x04 sessions cannot carry extended entries regardless of
	// what either side advertises
	if !version.AllowsExtended() {
		tags &^= ExtendedTags()
		features &^= FeatureNested | FeatureHybrid
		depth = 0
	}

	if missing := required &^ features; missing != 0 {
		return Capabilities{}, fmt.Errorf("%w: %s", errs.ErrFeatureUnsupported, missing)
	}
	if tags == 0 {
		return Capabilities{}, errs.ErrNoCommonTypes
	}

	return Capabilities{
		MaxVersion:      version,
		SupportedTags:   tags,
		MaxNestingDepth: depth,
		Features:        features,
		Required:        required,
	}, nil
}
