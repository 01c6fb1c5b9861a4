package negotiate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lnmplang/lnmp/errs"
	"github.com/lnmplang/lnmp/format"
)

func TestTagMask(t *testing.T) {
	mask := TagMask(format.TagInt, format.TagString)
	require.Equal(t, uint16(1<<0x01|1<<0x04), mask)

	caps := Capabilities{SupportedTags: mask}
	require.True(t, caps.SupportsTag(format.TagInt))
	require.True(t, caps.SupportsTag(format.TagString))
	require.False(t, caps.SupportsTag(format.TagBool))
}

func TestDefaultCapabilities(t *testing.T) {
	caps := DefaultCapabilities()
	require.Equal(t, format.Version05, caps.MaxVersion)
	require.True(t, caps.SupportsTag(format.TagNestedRecord))
	require.True(t, caps.SupportsTag(format.TagHybridNumericArray))
	require.True(t, caps.Features.Has(FeatureNested|FeatureStreaming))
	require.True(t, caps.Required.Has(FeatureCanonical))
}

func TestScalarCapabilities(t *testing.T) {
	caps := ScalarCapabilities()
	require.Equal(t, format.Version04, caps.MaxVersion)
	require.True(t, caps.SupportsTag(format.TagInt))
	require.False(t, caps.SupportsTag(format.TagNestedRecord))
	require.False(t, caps.Features.Has(FeatureNested))
}

func TestCapabilitiesWireRoundTrip(t *testing.T) {
	caps := Capabilities{
		MaxVersion:      format.Version05,
		SupportedTags:   ScalarTags() | TagMask(format.TagNestedRecord),
		MaxNestingDepth: 17,
		Features:        FeatureNested | FeatureChecksums,
		Required:        FeatureChecksums,
	}

	wire := caps.Encode()
	got, err := ParseCapabilities(wire)
	require.NoError(t, err)
	require.Equal(t, caps, got)
}

func TestParseCapabilitiesErrors(t *testing.T) {
	_, err := ParseCapabilities(nil)
	require.ErrorIs(t, err, errs.ErrNegotiation)

	_, err = ParseCapabilities([]byte{0x01, 0x02})
	require.ErrorIs(t, err, errs.ErrNegotiation)

	// unknown version byte
	bad := DefaultCapabilities().Encode()
	bad[0] = 0x09
	_, err = ParseCapabilities(bad)
	require.ErrorIs(t, err, errs.ErrIncompatibleVersion)

	// trailing bytes
	long := append(DefaultCapabilities().Encode(), 0x00)
	_, err = ParseCapabilities(long)
	require.ErrorIs(t, err, errs.ErrNegotiation)
}

func TestIntersectSymmetricFull(t *testing.T) {
	neg := NewNegotiator(DefaultCapabilities())
	agreed, err := neg.Intersect(DefaultCapabilities())
	require.NoError(t, err)
	require.Equal(t, format.Version05, agreed.MaxVersion)
	require.Equal(t, DefaultCapabilities().SupportedTags, agreed.SupportedTags)
	require.Equal(t, 32, agreed.MaxNestingDepth)
}

func TestIntersectDowngradesToScalarSession(t *testing.T) {
	neg := NewNegotiator(DefaultCapabilities())
	agreed, err := neg.Intersect(ScalarCapabilities())
	require.NoError(t, err)

	require.Equal(t, format.Version04, agreed.MaxVersion)
	require.Equal(t, ScalarTags(), agreed.SupportedTags)
	require.Equal(t, 0, agreed.MaxNestingDepth)
	require.False(t, agreed.Features.Has(FeatureNested))
	require.False(t, agreed.SupportsTag(format.TagNestedRecord))
	require.True(t, agreed.Features.Has(FeatureCanonical))
}

func TestIntersectTakesMinimumDepth(t *testing.T) {
	local := DefaultCapabilities()
	local.MaxNestingDepth = 8

	remote := DefaultCapabilities()
	remote.MaxNestingDepth = 4

	agreed, err := NewNegotiator(local).Intersect(remote)
	require.NoError(t, err)
	require.Equal(t, 4, agreed.MaxNestingDepth)
}

func TestIntersectIncompatibleVersion(t *testing.T) {
	remote := DefaultCapabilities()
	remote.MaxVersion = 0x03

	_, err := NewNegotiator(DefaultCapabilities()).Intersect(remote)
	require.ErrorIs(t, err, errs.ErrIncompatibleVersion)
	require.ErrorIs(t, err, errs.ErrNegotiation)
}

func TestIntersectNoCommonTypes(t *testing.T) {
	local := DefaultCapabilities()
	local.SupportedTags = TagMask(format.TagInt)
	local.Required = 0

	remote := DefaultCapabilities()
	remote.SupportedTags = TagMask(format.TagFloat)
	remote.Required = 0

	_, err := NewNegotiator(local).Intersect(remote)
	require.ErrorIs(t, err, errs.ErrNoCommonTypes)
}

func TestIntersectRequiredFeatureMissing(t *testing.T) {
	// local insists on nested support but the remote peer is scalar only
	local := DefaultCapabilities()
	local.Required |= FeatureNested

	_, err := NewNegotiator(local).Intersect(ScalarCapabilities())
	require.ErrorIs(t, err, errs.ErrFeatureUnsupported)
}

func TestIntersectRemoteRequirementBinds(t *testing.T) {
	local := ScalarCapabilities()

	remote := DefaultCapabilities()
	remote.Required |= FeatureStreaming

	_, err := NewNegotiator(local).Intersect(remote)
	require.ErrorIs(t, err, errs.ErrFeatureUnsupported)
}

func TestFeatureSetString(t *testing.T) {
	require.Equal(t, "none", FeatureSet(0).String())
	require.Equal(t, "nested|checksums", (FeatureNested | FeatureChecksums).String())
	require.Contains(t, FeatureSet(0x40).String(), "unknown")
}

func TestSessionHandshake(t *testing.T) {
	client := NewSession(DefaultCapabilities())
	server := NewSession(ScalarCapabilities())
	require.Equal(t, SessionInit, client.State())

	clientWire, err := client.Propose()
	require.NoError(t, err)
	serverWire, err := server.Propose()
	require.NoError(t, err)
	require.Equal(t, SessionProposed, client.State())

	clientAgreed, err := client.Accept(serverWire)
	require.NoError(t, err)
	serverAgreed, err := server.Accept(clientWire)
	require.NoError(t, err)

	require.Equal(t, SessionAccepted, client.State())
	require.Equal(t, clientAgreed, serverAgreed)
	require.Equal(t, format.Version04, clientAgreed.MaxVersion)

	got, ok := client.Agreed()
	require.True(t, ok)
	require.Equal(t, clientAgreed, got)
}

func TestSessionInvalidTransitions(t *testing.T) {
	s := NewSession(DefaultCapabilities())

	_, err := s.Accept(nil)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = s.Propose()
	require.NoError(t, err)
	_, err = s.Propose()
	require.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = s.Accept(ScalarCapabilities().Encode())
	require.NoError(t, err)
	_, err = s.Accept(ScalarCapabilities().Encode())
	require.ErrorIs(t, err, errs.ErrInvalidState)

	require.ErrorIs(t, s.Reject("late"), errs.ErrInvalidState)
}

func TestSessionRejectsIncompatiblePeer(t *testing.T) {
	local := DefaultCapabilities()
	local.Required |= FeatureNested
	s := NewSession(local)

	_, err := s.Propose()
	require.NoError(t, err)

	_, err = s.Accept(ScalarCapabilities().Encode())
	require.ErrorIs(t, err, errs.ErrFeatureUnsupported)
	require.Equal(t, SessionRejected, s.State())
	require.Contains(t, s.RejectReason(), "feature")

	_, ok := s.Agreed()
	require.False(t, ok)
}

func TestSessionExplicitReject(t *testing.T) {
	s := NewSession(DefaultCapabilities())
	require.NoError(t, s.Reject("transport closed"))
	require.Equal(t, SessionRejected, s.State())
	require.Equal(t, "transport closed", s.RejectReason())
}

func TestSessionRejectsMalformedWire(t *testing.T) {
	s := NewSession(DefaultCapabilities())
	_, err := s.Propose()
	require.NoError(t, err)

	_, err = s.Accept([]byte{0xFF})
	require.ErrorIs(t, err, errs.ErrNegotiation)
	require.Equal(t, SessionRejected, s.State())
}
