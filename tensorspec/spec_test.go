package tensorspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAffineAsymmetric(t *testing.T) {
	attrs, err := Parse("NCHW:8U:1x3x224x224:AA:0.017:114")
	require.NoError(t, err)
	require.Len(t, attrs, 1)

	a := attrs[0]
	assert.Equal(t, LayoutNCHW, a.Layout)
	assert.Equal(t, TypeU8, a.Type)
	assert.Equal(t, 4, a.Rank())
	assert.Equal(t, []int{1, 3, 224, 224}, a.Dims)
	assert.Equal(t, QuantAffineAsymmetric, a.Quant.Kind)
	assert.InDelta(t, 0.017, a.Quant.Scale, 1e-9)
	assert.EqualValues(t, 114, a.Quant.ZeroPoint)
}

func TestParseEmptyYieldsEmptyList(t *testing.T) {
	attrs, err := Parse("")
	require.NoError(t, err)
	assert.Nil(t, attrs)
}

func TestParseMultipleDescriptors(t *testing.T) {
	attrs, err := Parse("NCHW:8U:1x3x224x224:AA:0.017:114, NCHW:8U:1x3x224x224:AA:0.017:114")
	require.NoError(t, err)
	assert.Len(t, attrs, 2)
}

func TestParseMalformedLayout(t *testing.T) {
	_, err := Parse("BOGUS:8U:1x3x224x224")
	assert.Error(t, err)
}

func TestParseMalformedShape(t *testing.T) {
	_, err := Parse("NCHW:8U:1x0x224")
	assert.Error(t, err)
}

func TestParseQuantOnNonIntegerType(t *testing.T) {
	_, err := Parse("NCHW:32F:1x3x224x224:AA:0.017:114")
	assert.Error(t, err)
}

func TestRoundTripFormat(t *testing.T) {
	const spec = "NCHW:8U:1x3x224x224:AA:0.017:114"
	attrs, err := Parse(spec)
	require.NoError(t, err)

	roundTripped, err := Parse(Format(attrs))
	require.NoError(t, err)

	require.Len(t, roundTripped, 1)
	assert.Equal(t, attrs[0].Layout, roundTripped[0].Layout)
	assert.Equal(t, attrs[0].Type, roundTripped[0].Type)
	assert.Equal(t, attrs[0].Dims, roundTripped[0].Dims)
	assert.Equal(t, attrs[0].Quant.Kind, roundTripped[0].Quant.Kind)
	assert.InDelta(t, attrs[0].Quant.Scale, roundTripped[0].Quant.Scale, 1e-9)
}

func TestParseShapeRejectsZeroDim(t *testing.T) {
	_, err := ParseShape("3x0x224")
	assert.Error(t, err)
}
