package labels

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImplicitLineNumbers(t *testing.T) {
	m, err := Parse(strings.NewReader("cat\ndog\nbird\n"))
	require.NoError(t, err)
	assert.Equal(t, "cat", m.Get(0))
	assert.Equal(t, "dog", m.Get(1))
	assert.Equal(t, "bird", m.Get(2))
}

func TestParseExplicitIDs(t *testing.T) {
	m, err := Parse(strings.NewReader("0 background\n5 person\n10 car\n"))
	require.NoError(t, err)
	assert.Equal(t, "background", m.Get(0))
	assert.Equal(t, "person", m.Get(5))
	assert.Equal(t, "car", m.Get(10))
}

func TestParseSkipsBlankLines(t *testing.T) {
	m, err := Parse(strings.NewReader("cat\n\ndog\n"))
	require.NoError(t, err)
	assert.Equal(t, "cat", m.Get(0))
	assert.Equal(t, "dog", m.Get(1))
}

func TestGetFallsBackToDecimalID(t *testing.T) {
	m := Map{}
	assert.Equal(t, "42", m.Get(42))
}

func TestParseLabelWithEmbeddedDigitIsNotMistakenForID(t *testing.T) {
	m, err := Parse(strings.NewReader("4x4 vehicle\n"))
	require.NoError(t, err)
	assert.Equal(t, "4x4 vehicle", m.Get(0))
}
