package zoo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceleratorsResolveEmptyLabelPassesFallback(t *testing.T) {
	a := Accelerators{byPath: map[string]int{}}
	idx, err := a.Resolve("", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
}

func TestAcceleratorsResolveKnownLabel(t *testing.T) {
	a := Accelerators{byPath: map[string]int{"/dev/apex_0": 1}, count: 1}
	idx, err := a.Resolve("/dev/apex_0", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestAcceleratorsResolveUnknownLabelErrors(t *testing.T) {
	a := Accelerators{byPath: map[string]int{}}
	_, err := a.Resolve("/dev/apex_9", 0)
	assert.Error(t, err)
}

func TestAcceleratorsCount(t *testing.T) {
	a := Accelerators{byPath: map[string]int{"x": 0}, count: 1}
	assert.Equal(t, 1, a.Count())
}
