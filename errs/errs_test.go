package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMalformedSpecIsErrMalformedSpec(t *testing.T) {
	err := NewMalformedSpec("NCHW:8U:1x3x224x224", "Type", "BOGUS")
	assert.True(t, errors.Is(err, ErrMalformedSpec))
}

func TestNewShapeMismatchDetail(t *testing.T) {
	err := NewShapeMismatch("input0", []int{1, 3, 224, 224}, []int{1, 3, 112, 112})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestNewAnchorMismatchAs(t *testing.T) {
	err := NewAnchorMismatch(2, 3)

	var detail *AnchorDetail
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, 2, detail.Groups)
	assert.Equal(t, 3, detail.Layers)
}

func TestNewBackendFailureWrapsCause(t *testing.T) {
	cause := errors.New("onnxruntime: session init failed")
	err := NewBackendFailure("onnx", "load", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestNewZooParseErrorIsErrZooParseError(t *testing.T) {
	err := NewZooParseError("face-detect", "unrecognized nettype value Bogus")
	assert.True(t, errors.Is(err, ErrZooParseError))
}
