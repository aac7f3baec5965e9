package tensorspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopKTieBreakAscendingIndex(t *testing.T) {
	got := TopK([]float32{0.1, 0.9, 0.9, 0.2}, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 2, got[1].Index)
}

func TestTopKExceedingLength(t *testing.T) {
	got := TopK([]float32{0.1, 0.2}, 10)
	assert.Len(t, got, 2)
}

func TestSoftmaxSumsToOne(t *testing.T) {
	out := make([]float32, 3)
	Softmax([]float32{1.0, 2.0, 3.0}, 1, out)

	assert.InDelta(t, 0.0900, out[0], 1e-3)
	assert.InDelta(t, 0.2447, out[1], 1e-3)
	assert.InDelta(t, 0.6652, out[2], 1e-3)

	var sum float32
	for _, v := range out {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestSoftmaxShiftInvariant(t *testing.T) {
	a := make([]float32, 3)
	b := make([]float32, 3)
	Softmax([]float32{1.0, 2.0, 3.0}, 1, a)
	Softmax([]float32{1001.0, 1002.0, 1003.0}, 1, b)

	for i := range a {
		assert.InDelta(t, a[i], b[i], 1e-6)
	}
}

func TestClampIdempotent(t *testing.T) {
	r := Rect{X1: -5, Y1: -5, X2: 50, Y2: 50}
	once := Clamp(r, 20, 20)
	twice := Clamp(once, 20, 20)
	assert.Equal(t, once, twice)
}

func TestClampCollapsesDisjointRect(t *testing.T) {
	r := Rect{X1: 30, Y1: 30, X2: 40, Y2: 40}
	got := Clamp(r, 10, 10)
	assert.Equal(t, float32(0), got.Area())
}

func TestIoU(t *testing.T) {
	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := Rect{X1: 1, Y1: 1, X2: 11, Y2: 11}
	iou := a.IoU(b)
	assert.InDelta(t, 0.68, iou, 0.02)
}

func TestLabelToColorPureFunctionOfLabel(t *testing.T) {
	a := LabelToColor("person", 255)
	b := LabelToColor("person", 128)
	assert.Equal(t, a>>8, b>>8, "RGB channels must not depend on alpha")
	assert.NotEqual(t, LabelToColor("person", 255), LabelToColor("car", 255))
}

func TestQuantDequantAffineRoundTrip(t *testing.T) {
	raw := QuantAffine(1.938, 0.017, 114, 0, 255)
	back := DequantAffine(raw, 0.017, 114)
	assert.InDelta(t, 1.938, back, 0.02)
}

func TestQuantAffineSaturates(t *testing.T) {
	raw := QuantAffine(1000, 0.017, 114, 0, 255)
	assert.Equal(t, int64(255), raw)
}
