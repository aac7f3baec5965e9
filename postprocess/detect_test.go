package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

func f32Blob(vals []float32) tensorspec.Blob {
	attr := tensorspec.TensorAttr{Type: tensorspec.TypeF32, Dims: []int{len(vals)}}
	return tensorspec.NewFloat32Blob(attr, vals)
}

func TestDetectSSDPixelBoxes(t *testing.T) {
	outputs := []tensorspec.Blob{
		f32Blob([]float32{0.9}),                          // scores
		f32Blob([]float32{0.25, 0.25, 0.75, 0.75}),       // boxes: y1,x1,y2,x2 in [0,1]
		f32Blob([]float32{3}),                            // class ids
	}
	cfg := DetectConfig{Type: DetectSSD, Thresh: 50, NMSThresh: 50}
	dets, err := Detect(outputs, cfg, 400, 200)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, 3, dets[0].ClassID)
	assert.InDelta(t, 100, dets[0].Rect.X1, 1e-6)
	assert.InDelta(t, 50, dets[0].Rect.Y1, 1e-6)
	assert.InDelta(t, 300, dets[0].Rect.X2, 1e-6)
	assert.InDelta(t, 150, dets[0].Rect.Y2, 1e-6)
}

func TestDetectTPUSSDNormalizedBoxes(t *testing.T) {
	outputs := []tensorspec.Blob{
		f32Blob([]float32{0.9}),
		f32Blob([]float32{0.25, 0.25, 0.75, 0.75}), // y1,x1,y2,x2 in [0,1]
		f32Blob([]float32{1}),
	}
	cfg := DetectConfig{Type: DetectTPUSSD, Thresh: 50, NMSThresh: 50}
	dets, err := Detect(outputs, cfg, 400, 200)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.InDelta(t, 100, dets[0].Rect.X1, 1e-6)
	assert.InDelta(t, 50, dets[0].Rect.Y1, 1e-6)
	assert.InDelta(t, 300, dets[0].Rect.X2, 1e-6)
	assert.InDelta(t, 150, dets[0].Rect.Y2, 1e-6)
}

func TestDetectSSDBelowThresholdDropped(t *testing.T) {
	outputs := []tensorspec.Blob{
		f32Blob([]float32{0.1}),
		f32Blob([]float32{0, 0, 10, 10}),
		f32Blob([]float32{0}),
	}
	cfg := DetectConfig{Type: DetectSSD, Thresh: 50, NMSThresh: 50}
	dets, err := Detect(outputs, cfg, 416, 416)
	require.NoError(t, err)
	assert.Len(t, dets, 0)
}

func TestDetectSSDTooFewOutputsErrors(t *testing.T) {
	cfg := DetectConfig{Type: DetectSSD, Thresh: 50}
	_, err := Detect([]tensorspec.Blob{f32Blob([]float32{0.9})}, cfg, 416, 416)
	assert.Error(t, err)
}

func TestDetectFasterRCNNRows(t *testing.T) {
	row := []float32{0, 2, 0.9, 5, 6, 55, 66}
	outputs := []tensorspec.Blob{f32Blob(row)}
	cfg := DetectConfig{Type: DetectFasterRCNN, Thresh: 50, NMSThresh: 50}
	dets, err := Detect(outputs, cfg, 416, 416)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, 2, dets[0].ClassID)
	assert.Equal(t, tensorspec.Rect{X1: 5, Y1: 6, X2: 55, Y2: 66}, dets[0].Rect)
}

func TestDetectYOLOPreDecodedRows(t *testing.T) {
	// One row: cx,cy,w,h,objConf,class0,class1,class2
	row := []float32{50, 50, 20, 20, 0.9, 0.1, 0.95, 0.05}
	outputs := []tensorspec.Blob{f32Blob(row)}
	cfg := DetectConfig{Type: DetectYOLO, Thresh: 50, NMSThresh: 50, ObjectClasses: 3}
	dets, err := Detect(outputs, cfg, 416, 416)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, 1, dets[0].ClassID)
	assert.InDelta(t, 0.855, dets[0].Score, 0.01)
	assert.Equal(t, tensorspec.Rect{X1: 40, Y1: 40, X2: 60, Y2: 60}, dets[0].Rect)
}

func TestDetectYOLOCornerFormRows(t *testing.T) {
	// Two rows of (x1,y1,x2,y2,score,class); row width 6 selects the
	// corner-form decode path regardless of ObjectClasses.
	rows := []float32{
		10, 10, 50, 50, 0.9, 2,
		100, 100, 120, 120, 0.2, 1, // below threshold, dropped
	}
	attr := tensorspec.TensorAttr{Type: tensorspec.TypeF32, Dims: []int{2, 6}}
	outputs := []tensorspec.Blob{tensorspec.NewFloat32Blob(attr, rows)}
	cfg := DetectConfig{Type: DetectYOLO, Thresh: 50, NMSThresh: 50, ObjectClasses: 80}
	dets, err := Detect(outputs, cfg, 416, 416)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, 2, dets[0].ClassID)
	assert.InDelta(t, 0.9, dets[0].Score, 1e-6)
	assert.Equal(t, tensorspec.Rect{X1: 10, Y1: 10, X2: 50, Y2: 50}, dets[0].Rect)
}

func TestDetectClampsToNetworkBounds(t *testing.T) {
	outputs := []tensorspec.Blob{
		f32Blob([]float32{0.9}),
		f32Blob([]float32{-5, -5, 5, 5}), // normalized, well outside [0,1]
		f32Blob([]float32{0}),
	}
	cfg := DetectConfig{Type: DetectSSD, Thresh: 50, NMSThresh: 50}
	dets, err := Detect(outputs, cfg, 300, 300)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, tensorspec.Rect{X1: 0, Y1: 0, X2: 300, Y2: 300}, dets[0].Rect)
}
