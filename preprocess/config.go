package preprocess

import (
	"image"

	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
	"gocv.io/x/gocv"
)

// Kind selects which PreProcessor variant a zoo entry requests.
type Kind string

const (
	KindBlob   Kind = "Blob"
	KindCustom Kind = "Custom"
)

// Config holds the built-in Blob preprocessor's parameters, sourced from a
// zoo entry's mean, scale and rgb keys. The entry's resize key is not
// applied: CenterCrop always keeps its DefaultConfig value.
type Config struct {
	// Mean is subtracted per channel before Scale is applied. Length must be
	// 1 (broadcast) or equal to the number of channels.
	Mean []float32
	// Scale multiplies each channel after Mean subtraction.
	Scale []float32
	// RGB, when true, swaps channel order from the captured BGR to RGB
	// before packing.
	RGB bool
	// CenterCrop, when true, crops to the input tensor's aspect ratio before
	// resizing; when false, the full frame is resized (aspect distorted).
	CenterCrop bool
}

// DefaultConfig mirrors typical ImageNet-style normalization: mean 0,
// scale 1/255, BGR passthrough, center-crop to the input aspect ratio.
func DefaultConfig() Config {
	return Config{
		Mean:       []float32{0, 0, 0},
		Scale:      []float32{1.0 / 255, 1.0 / 255, 1.0 / 255},
		RGB:        false,
		CenterCrop: true,
	}
}

// Stage is the PreProcessor contract: given a source frame and the set of
// input TensorAttrs the Network declares, produce the matching Blobs.
type Stage interface {
	// Process converts frame into one Blob per attr, in attrs order.
	Process(frame Frame, attrs []tensorspec.TensorAttr) ([]tensorspec.Blob, error)
}

// Frame is the minimal source-image contract the preprocessor needs: pixel
// dimensions and access to backend-specific image data. Concrete frames are
// produced by the camera loop (an external collaborator) and wrap either a
// gocv.Mat (the common case, captured BGR) or a decoded image.Image (used by
// the pure-Go fallback path when no gocv.Mat is available).
type Frame struct {
	// Mat is the captured frame as a BGR gocv.Mat. Preferred path: the same
	// SIMD-accelerated resize/colorspace code the OpenCV Network backend
	// uses also serves preprocessing here.
	Mat gocv.Mat
	// Image is a decoded image.Image, used only when Mat is empty (e.g. the
	// Custom preproc seat operating on a pre-decoded JPEG/WebP/PNG frame).
	Image image.Image
}

// Size returns the frame's pixel dimensions, preferring Mat when present.
func (f Frame) Size() (width, height int) {
	if !f.Mat.Empty() {
		return f.Mat.Cols(), f.Mat.Rows()
	}
	if f.Image != nil {
		b := f.Image.Bounds()
		return b.Dx(), b.Dy()
	}
	return 0, 0
}
