package postprocess

import (
	gt "gorgonia.org/tensor"

	"github.com/nvr-ai/go-dnn-pipeline/errs"
	"github.com/nvr-ai/go-dnn-pipeline/labels"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// SegmentVariant selects how the Segment post-processor interprets its input
// tensor (§4.4.3).
type SegmentVariant string

const (
	// SegmentClasses reads a [H,W,C] tensor and argmaxes over the last axis.
	SegmentClasses SegmentVariant = "Classes"
	// SegmentClasses2 reads a [C,H,W] tensor and argmaxes over the first axis.
	SegmentClasses2 SegmentVariant = "Classes2"
	// SegmentArgMax reads a [H,W] tensor of class ids directly, no argmax.
	SegmentArgMax SegmentVariant = "ArgMax"
)

// SegmentConfig carries the Segment post-processor's zoo-supplied
// parameters.
type SegmentConfig struct {
	Variant SegmentVariant
	Labels  labels.Map
	// BackgroundID is excluded from the colorized overlay (rendered
	// transparent).
	BackgroundID int
}

// Segment decodes one output tensor into a dense per-pixel class id map at
// the tensor's native resolution. Callers upsample to the output image size
// with nearest-neighbor sampling when rendering.
func Segment(out tensorspec.Blob, cfg SegmentConfig) (SegmentResult, error) {
	dims := out.Attr.Dims
	switch cfg.Variant {
	case SegmentArgMax:
		if len(dims) != 2 {
			return SegmentResult{}, errs.NewShapeMismatch("segment.ArgMax", []int{0, 0}, dims)
		}
		h, w := dims[0], dims[1]
		data := out.Float32()
		ids := make([]int, h*w)
		for i, v := range data {
			ids[i] = int(v)
		}
		return SegmentResult{Width: w, Height: h, ClassIDs: ids}, nil

	case SegmentClasses:
		if len(dims) != 3 {
			return SegmentResult{}, errs.NewShapeMismatch("segment.Classes", []int{0, 0, 0}, dims)
		}
		return argmaxAxis(out.Float32(), dims, 2)

	case SegmentClasses2:
		if len(dims) != 3 {
			return SegmentResult{}, errs.NewShapeMismatch("segment.Classes2", []int{0, 0, 0}, dims)
		}
		return argmaxAxis(out.Float32(), dims, 0)

	default:
		return SegmentResult{}, errs.NewShapeMismatch("segment: unknown variant", nil, dims)
	}
}

// argmaxAxis wraps gorgonia.org/tensor's Argmax to find, for every (h,w)
// position, the channel index with the largest score, regardless of whether
// the channel axis is last (Classes, [H,W,C]) or first (Classes2, [C,H,W]).
func argmaxAxis(data []float32, dims []int, classAxis int) (SegmentResult, error) {
	dense := gt.New(gt.WithShape(dims...), gt.WithBacking(data))
	idsTensor, err := dense.Argmax(classAxis)
	if err != nil {
		return SegmentResult{}, errs.NewBackendFailure("gorgonia.org/tensor", "argmax", err)
	}

	var h, w int
	if classAxis == 2 {
		h, w = dims[0], dims[1]
	} else {
		h, w = dims[1], dims[2]
	}

	raw, ok := idsTensor.Data().([]int)
	if !ok {
		return SegmentResult{}, errs.NewBackendFailure("gorgonia.org/tensor", "argmax result not []int", nil)
	}
	ids := make([]int, len(raw))
	copy(ids, raw)
	return SegmentResult{Width: w, Height: h, ClassIDs: ids}, nil
}

// Upsample nearest-neighbor-scales a SegmentResult to (dstW, dstH).
func Upsample(src SegmentResult, dstW, dstH int) SegmentResult {
	if src.Width == dstW && src.Height == dstH {
		return src
	}
	ids := make([]int, dstW*dstH)
	for y := 0; y < dstH; y++ {
		sy := y * src.Height / dstH
		for x := 0; x < dstW; x++ {
			sx := x * src.Width / dstW
			ids[y*dstW+x] = src.At(sx, sy)
		}
	}
	return SegmentResult{Width: dstW, Height: dstH, ClassIDs: ids}
}

// OverlayColor resolves the colorized overlay color for a class id, per the
// original stringToRGBA convention adapted to operate on labels instead of
// raw ids. Returns ok=false for the background id, which callers should
// render transparent.
func OverlayColor(m labels.Map, id, backgroundID int, alpha uint8) (uint32, bool) {
	if id == backgroundID {
		return 0, false
	}
	return tensorspec.LabelToColor(resolveLabel(m, id, 0), alpha), true
}
