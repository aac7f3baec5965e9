package preprocess

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-dnn-pipeline/errs"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// BlobStage is the built-in PreProcessor variant. For each declared input
// TensorAttr it crops, resizes, color-converts, normalizes, and packs one
// matching Blob.
type BlobStage struct {
	Config Config
}

// NewBlobStage returns a BlobStage with cfg, or DefaultConfig if cfg is the
// zero value's sentinel (nil Scale).
func NewBlobStage(cfg Config) *BlobStage {
	if cfg.Scale == nil {
		cfg = DefaultConfig()
	}
	return &BlobStage{Config: cfg}
}

// Process implements Stage.
func (p *BlobStage) Process(frame Frame, attrs []tensorspec.TensorAttr) ([]tensorspec.Blob, error) {
	blobs := make([]tensorspec.Blob, 0, len(attrs))
	for _, attr := range attrs {
		blob, err := p.processOne(frame, attr)
		if err != nil {
			return nil, errors.Wrap(err, "preprocess: blob stage")
		}
		blobs = append(blobs, blob)
	}
	if len(blobs) != len(attrs) {
		return nil, errs.NewBlobShapeMismatch("blob-count", []int{len(attrs)}, []int{len(blobs)})
	}
	return blobs, nil
}

func (p *BlobStage) processOne(frame Frame, attr tensorspec.TensorAttr) (tensorspec.Blob, error) {
	n, c, h, w, err := dims(attr)
	if err != nil {
		return tensorspec.Blob{}, err
	}

	var planar [][]float32 // one slice per channel, row-major HxW
	if !frame.Mat.Empty() {
		planar, err = planarFromMat(frame.Mat, c, w, h, p.Config)
	} else if frame.Image != nil {
		planar, err = planarFromImage(frame.Image, c, w, h, p.Config)
	} else {
		return tensorspec.Blob{}, errors.New("preprocess: frame has neither Mat nor Image")
	}
	if err != nil {
		return tensorspec.Blob{}, err
	}

	values := pack(planar, attr.Layout, n, c, h, w)
	return castAndQuantize(attr, values)
}

// dims extracts (N, C, H, W) from a 4-rank TensorAttr according to its
// Layout. Layout NA is treated as NCHW.
func dims(attr tensorspec.TensorAttr) (n, c, h, w int, err error) {
	if attr.Rank() != 4 {
		return 0, 0, 0, 0, errors.Errorf("preprocess: expected rank-4 input tensor, got rank %d", attr.Rank())
	}
	d := attr.Dims
	if attr.Layout == tensorspec.LayoutNHWC {
		return d[0], d[3], d[1], d[2], nil
	}
	return d[0], d[1], d[2], d[3], nil
}

func planarFromMat(mat gocv.Mat, c, w, h int, cfg Config) ([][]float32, error) {
	cropped := centerCropMat(mat, w, h, cfg.CenterCrop)
	defer func() {
		if cropped.Ptr() != mat.Ptr() {
			cropped.Close()
		}
	}()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(cropped, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)

	if cfg.RGB {
		rgb := gocv.NewMat()
		gocv.CvtColor(resized, &rgb, gocv.ColorBGRToRGB)
		resized.Close()
		resized = rgb
	}

	f32 := gocv.NewMat()
	defer f32.Close()
	resized.ConvertTo(&f32, gocv.MatTypeCV32F)

	data, err := f32.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "preprocess: DataPtrFloat32")
	}

	planar := make([][]float32, c)
	for ch := 0; ch < c; ch++ {
		planar[ch] = make([]float32, h*w)
	}
	mean := broadcast(cfg.Mean, c)
	scale := broadcast(cfg.Scale, c)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix := (y*w + x) * c
			for ch := 0; ch < c; ch++ {
				planar[ch][y*w+x] = (data[pix+ch] - mean[ch]) * scale[ch]
			}
		}
	}
	return planar, nil
}

func planarFromImage(img image.Image, c, w, h int, cfg Config) ([][]float32, error) {
	resized := resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	planar := make([][]float32, c)
	for ch := 0; ch < c; ch++ {
		planar[ch] = make([]float32, h*w)
	}
	mean := broadcast(cfg.Mean, c)
	scale := broadcast(cfg.Scale, c)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			vals := [3]float32{float32(r >> 8), float32(g >> 8), float32(b >> 8)}
			if cfg.RGB {
				// image.Image decodes RGB already; no swap needed.
			} else {
				vals[0], vals[2] = vals[2], vals[0] // emulate BGR capture
			}
			for ch := 0; ch < c && ch < 3; ch++ {
				planar[ch][y*w+x] = (vals[ch] - mean[ch]) * scale[ch]
			}
		}
	}
	return planar, nil
}

func centerCropMat(mat gocv.Mat, targetW, targetH int, enabled bool) gocv.Mat {
	if !enabled {
		return mat
	}
	srcW, srcH := mat.Cols(), mat.Rows()
	targetAspect := float64(targetW) / float64(targetH)
	srcAspect := float64(srcW) / float64(srcH)
	if srcAspect == targetAspect {
		return mat
	}
	var cropW, cropH int
	if srcAspect > targetAspect {
		cropH = srcH
		cropW = int(float64(srcH) * targetAspect)
	} else {
		cropW = srcW
		cropH = int(float64(srcW) / targetAspect)
	}
	x := (srcW - cropW) / 2
	y := (srcH - cropH) / 2
	return mat.Region(image.Rect(x, y, x+cropW, y+cropH))
}

func broadcast(v []float32, c int) []float32 {
	if len(v) == c {
		return v
	}
	out := make([]float32, c)
	fill := float32(0)
	if len(v) > 0 {
		fill = v[0]
	}
	for i := range out {
		out[i] = fill
	}
	return out
}

// pack interleaves per-channel planar data into the declared layout order.
func pack(planar [][]float32, layout tensorspec.Layout, n, c, h, w int) []float32 {
	out := make([]float32, n*c*h*w)
	if layout == tensorspec.LayoutNHWC {
		i := 0
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for ch := 0; ch < c; ch++ {
					out[i] = planar[ch][y*w+x]
					i++
				}
			}
		}
		return out
	}
	i := 0
	for ch := 0; ch < c; ch++ {
		copy(out[i:i+h*w], planar[ch])
		i += h * w
	}
	return out
}

// castAndQuantize converts packed float32 values to the declared element
// type, applying affine-asymmetric or dynamic-fixed-point quantization when
// requested.
func castAndQuantize(attr tensorspec.TensorAttr, values []float32) (tensorspec.Blob, error) {
	width := tensorspec.ByteWidth(attr.Type)
	switch attr.Quant.Kind {
	case tensorspec.QuantAffineAsymmetric:
		lo, hi := typeRange(attr.Type)
		raw := make([]byte, width*len(values))
		for i, v := range values {
			q := tensorspec.QuantAffine(v, attr.Quant.Scale, attr.Quant.ZeroPoint, lo, hi)
			tensorspec.PutQuantized(attr.Type, raw, i, q)
		}
		return tensorspec.Blob{Attr: attr, Data: raw}, nil
	case tensorspec.QuantDynamicFixedPoint:
		raw := make([]byte, width*len(values))
		for i, v := range values {
			tensorspec.PutQuantized(attr.Type, raw, i, tensorspec.QuantDFP(v, attr.Quant.FractionalLength))
		}
		return tensorspec.Blob{Attr: attr, Data: raw}, nil
	default:
		return tensorspec.NewFloat32Blob(attr, values), nil
	}
}

// typeRange returns the saturation bounds for t's affine-asymmetric
// quantization, covering every integer type in the closed element-type set.
func typeRange(t tensorspec.ElementType) (lo, hi int64) {
	switch t {
	case tensorspec.TypeU8:
		return 0, 255
	case tensorspec.TypeI8:
		return -128, 127
	case tensorspec.TypeU16:
		return 0, 65535
	case tensorspec.TypeI16:
		return -32768, 32767
	case tensorspec.TypeU32:
		return 0, 4294967295
	case tensorspec.TypeI32:
		return -2147483648, 2147483647
	default:
		return 0, 255
	}
}
