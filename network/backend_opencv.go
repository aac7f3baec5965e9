package network

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// Target selects the OpenCV compute target for the OpenCV backend.
type Target string

const (
	TargetCPU        Target = "CPU"
	TargetOpenCL     Target = "OpenCL"
	TargetOpenCLFP16 Target = "OpenCL_FP16"
	TargetMyriad     Target = "Myriad"
)

var targetMap = map[Target]gocv.NetTargetType{
	TargetCPU:        gocv.NetTargetCPU,
	TargetOpenCL:     gocv.NetTargetOpenCL,
	TargetOpenCLFP16: gocv.NetTargetOpenCLFP16,
	TargetMyriad:     gocv.NetTargetMyriadX,
}

// OpenCVConfig configures the OpenCV backend, sourced from a zoo entry's
// network.config/model/target/backend keys.
type OpenCVConfig struct {
	ConfigPath string
	ModelPath  string
	Target     Target
	InAttrs    []tensorspec.TensorAttr
	OutAttrs   []tensorspec.TensorAttr
	OutNames   []string
}

// OpenCVBackend wraps a gocv.Net loaded via gocv.ReadNet, covering Caffe,
// TensorFlow, Darknet, and ONNX graphs that OpenCV's DNN module reads
// natively.
type OpenCVBackend struct {
	cfg OpenCVConfig
	net gocv.Net
}

// NewOpenCVBackend returns an OpenCVBackend; load() is deferred until the
// owning Network calls StartLoad.
func NewOpenCVBackend(cfg OpenCVConfig) *OpenCVBackend {
	return &OpenCVBackend{cfg: cfg}
}

func (b *OpenCVBackend) name() string { return "opencv" }

func (b *OpenCVBackend) load() error {
	net := gocv.ReadNet(b.cfg.ModelPath, b.cfg.ConfigPath)
	if net.Empty() {
		return errors.Errorf("opencv: ReadNet returned an empty network for model %s", b.cfg.ModelPath)
	}
	target := b.cfg.Target
	if target == "" {
		target = TargetCPU
	}
	if t, ok := targetMap[target]; ok {
		if err := net.SetPreferableTarget(t); err != nil {
			return errors.Wrap(err, "opencv: SetPreferableTarget")
		}
	}
	b.net = net
	return nil
}

func (b *OpenCVBackend) inputShapes() []tensorspec.TensorAttr  { return b.cfg.InAttrs }
func (b *OpenCVBackend) outputShapes() []tensorspec.TensorAttr { return b.cfg.OutAttrs }

func (b *OpenCVBackend) freeze(bool) {}

func (b *OpenCVBackend) doProcess(blobs []tensorspec.Blob, info *InfoBuilder) ([]tensorspec.Blob, error) {
	info.Header("Network (OpenCV)")
	if len(blobs) == 0 {
		return nil, errors.New("opencv: no input blobs")
	}

	mat, err := blobToMat(blobs[0])
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	b.net.SetInput(mat, "")
	outNames := b.cfg.OutNames
	if len(outNames) == 0 {
		outNames = []string{b.net.GetUnconnectedOutLayersNames()[0]}
	}

	outs := make([]tensorspec.Blob, 0, len(outNames))
	for i, name := range outNames {
		out := b.net.Forward(name)
		blob, err := matToBlob(out, b.outAttrFor(i))
		out.Close()
		if err != nil {
			return nil, err
		}
		outs = append(outs, blob)
		info.Bullet("output " + name + ": " + blob.Attr.String())
	}
	return outs, nil
}

func (b *OpenCVBackend) outAttrFor(i int) tensorspec.TensorAttr {
	if i < len(b.cfg.OutAttrs) {
		return b.cfg.OutAttrs[i]
	}
	return tensorspec.TensorAttr{Layout: tensorspec.LayoutNA, Type: tensorspec.TypeF32, Dims: []int{1}}
}

func blobToMat(b tensorspec.Blob) (gocv.Mat, error) {
	dims := b.Attr.Dims
	if len(dims) != 4 {
		return gocv.Mat{}, errors.Errorf("opencv: expected rank-4 blob, got rank %d", len(dims))
	}
	values := b.Float32()
	mat, err := gocv.NewMatFromBytes(dims[2], dims[3]*dims[1], gocv.MatTypeCV32F, float32sToBytes(values))
	if err != nil {
		return gocv.Mat{}, errors.Wrap(err, "opencv: NewMatFromBytes")
	}
	return mat, nil
}

func matToBlob(m gocv.Mat, attr tensorspec.TensorAttr) (tensorspec.Blob, error) {
	data, err := m.DataPtrFloat32()
	if err != nil {
		return tensorspec.Blob{}, errors.Wrap(err, "opencv: DataPtrFloat32")
	}
	cp := make([]float32, len(data))
	copy(cp, data)
	return tensorspec.NewFloat32Blob(attr, cp), nil
}

func float32sToBytes(v []float32) []byte {
	attr := tensorspec.TensorAttr{Dims: []int{len(v)}, Type: tensorspec.TypeF32}
	return tensorspec.NewFloat32Blob(attr, v).Data
}
