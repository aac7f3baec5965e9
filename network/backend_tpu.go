package network

import (
	"github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates/edgetpu"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// TPUConfig configures the TPU backend: a TensorFlow-Lite interpreter with
// an EdgeTPU delegate attached. TPUNum selects which physical EdgeTPU
// device to bind, matching the zoo's accelerator label resolution (see
// zoo.Accelerators).
type TPUConfig struct {
	ModelPath string
	TPUNum    int
	NumThread int
	InAttrs   []tensorspec.TensorAttr
	OutAttrs  []tensorspec.TensorAttr
}

// TPUBackend wraps a *tflite.Interpreter with an EdgeTPU delegate.
type TPUBackend struct {
	cfg    TPUConfig
	model  *tflite.Model
	interp *tflite.Interpreter
	opts   *tflite.InterpreterOptions
}

// NewTPUBackend returns a TPUBackend; load() is deferred until StartLoad.
func NewTPUBackend(cfg TPUConfig) *TPUBackend {
	return &TPUBackend{cfg: cfg}
}

func (b *TPUBackend) name() string { return "tpu" }

func (b *TPUBackend) load() error {
	model := tflite.NewModelFromFile(b.cfg.ModelPath)
	if model == nil {
		return errors.Errorf("tpu: cannot load model %s", b.cfg.ModelPath)
	}

	opts := tflite.NewInterpreterOptions()
	threads := b.cfg.NumThread
	if threads <= 0 {
		threads = 4
	}
	opts.SetNumThread(threads)

	devices, err := edgetpu.DeviceList()
	if err != nil {
		return errors.Wrap(err, "tpu: edgetpu.DeviceList")
	}
	if len(devices) == 0 {
		return errors.New("tpu: no EdgeTPU devices found")
	}
	idx := b.cfg.TPUNum
	if idx < 0 || idx >= len(devices) {
		idx = 0
	}
	opts.AddDelegate(edgetpu.New(devices[idx]))

	interp := tflite.NewInterpreter(model, opts)
	if interp == nil {
		return errors.New("tpu: cannot create interpreter")
	}
	if status := interp.AllocateTensors(); status != tflite.OK {
		return errors.New("tpu: AllocateTensors failed")
	}

	b.model = model
	b.opts = opts
	b.interp = interp
	return nil
}

func (b *TPUBackend) inputShapes() []tensorspec.TensorAttr  { return b.cfg.InAttrs }
func (b *TPUBackend) outputShapes() []tensorspec.TensorAttr { return b.cfg.OutAttrs }

func (b *TPUBackend) freeze(bool) {}

func (b *TPUBackend) doProcess(blobs []tensorspec.Blob, info *InfoBuilder) ([]tensorspec.Blob, error) {
	info.Header("Network (TPU)")
	if len(blobs) == 0 {
		return nil, errors.New("tpu: no input blobs")
	}

	input := b.interp.GetInputTensor(0)
	if err := fillInputTensor(input, blobs[0]); err != nil {
		return nil, err
	}

	if status := b.interp.Invoke(); status != tflite.OK {
		return nil, errors.New("tpu: Invoke failed")
	}

	outs := make([]tensorspec.Blob, 0, b.interp.GetOutputTensorCount())
	for i := 0; i < b.interp.GetOutputTensorCount(); i++ {
		out := b.interp.GetOutputTensor(i)
		blob := tensorTensorToBlob(out, b.outAttrFor(i))
		outs = append(outs, blob)
		info.Bullet("output " + blob.Attr.String())
	}
	return outs, nil
}

func fillInputTensor(t *tflite.Tensor, b tensorspec.Blob) error {
	switch t.Type() {
	case tflite.UInt8:
		t.SetUint8s(b.Uint8())
	case tflite.Float32:
		t.SetFloat32s(b.Float32())
	default:
		return errors.Errorf("tpu: unsupported input tensor type %v", t.Type())
	}
	return nil
}

func tensorTensorToBlob(t *tflite.Tensor, attr tensorspec.TensorAttr) tensorspec.Blob {
	switch t.Type() {
	case tflite.UInt8:
		qp := t.QuantizationParams()
		attr.Quant = tensorspec.Quant{
			Kind:      tensorspec.QuantAffineAsymmetric,
			Scale:     float64(qp.Scale),
			ZeroPoint: int64(qp.ZeroPoint),
		}
		attr.Type = tensorspec.TypeU8
		return tensorspec.Blob{Attr: attr, Data: t.UInt8s()}
	default:
		attr.Type = tensorspec.TypeF32
		return tensorspec.NewFloat32Blob(attr, t.Float32s())
	}
}

func (b *TPUBackend) outAttrFor(i int) tensorspec.TensorAttr {
	if i < len(b.cfg.OutAttrs) {
		return b.cfg.OutAttrs[i]
	}
	return tensorspec.TensorAttr{Layout: tensorspec.LayoutNA, Type: tensorspec.TypeF32, Dims: []int{1}}
}

// Close releases interpreter resources. Callers must call
// Network.WaitBeforeDestroy first.
func (b *TPUBackend) Close() {
	if b.opts != nil {
		b.opts.Delete()
	}
}
