package network

import (
	"github.com/pkg/errors"
	"github.com/swdee/go-rknnlite"

	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// NPUConfig configures the NPU backend, which targets Rockchip-style
// accelerators through go-rknnlite. Outputs come back as native int8 grids
// carrying their own per-tensor zero-point/scale, which the Detect
// post-processor's quantized raw-grid variant dequantizes per cell.
type NPUConfig struct {
	ModelPath string
	Core      rknnlite.CoreMask
	InAttrs   []tensorspec.TensorAttr
	OutAttrs  []tensorspec.TensorAttr
}

// NPUBackend wraps an *rknnlite.Runtime.
type NPUBackend struct {
	cfg     NPUConfig
	runtime *rknnlite.Runtime
}

// NewNPUBackend returns an NPUBackend; load() is deferred until StartLoad.
func NewNPUBackend(cfg NPUConfig) *NPUBackend {
	return &NPUBackend{cfg: cfg}
}

func (b *NPUBackend) name() string { return "npu" }

func (b *NPUBackend) load() error {
	core := b.cfg.Core
	if core == 0 {
		core = rknnlite.NPUCoreAuto
	}
	rt, err := rknnlite.NewRuntime(b.cfg.ModelPath, core)
	if err != nil {
		return errors.Wrapf(err, "npu: NewRuntime %s", b.cfg.ModelPath)
	}
	b.runtime = rt
	return nil
}

func (b *NPUBackend) inputShapes() []tensorspec.TensorAttr  { return b.cfg.InAttrs }
func (b *NPUBackend) outputShapes() []tensorspec.TensorAttr { return b.cfg.OutAttrs }

func (b *NPUBackend) freeze(bool) {}

func (b *NPUBackend) doProcess(blobs []tensorspec.Blob, info *InfoBuilder) ([]tensorspec.Blob, error) {
	info.Header("Network (NPU)")
	if len(blobs) == 0 {
		return nil, errors.New("npu: no input blobs")
	}

	outputs, err := b.runtime.Inference([]tensorspec.Blob{blobs[0]})
	if err != nil {
		return nil, errors.Wrap(err, "npu: Inference")
	}

	results := make([]tensorspec.Blob, 0, len(outputs.Output))
	for i, o := range outputs.Output {
		attr := b.outAttrFor(i, outputs)
		results = append(results, tensorspec.Blob{Attr: attr, Data: o.BufInt})
		info.Bullet("output " + attr.String())
	}
	return results, nil
}

func (b *NPUBackend) outAttrFor(i int, outputs *rknnlite.Outputs) tensorspec.TensorAttr {
	if i < len(b.cfg.OutAttrs) {
		attr := b.cfg.OutAttrs[i]
		out := outputs.OutputAttributes()
		if i < len(out.Scales) {
			attr.Quant = tensorspec.Quant{
				Kind:      tensorspec.QuantAffineAsymmetric,
				Scale:     float64(out.Scales[i]),
				ZeroPoint: int64(out.ZPs[i]),
			}
		}
		return attr
	}
	return tensorspec.TensorAttr{Layout: tensorspec.LayoutNA, Type: tensorspec.TypeI8, Dims: []int{1}}
}

// Close releases the runtime. Callers must call Network.WaitBeforeDestroy
// first.
func (b *NPUBackend) Close() {
	if b.runtime != nil {
		b.runtime.Close()
	}
}
