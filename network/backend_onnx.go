package network

import (
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

var ortInitOnce sync.Once
var ortInitErr error

// ExecutionProvider selects which onnxruntime execution provider to append
// to the session options, mirroring the inherited codebase's provider
// selection switch.
type ExecutionProvider string

const (
	ExecutionProviderCPU      ExecutionProvider = "cpu"
	ExecutionProviderCUDA     ExecutionProvider = "cuda"
	ExecutionProviderCoreML   ExecutionProvider = "coreml"
	ExecutionProviderOpenVINO ExecutionProvider = "openvino"
)

// ONNXConfig configures the ONNX Runtime backend. This is the OpenCV-class
// nettype's sibling for model formats OpenCV's DNN module cannot read
// natively (transformer detection heads, D-FINE/RF-DETR style exports).
type ONNXConfig struct {
	ModelPath         string
	SharedLibraryPath string
	InputName         string
	OutputName        string
	InAttrs           []tensorspec.TensorAttr
	OutAttrs          []tensorspec.TensorAttr
	Provider          ExecutionProvider
	InterOpThreads    int
	IntraOpThreads    int
}

// ONNXBackend wraps an *ort.AdvancedSession.
type ONNXBackend struct {
	cfg     ONNXConfig
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNXBackend returns an ONNXBackend; load() is deferred until StartLoad.
func NewONNXBackend(cfg ONNXConfig) *ONNXBackend {
	return &ONNXBackend{cfg: cfg}
}

func (b *ONNXBackend) name() string { return "onnxruntime" }

// load initializes the shared onnxruntime environment exactly once process-
// wide, then builds a session scoped to this backend instance, following
// the inherited codebase's NewSession order of operations: locate the
// shared library, set the log level, initialize the environment, build
// input/output tensors from the declared attrs, select session options and
// an execution provider, then construct the advanced session.
func (b *ONNXBackend) load() error {
	ortInitOnce.Do(func() {
		if b.cfg.SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(b.cfg.SharedLibraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return errors.Wrap(ortInitErr, "onnxruntime: InitializeEnvironment")
	}

	inShape, err := toOrtShape(b.cfg.InAttrs)
	if err != nil {
		return err
	}
	outShape, err := toOrtShape(b.cfg.OutAttrs)
	if err != nil {
		return err
	}

	input, err := ort.NewEmptyTensor[float32](inShape)
	if err != nil {
		return errors.Wrap(err, "onnxruntime: NewEmptyTensor input")
	}
	output, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		input.Destroy()
		return errors.Wrap(err, "onnxruntime: NewEmptyTensor output")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return errors.Wrap(err, "onnxruntime: NewSessionOptions")
	}
	defer options.Destroy()
	if b.cfg.InterOpThreads > 0 {
		_ = options.SetInterOpNumThreads(b.cfg.InterOpThreads)
	}
	if b.cfg.IntraOpThreads > 0 {
		_ = options.SetIntraOpNumThreads(b.cfg.IntraOpThreads)
	}
	_ = options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	switch b.cfg.Provider {
	case ExecutionProviderCoreML:
		_ = options.AppendExecutionProviderCoreML(0)
	case ExecutionProviderCUDA:
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err == nil {
			_ = options.AppendExecutionProviderCUDA(cudaOpts)
			cudaOpts.Destroy()
		}
	}

	inputName := b.cfg.InputName
	if inputName == "" {
		inputName = "images"
	}
	outputName := b.cfg.OutputName
	if outputName == "" {
		outputName = "output0"
	}

	session, err := ort.NewAdvancedSession(
		b.cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return errors.Wrap(err, "onnxruntime: NewAdvancedSession")
	}

	b.session = session
	b.input = input
	b.output = output
	return nil
}

func toOrtShape(attrs []tensorspec.TensorAttr) (ort.Shape, error) {
	if len(attrs) == 0 {
		return nil, errors.New("onnxruntime: no declared tensor attrs")
	}
	dims := make([]int64, len(attrs[0].Dims))
	for i, d := range attrs[0].Dims {
		dims[i] = int64(d)
	}
	return ort.NewShape(dims...), nil
}

func (b *ONNXBackend) inputShapes() []tensorspec.TensorAttr  { return b.cfg.InAttrs }
func (b *ONNXBackend) outputShapes() []tensorspec.TensorAttr { return b.cfg.OutAttrs }

func (b *ONNXBackend) freeze(bool) {}

func (b *ONNXBackend) doProcess(blobs []tensorspec.Blob, info *InfoBuilder) ([]tensorspec.Blob, error) {
	info.Header("Network (onnxruntime)")
	if len(blobs) == 0 {
		return nil, errors.New("onnxruntime: no input blobs")
	}
	copy(b.input.GetData(), blobs[0].Float32())

	if err := b.session.Run(); err != nil {
		return nil, errors.Wrap(err, "onnxruntime: Run")
	}

	out := append([]float32{}, b.output.GetData()...)
	attr := b.outAttr()
	info.Bullet("output: " + attr.String())
	return []tensorspec.Blob{tensorspec.NewFloat32Blob(attr, out)}, nil
}

func (b *ONNXBackend) outAttr() tensorspec.TensorAttr {
	if len(b.cfg.OutAttrs) > 0 {
		return b.cfg.OutAttrs[0]
	}
	return tensorspec.TensorAttr{Layout: tensorspec.LayoutNA, Type: tensorspec.TypeF32, Dims: []int{len(b.output.GetData())}}
}

// Close releases the session and tensors. Callers must call
// Network.WaitBeforeDestroy first.
func (b *ONNXBackend) Close() {
	if b.input != nil {
		b.input.Destroy()
	}
	if b.output != nil {
		b.output.Destroy()
	}
	if b.session != nil {
		b.session.Destroy()
	}
}
