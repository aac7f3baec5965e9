// Package network loads model weights once per configuration and runs the
// forward pass on one of several backends (OpenCV, NPU, TPU, or a
// user-supplied Custom implementation), uniformly applying post-network
// dequantization and output flattening regardless of which backend produced
// the raw outputs.
package network

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-dnn-pipeline/errs"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// Backend is the contract a concrete network implementation (OpenCV, NPU,
// TPU, Custom) must satisfy. load/doProcess are only ever called by Network
// itself, from the background load goroutine and the owning pipeline thread
// respectively, never concurrently with each other.
type Backend interface {
	// load reads the model file into backend memory. Called at most once per
	// Network instance's lifetime, on a background goroutine.
	load() error
	// inputShapes/outputShapes are valid only once loading has begun;
	// callers must check Network.Ready first.
	inputShapes() []tensorspec.TensorAttr
	outputShapes() []tensorspec.TensorAttr
	// doProcess runs the forward pass, appending human-readable info lines.
	doProcess(blobs []tensorspec.Blob, info *InfoBuilder) ([]tensorspec.Blob, error)
	// freeze locks or unlocks parameters that identify the loaded model.
	freeze(doit bool)
	// name identifies the backend in BackendFailure messages and info lines.
	name() string
}

// Config carries the post-network shaping flags, independent of backend.
type Config struct {
	// Dequant, when true, converts every quantized integer output to f32.
	Dequant bool
	// FlattenOutputs, when true (only meaningful with Dequant), concatenates
	// all dequantized outputs into a single 1-D f32 vector in output-index
	// order.
	FlattenOutputs bool
}

// Network wraps a Backend with the async-load readiness protocol and
// uniform post-processing shaping described by the pipeline's Network
// contract.
type Network struct {
	backend Backend
	config  Config

	loading atomic.Bool
	loaded  atomic.Bool
	loadErr atomic.Value // error

	loadOnce sync.Once
	loadWG   sync.WaitGroup

	frozen atomic.Bool
}

// New wraps backend with config. load() is not started until StartLoad is
// called by the pipeline controller during reconfiguration.
func New(backend Backend, config Config) *Network {
	return &Network{backend: backend, config: config}
}

// StartLoad begins loading in the background. Idempotent: subsequent calls
// are no-ops once a load has been started for this instance.
func (n *Network) StartLoad() {
	n.loadOnce.Do(func() {
		n.loading.Store(true)
		n.loadWG.Add(1)
		go func() {
			defer n.loadWG.Done()
			err := n.backend.load()
			if err != nil {
				n.loadErr.Store(err)
			}
			n.loading.Store(false)
			n.loaded.Store(err == nil)
		}()
	})
}

// Ready reports whether the network has finished loading successfully.
// loading => !loaded and loaded => !loading hold at every observation.
func (n *Network) Ready() bool {
	return n.loaded.Load()
}

// WaitBeforeDestroy blocks until any in-progress load completes. Derived
// backends' owning Network must call this before releasing backend
// resources, matching the originating contract's destructor requirement.
func (n *Network) WaitBeforeDestroy() {
	n.loadWG.Wait()
}

// InputShapes returns the backend's declared input tensor attributes.
// Valid only after StartLoad has been called.
func (n *Network) InputShapes() []tensorspec.TensorAttr {
	return n.backend.inputShapes()
}

// OutputShapes returns the backend's declared output tensor attributes.
func (n *Network) OutputShapes() []tensorspec.TensorAttr {
	return n.backend.outputShapes()
}

// Freeze propagates to the backend.
func (n *Network) Freeze(doit bool) {
	n.frozen.Store(doit)
	n.backend.freeze(doit)
}

// Process runs the forward pass and applies post-network shaping. info
// receives the backend's diagnostic lines. Returns
// ErrModelNotLoaded if called before loading completes.
func (n *Network) Process(blobs []tensorspec.Blob, info *InfoBuilder) ([]tensorspec.Blob, error) {
	if n.loading.Load() {
		return nil, errs.ErrModelNotLoaded
	}
	if !n.loaded.Load() {
		if v := n.loadErr.Load(); v != nil {
			return nil, errs.NewBackendFailure(n.backend.name(), "load failed", v.(error))
		}
		return nil, errs.ErrModelNotLoaded
	}

	if err := n.checkShapes(blobs); err != nil {
		return nil, err
	}

	outputs, err := n.backend.doProcess(blobs, info)
	if err != nil {
		return nil, errs.NewBackendFailure(n.backend.name(), "forward pass failed", err)
	}

	return n.shape(outputs), nil
}

func (n *Network) checkShapes(blobs []tensorspec.Blob) error {
	expected := n.backend.inputShapes()
	if len(expected) == 0 {
		return nil
	}
	if len(blobs) != len(expected) {
		return errs.NewShapeMismatch(n.backend.name(), []int{len(expected)}, []int{len(blobs)})
	}
	for i, b := range blobs {
		if !dimsEqual(b.Attr.Dims, expected[i].Dims) {
			return errs.NewShapeMismatch(n.backend.name(), expected[i].Dims, b.Attr.Dims)
		}
	}
	return nil
}

func dimsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// shape applies Dequant/FlattenOutputs per Config.
func (n *Network) shape(outputs []tensorspec.Blob) []tensorspec.Blob {
	if !n.config.Dequant {
		return outputs
	}
	dequantized := make([]tensorspec.Blob, len(outputs))
	for i, o := range outputs {
		dequantized[i] = o.Dequantize()
	}
	if !n.config.FlattenOutputs {
		return dequantized
	}
	var flat []float32
	for _, o := range dequantized {
		flat = append(flat, o.Float32()...)
	}
	attr := tensorspec.TensorAttr{
		Layout: tensorspec.LayoutNA,
		Type:   tensorspec.TypeF32,
		Dims:   []int{len(flat)},
	}
	return []tensorspec.Blob{tensorspec.NewFloat32Blob(attr, flat)}
}

// LoadError returns the error from a failed load, or nil.
func (n *Network) LoadError() error {
	if v := n.loadErr.Load(); v != nil {
		return errors.WithStack(v.(error))
	}
	return nil
}
