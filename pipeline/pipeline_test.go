package pipeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-dnn-pipeline/errs"
	"github.com/nvr-ai/go-dnn-pipeline/network"
	"github.com/nvr-ai/go-dnn-pipeline/postprocess"
	"github.com/nvr-ai/go-dnn-pipeline/preprocess"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// countingStage packs a monotonically increasing counter value into a
// single-element Blob each call, independent of the input Frame, so a test
// can trace which launch's output surfaces in which decoded Result.
type countingStage struct {
	next int32
}

func (c *countingStage) Process(preprocess.Frame, []tensorspec.TensorAttr) ([]tensorspec.Blob, error) {
	n := atomic.AddInt32(&c.next, 1) - 1
	attr := tensorspec.TensorAttr{Type: tensorspec.TypeF32, Dims: []int{1}}
	return []tensorspec.Blob{tensorspec.NewFloat32Blob(attr, []float32{float32(n)})}, nil
}

func newReadyNetwork(t *testing.T, backend *network.StubBackend) *network.Network {
	t.Helper()
	n := network.New(backend, network.Config{})
	n.StartLoad()
	n.WaitBeforeDestroy()
	return n
}

func TestProcessSyncClassifyHappyPath(t *testing.T) {
	net := newReadyNetwork(t, &network.StubBackend{})

	p := &Pipeline{
		state:    StateReady,
		preproc:  &countingStage{},
		net:      net,
		postKind: PostProcClassify,
	}
	p.classifyCfg.Cfg = postprocess.ClassifyConfig{Top: 1}

	res, err := p.Process(preprocess.Frame{})
	require.NoError(t, err)
	assert.Equal(t, PostProcClassify, res.Kind)
	require.Len(t, res.Classify, 1)
	assert.Equal(t, float32(0), res.Classify[0].Score)
}

func TestProcessBeforeLoadCompletesErrors(t *testing.T) {
	net := network.New(&network.StubBackend{}, network.Config{})
	// StartLoad deliberately not called: net.Ready() stays false.
	p := &Pipeline{state: StateReady, preproc: &countingStage{}, net: net}
	_, err := p.Process(preprocess.Frame{})
	assert.ErrorIs(t, err, errs.ErrModelNotLoaded)
}

func TestProcessStickyErrorReturnedOnce(t *testing.T) {
	boom := errors.New("forward pass exploded")
	backend := &network.StubBackend{Produce: func(b []tensorspec.Blob) ([]tensorspec.Blob, error) {
		return nil, boom
	}}
	net := newReadyNetwork(t, backend)
	p := &Pipeline{state: StateReady, preproc: &countingStage{}, net: net, postKind: PostProcClassify}

	_, err := p.Process(preprocess.Frame{})
	assert.Error(t, err)
	assert.Equal(t, StateError, p.State())

	res, err := p.Process(preprocess.Frame{})
	assert.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

// releaseWith unblocks one gated inference with a single-element Blob
// carrying val, matching what countingStage would have produced.
func releaseWith(gate chan []tensorspec.Blob, val float32) {
	attr := tensorspec.TensorAttr{Type: tensorspec.TypeF32, Dims: []int{1}}
	gate <- []tensorspec.Blob{tensorspec.NewFloat32Blob(attr, []float32{val})}
}

// TestAsyncOneFrameLatencyOrdering drives the async path with a network
// backend slower than the caller's polling rate: at most one inference is
// ever in flight, and each decoded result is the most recently *completed*
// inference's output, surfacing one launch after it started.
func TestAsyncOneFrameLatencyOrdering(t *testing.T) {
	started := make(chan []tensorspec.Blob, 1)
	gate := make(chan []tensorspec.Blob)
	backend := &network.StubBackend{Started: started, Gate: gate}
	net := newReadyNetwork(t, backend)

	p := &Pipeline{
		state:    StateReady,
		preproc:  &countingStage{},
		net:      net,
		postKind: PostProcClassify,
		async:    true,
	}
	p.classifyCfg.Cfg = postprocess.ClassifyConfig{Top: 1}

	res, err := p.Process(preprocess.Frame{})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	<-started // inference 0 (counter value 0) has begun

	res, err = p.Process(preprocess.Frame{})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res) // inference 0 still running, nothing decoded yet

	releaseWith(gate, 0)

	require.Eventually(t, func() bool {
		res, err = p.Process(preprocess.Frame{})
		return err == nil && res.Kind == PostProcClassify &&
			len(res.Classify) == 1 && res.Classify[0].Score == 0
	}, time.Second, time.Millisecond)

	<-started // inference 1 (counter value 1), launched right after decoding inference 0

	releaseWith(gate, 1)

	require.Eventually(t, func() bool {
		res, err = p.Process(preprocess.Frame{})
		return err == nil && len(res.Classify) == 1 && res.Classify[0].Score == 1
	}, time.Second, time.Millisecond)
}
