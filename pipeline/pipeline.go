package pipeline

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-dnn-pipeline/errs"
	"github.com/nvr-ai/go-dnn-pipeline/labels"
	"github.com/nvr-ai/go-dnn-pipeline/network"
	"github.com/nvr-ai/go-dnn-pipeline/postprocess"
	"github.com/nvr-ai/go-dnn-pipeline/preprocess"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
	"github.com/nvr-ai/go-dnn-pipeline/zoo"
)

// Pipeline owns the three stages, the selected zoo entry, and per-frame
// timing state (§4.5). The zero value is not usable; construct with New.
type Pipeline struct {
	mu sync.Mutex

	state   State
	lastErr error
	threw   bool

	zooIdx *zoo.Index
	filter zoo.Filter

	// reconfig-deferred parameters: writes here only set dirty; the actual
	// rebuild happens at the top of the next Process call.
	pendingPipe string
	dirty       bool

	entry zoo.Entry

	preproc  preprocess.Stage
	net      *network.Network
	postKind PostProcKind

	classifyCfg ClassifyParams
	detectCfg   DetectParams
	segmentCfg  SegmentParams
	customPost  CustomPostProc

	frozen bool
	async  bool

	timers rollingTimers

	// async in-flight bookkeeping: at most one inference outstanding, its
	// result consumed exactly once, in launch order (§4.5, §8).
	inFlight   bool
	future     chan asyncResult
	prevResult Result
	haveResult bool
}

// ClassifyParams, DetectParams, SegmentParams carry the decoder config plus
// loaded labels, assembled from a zoo.Entry at construction time.
type ClassifyParams struct{ Cfg postprocess.ClassifyConfig }
type DetectParams struct {
	Cfg    postprocess.DetectConfig
	NetW   int
	NetH   int
}
type SegmentParams struct {
	Cfg  postprocess.SegmentConfig
	NetW int
	NetH int
}

type asyncResult struct {
	outputs []tensorspec.Blob
	info    *network.InfoBuilder
	err     error
}

// New opens the zoo file at zooPath, anchoring relative model/classes paths
// against dataRoot (empty means anchor against the zoo file's own
// directory).
func New(zooPath, dataRoot string) (*Pipeline, error) {
	idx, err := zoo.Load(zooPath, dataRoot)
	if err != nil {
		return nil, err
	}
	return &Pipeline{zooIdx: idx, filter: zoo.FilterAll, state: StateIdle}, nil
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetFilter narrows the zoo entries SelectPipe will accept.
func (p *Pipeline) SetFilter(f zoo.Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = f
}

// SetAsync switches per-frame execution mode. Like the reconfiguration
// parameters, it is safe to call concurrently with Process; the new mode
// takes effect on the next call.
func (p *Pipeline) SetAsync(async bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.async = async
}

// SelectPipe requests a reconfiguration to the named zoo entry. The actual
// rebuild is deferred to the start of the next Process call (§4.5).
func (p *Pipeline) SelectPipe(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingPipe = name
	p.dirty = true
}

// Freeze records the frozen flag and propagates it to the Network. The
// preproc and postproc stages have no freeze hook, and SelectPipe and
// SetFilter do not consult the flag.
func (p *Pipeline) Freeze(doit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frozen = doit
	if p.net != nil {
		p.net.Freeze(doit)
	}
}

// SetCustomPreProc installs a user-supplied PreProcessor implementation.
// Valid only when the active entry's preproc is Custom.
func (p *Pipeline) SetCustomPreProc(impl preprocess.Stage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entry.Preproc != string(preprocess.KindCustom) {
		return errors.Errorf("pipeline: setCustomPreProc (%s) requires preproc=Custom, entry has %s", subComponentPreproc, p.entry.Preproc)
	}
	p.preproc = &preprocess.CustomStage{Impl: impl}
	return nil
}

// SetCustomNetwork installs a user-supplied Network backend. Valid only
// when the active entry's nettype is Custom.
func (p *Pipeline) SetCustomNetwork(impl network.Backend) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entry.NetType != "Custom" {
		return errors.Errorf("pipeline: setCustomNetwork (%s) requires nettype=Custom, entry has %s", subComponentNetwork, p.entry.NetType)
	}
	p.net = network.New(&network.CustomBackend{Impl: impl}, network.Config{Dequant: p.entry.Dequant, FlattenOutputs: p.entry.FlattenOutputs})
	p.net.StartLoad()
	return nil
}

// SetCustomPostProc installs a user-supplied PostProcessor implementation.
// Valid only when the active entry's postproc is Custom.
func (p *Pipeline) SetCustomPostProc(impl CustomPostProc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entry.PostProc != string(PostProcCustom) {
		return errors.Errorf("pipeline: setCustomPostProc (%s) requires postproc=Custom, entry has %s", subComponentPostproc, p.entry.PostProc)
	}
	p.customPost = impl
	return nil
}

// Process runs one frame through the pipeline. It never returns a fatal
// panic-worthy error to the caller's camera loop: stage errors are caught,
// recorded as the pipeline's sticky error state, and surfaced through the
// returned error only once per occurrence (threw flag), matching §7's
// "process() itself never throws" contract at the Go level via a returned
// error rather than an exception.
func (p *Pipeline) Process(frame preprocess.Frame) (Result, error) {
	p.mu.Lock()
	if p.dirty {
		if err := p.reconfigureLocked(); err != nil {
			p.state = StateIdle
			p.mu.Unlock()
			return Result{}, err
		}
	}
	if p.state == StateError {
		p.mu.Unlock()
		if p.threw {
			return Result{}, nil
		}
		p.threw = true
		return Result{}, errors.WithStack(p.lastErr)
	}
	if p.net == nil {
		p.mu.Unlock()
		return Result{}, errs.ErrModelNotLoaded
	}
	if !p.net.Ready() {
		p.mu.Unlock()
		return Result{}, errs.ErrModelNotLoaded
	}
	async := p.async
	p.mu.Unlock()

	if async {
		return p.processAsync(frame)
	}
	return p.processSync(frame)
}

func (p *Pipeline) processSync(frame preprocess.Frame) (Result, error) {
	p.setState(StateRunningSync)

	start := time.Now()
	blobs, info, result, err := p.runOneFrame(frame)
	p.timers.record(stageTotal, time.Since(start))
	_ = info

	if err != nil {
		p.fail(err)
		return Result{}, err
	}
	_ = blobs
	p.setState(StateReady)
	return result, nil
}

// runOneFrame executes preproc -> network.Process -> postproc.Process,
// recording per-stage timings, and returns the decoded Result.
func (p *Pipeline) runOneFrame(frame preprocess.Frame) ([]tensorspec.Blob, *network.InfoBuilder, Result, error) {
	p.mu.Lock()
	preproc, net, entry := p.preproc, p.net, p.entry
	p.mu.Unlock()

	t0 := time.Now()
	blobs, err := preproc.Process(frame, net.InputShapes())
	p.timers.record(stagePreproc, time.Since(t0))
	if err != nil {
		return nil, nil, Result{}, err
	}

	info := &network.InfoBuilder{}
	t1 := time.Now()
	outputs, err := net.Process(blobs, info)
	p.timers.record(stageNetwork, time.Since(t1))
	if err != nil {
		return blobs, info, Result{}, err
	}

	t2 := time.Now()
	w, h := frame.Size()
	ctx := postprocess.Context{SrcWidth: w, SrcHeight: h}
	result, err := p.decode(outputs, ctx, entry)
	p.timers.record(stagePostproc, time.Since(t2))
	if err == nil {
		result.Info = info.Lines()
	}
	return blobs, info, result, err
}

func (p *Pipeline) decode(outputs []tensorspec.Blob, ctx postprocess.Context, entry zoo.Entry) (Result, error) {
	switch p.postKind {
	case PostProcClassify:
		var scores []float32
		if len(outputs) > 0 {
			scores = outputs[0].Float32()
		}
		entries := postprocess.Classify(scores, p.classifyCfg.Cfg)
		return Result{Kind: PostProcClassify, Classify: entries}, nil

	case PostProcDetect:
		dets, err := postprocess.Detect(outputs, p.detectCfg.Cfg, p.detectCfg.NetW, p.detectCfg.NetH)
		if err != nil {
			return Result{}, err
		}
		ctx.NetWidth, ctx.NetHeight = p.detectCfg.NetW, p.detectCfg.NetH
		for i := range dets {
			dets[i].Rect = ctx.ToOriginal(dets[i].Rect)
		}
		return Result{Kind: PostProcDetect, Detect: dets}, nil

	case PostProcSegment:
		if len(outputs) == 0 {
			return Result{}, errs.NewShapeMismatch("segment", []int{1}, []int{0})
		}
		seg, err := postprocess.Segment(outputs[0], p.segmentCfg.Cfg)
		if err != nil {
			return Result{}, err
		}
		seg = postprocess.Upsample(seg, ctx.SrcWidth, ctx.SrcHeight)
		return Result{Kind: PostProcSegment, Segment: seg}, nil

	case PostProcCustom:
		if p.customPost == nil {
			return Result{}, errors.New("pipeline: postproc=Custom but no implementation installed")
		}
		return p.customPost.Process(outputs, ctx)

	default:
		return Result{}, errors.Errorf("pipeline: unknown postproc kind %s", p.postKind)
	}
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	p.state = StateError
	p.lastErr = err
	// The caller returns err for this frame, so the occurrence counts as
	// surfaced; later frames stay silent until a reconfiguration.
	p.threw = true
	p.mu.Unlock()
}

func postprocessContext(w, h int) postprocess.Context {
	return postprocess.Context{SrcWidth: w, SrcHeight: h}
}

// labelsOrNil loads a labels file, returning nil (not an error) when the
// entry does not declare one.
func labelsOrNil(path string) labels.Map {
	if path == "" {
		return nil
	}
	m, err := labels.Load(path)
	if err != nil {
		return nil
	}
	return m
}
