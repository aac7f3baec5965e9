package pipeline

import (
	"time"

	"github.com/nvr-ai/go-dnn-pipeline/network"
	"github.com/nvr-ai/go-dnn-pipeline/preprocess"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// processAsync implements §4.5's asynchronous per-frame execution: at most
// one inference in flight, results consumed exactly once in launch order,
// the post-processor always reporting the most recently *completed* frame's
// results while the next one decodes in the background.
func (p *Pipeline) processAsync(frame preprocess.Frame) (Result, error) {
	p.mu.Lock()
	inFlight := p.inFlight
	p.mu.Unlock()

	if !inFlight {
		return p.launchAsync(frame)
	}

	select {
	case res := <-p.future:
		p.mu.Lock()
		p.inFlight = false
		p.future = nil
		p.mu.Unlock()

		if res.err != nil {
			p.fail(res.err)
			return Result{}, res.err
		}

		w, h := frame.Size()
		result, err := p.decodeAsyncOutputs(res.outputs, res.info, w, h)
		if err != nil {
			p.fail(err)
			return Result{}, err
		}
		p.mu.Lock()
		p.prevResult = result
		p.haveResult = true
		p.state = StateReady
		p.mu.Unlock()

		return p.launchAsync(frame)

	default:
		// Still running: draw only the previous results, launch nothing new.
		p.mu.Lock()
		prev, have := p.prevResult, p.haveResult
		p.mu.Unlock()
		if !have {
			return Result{}, nil
		}
		return prev, nil
	}
}

// launchAsync pre-processes frame into blobs and starts the next inference
// in the background, returning whatever result was already decoded from the
// previous frame (one-frame latency, per §4.5).
func (p *Pipeline) launchAsync(frame preprocess.Frame) (Result, error) {
	p.mu.Lock()
	preproc, net := p.preproc, p.net
	prev, have := p.prevResult, p.haveResult
	p.mu.Unlock()

	t0 := time.Now()
	blobs, err := preproc.Process(frame, net.InputShapes())
	p.timers.record(stagePreproc, time.Since(t0))
	if err != nil {
		p.fail(err)
		return Result{}, err
	}

	future := make(chan asyncResult, 1)
	p.mu.Lock()
	p.future = future
	p.inFlight = true
	p.state = StateRunningAsyncInflight
	p.mu.Unlock()

	go func(blobs []tensorspec.Blob) {
		info := &network.InfoBuilder{}
		t1 := time.Now()
		outputs, err := net.Process(blobs, info)
		p.timers.record(stageNetwork, time.Since(t1))
		future <- asyncResult{outputs: outputs, info: info, err: err}
	}(blobs)

	if !have {
		return Result{}, nil
	}
	return prev, nil
}

func (p *Pipeline) decodeAsyncOutputs(outputs []tensorspec.Blob, info *network.InfoBuilder, w, h int) (Result, error) {
	p.mu.Lock()
	entry := p.entry
	p.mu.Unlock()

	t2 := time.Now()
	result, err := p.decode(outputs, postprocessContext(w, h), entry)
	p.timers.record(stagePostproc, time.Since(t2))
	if err == nil && info != nil {
		result.Info = info.Lines()
	}
	return result, err
}
