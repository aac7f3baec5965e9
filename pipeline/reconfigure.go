package pipeline

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-dnn-pipeline/network"
	"github.com/nvr-ai/go-dnn-pipeline/postprocess"
	"github.com/nvr-ai/go-dnn-pipeline/preprocess"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
	"github.com/nvr-ai/go-dnn-pipeline/zoo"
)

// reconfigureLocked runs the §4.5 rebuild sequence. Caller holds p.mu.
func (p *Pipeline) reconfigureLocked() error {
	name := p.pendingPipe
	p.pendingPipe = ""
	p.dirty = false

	entries := p.zooIdx.Filtered(p.filter)
	entry, ok := entries[name]
	if !ok {
		return errors.Errorf("pipeline: pipe %q not found (or excluded by filter %s)", name, p.filter)
	}

	// Step 1: drain any outstanding future before tearing stages down.
	if p.state == StateLoading || p.state == StateRunningAsyncInflight {
		p.drainOutstandingLocked()
	}

	// Step 2: tear down in reverse construction order.
	p.postKind = ""
	p.net = nil
	p.preproc = nil

	// Step 3/4: construct and kick off load.
	preprocStage, netw, err := p.buildPreproc(entry)
	if err != nil {
		return err
	}
	net, inAttrs, outAttrs, err := p.buildNetwork(entry)
	if err != nil {
		return err
	}
	if err := p.buildPostproc(entry, inAttrs, outAttrs); err != nil {
		return err
	}

	p.entry = entry
	p.preproc = preprocStage
	p.net = net
	_ = netw
	p.lastErr = nil
	p.threw = false
	p.haveResult = false
	p.inFlight = false

	p.net.StartLoad()
	p.state = StateLoading
	return nil
}

// drainOutstandingLocked waits for the in-flight future (if any) and
// discards its result, per the mandatory reconfiguration drain (§4.5 step 1,
// §5 "Suspension points").
func (p *Pipeline) drainOutstandingLocked() {
	if p.net != nil {
		p.net.WaitBeforeDestroy()
	}
	if p.future != nil {
		<-p.future
		p.future = nil
	}
	p.inFlight = false
}

func (p *Pipeline) buildPreproc(entry zoo.Entry) (preprocess.Stage, [2]int, error) {
	var netw [2]int
	switch entry.Preproc {
	case "Custom":
		return &preprocess.CustomStage{}, netw, nil
	default:
		cfg := preprocess.DefaultConfig()
		if entry.Mean != "" {
			if v, err := parseFloatCSV(entry.Mean); err == nil {
				cfg.Mean = v
			}
		}
		if entry.Scale != "" {
			if v, err := parseFloatCSV(entry.Scale); err == nil {
				cfg.Scale = v
			}
		}
		cfg.RGB = entry.RGB
		return preprocess.NewBlobStage(cfg), netw, nil
	}
}

func (p *Pipeline) buildNetwork(entry zoo.Entry) (*network.Network, []tensorspec.TensorAttr, []tensorspec.TensorAttr, error) {
	inAttrs, err := tensorspec.Parse(entry.InTensors)
	if err != nil {
		return nil, nil, nil, err
	}
	outAttrs, err := tensorspec.Parse(entry.OutTensors)
	if err != nil {
		return nil, nil, nil, err
	}

	netCfg := network.Config{Dequant: entry.Dequant, FlattenOutputs: entry.FlattenOutputs}

	switch entry.NetType {
	case "NPU":
		backend := network.NewNPUBackend(network.NPUConfig{
			ModelPath: entry.ModelPath,
			InAttrs:   inAttrs,
			OutAttrs:  outAttrs,
		})
		return network.New(backend, netCfg), inAttrs, outAttrs, nil

	case "TPU":
		tpuNum := entry.TPUNum
		if entry.Accelerator != "" {
			if tpuNum, err = zoo.ProbeAccelerators().Resolve(entry.Accelerator, entry.TPUNum); err != nil {
				return nil, nil, nil, err
			}
		}
		backend := network.NewTPUBackend(network.TPUConfig{
			ModelPath: entry.ModelPath,
			TPUNum:    tpuNum,
			InAttrs:   inAttrs,
			OutAttrs:  outAttrs,
		})
		return network.New(backend, netCfg), inAttrs, outAttrs, nil

	case "Custom":
		return network.New(&network.CustomBackend{}, netCfg), inAttrs, outAttrs, nil

	default: // OpenCV, or the ONNX-Runtime sibling for a .onnx model with backend onnxruntime.
		if strings.HasSuffix(strings.ToLower(entry.ModelPath), ".onnx") && entry.Backend == "onnxruntime" {
			backend := network.NewONNXBackend(network.ONNXConfig{
				ModelPath: entry.ModelPath,
				InAttrs:   inAttrs,
				OutAttrs:  outAttrs,
			})
			return network.New(backend, netCfg), inAttrs, outAttrs, nil
		}
		backend := network.NewOpenCVBackend(network.OpenCVConfig{
			ModelPath:  entry.ModelPath,
			ConfigPath: entry.ConfigPath,
			Target:     network.Target(entry.Target),
			InAttrs:    inAttrs,
			OutAttrs:   outAttrs,
		})
		return network.New(backend, netCfg), inAttrs, outAttrs, nil
	}
}

func (p *Pipeline) buildPostproc(entry zoo.Entry, inAttrs, outAttrs []tensorspec.TensorAttr) error {
	netW, netH := inputHW(inAttrs)
	p.detectCfg.NetW, p.detectCfg.NetH = netW, netH
	p.segmentCfg.NetW, p.segmentCfg.NetH = netW, netH

	labelMap := labelsOrNil(entry.ClassesPath)

	switch entry.PostProc {
	case "Classify":
		p.postKind = PostProcClassify
		p.classifyCfg.Cfg = postprocess.ClassifyConfig{
			Labels:      labelMap,
			ClassOffset: entry.ClassOffset,
			Top:         entry.Top,
			Thresh:      entry.Thresh,
			Softmax:     entry.Softmax,
			ScoreScale:  entry.ScoreScale,
		}

	case "Detect":
		p.postKind = PostProcDetect
		numLayers := len(outAttrs)
		var anchors [][]float32
		var strides []int
		if entry.Anchors != "" {
			var err error
			anchors, err = postprocess.ParseAnchors(entry.Anchors, numLayers)
			if err != nil {
				return err
			}
			strides = stridesFor(outAttrs, netH)
		}
		p.detectCfg.Cfg = postprocess.DetectConfig{
			Type:          postprocess.DetectType(entry.DetectType),
			Labels:        labelMap,
			ClassOffset:   entry.ClassOffset,
			Thresh:        entry.Thresh,
			NMSThresh:     entry.NMS,
			NMSBackend:    entry.NMSBackend,
			Anchors:       anchors,
			Strides:       strides,
			ObjectClasses: len(labelMap),
		}

	case "Segment":
		p.postKind = PostProcSegment
		p.segmentCfg.Cfg = postprocess.SegmentConfig{
			Variant: postprocess.SegmentVariant(entry.DetectType),
			Labels:  labelMap,
		}

	case "Custom":
		p.postKind = PostProcCustom

	default:
		return errors.Errorf("pipeline: unknown postproc %q", entry.PostProc)
	}
	return nil
}

// inputHW recovers the network's (width, height) from the first NCHW/NHWC
// input attr, defaulting to 0 when absent (Custom preproc/network pairs
// that do not declare tensor specs).
func inputHW(attrs []tensorspec.TensorAttr) (w, h int) {
	if len(attrs) == 0 {
		return 0, 0
	}
	d := attrs[0].Dims
	switch attrs[0].Layout {
	case tensorspec.LayoutNCHW:
		if len(d) == 4 {
			return d[3], d[2]
		}
	case tensorspec.LayoutNHWC:
		if len(d) == 4 {
			return d[2], d[1]
		}
	}
	return 0, 0
}

// stridesFor derives each raw-YOLO output layer's stride from the network
// input height divided by that layer's grid height, the same convention the
// Darknet lineage uses (a layer with a 13x13 grid at netH=416 has stride 32).
func stridesFor(outAttrs []tensorspec.TensorAttr, netH int) []int {
	strides := make([]int, len(outAttrs))
	for i, a := range outAttrs {
		d := a.Dims
		if len(d) >= 2 && d[len(d)-2] > 0 {
			strides[i] = netH / d[len(d)-2]
		} else {
			strides[i] = 32
		}
	}
	return strides
}

func parseFloatCSV(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}
