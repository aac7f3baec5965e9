package postprocess

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-dnn-pipeline/labels"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// DetectType selects which Detect decoder to run, mirroring the
// originating toolkit's detecttype parameter (§4.4.2).
type DetectType string

const (
	DetectSSD          DetectType = "SSD"
	DetectTPUSSD       DetectType = "TPUSSD"
	DetectFasterRCNN   DetectType = "FasterRCNN"
	DetectYOLO         DetectType = "YOLO"
	DetectRAWYOLOface  DetectType = "RAWYOLOface"
	DetectRAWYOLOv2    DetectType = "RAWYOLOv2"
	DetectRAWYOLOv3    DetectType = "RAWYOLOv3"
	DetectRAWYOLOv4    DetectType = "RAWYOLOv4"
	DetectRAWYOLOv3Tiny DetectType = "RAWYOLOv3tiny"
)

// DetectConfig carries the Detect post-processor's zoo-supplied parameters.
type DetectConfig struct {
	Type DetectType
	Labels labels.Map
	ClassOffset int
	// Thresh is a percentage in [0,100].
	Thresh float32
	// NMSThresh is a percentage in [0,100] IoU threshold.
	NMSThresh float32
	// Anchors is the parsed, per-layer anchor set for the RAWYOLO family.
	// Unused by the non-raw decoders.
	Anchors [][]float32
	// Strides is the per-layer stride for the RAWYOLO family, in declared
	// output order; length must equal len(Anchors) after anchor assignment.
	Strides []int
	ObjectClasses int
	// NMSBackend selects the suppression kernel: "" or "default" for the
	// hand-rolled sweep, "gocv" to delegate to gocv.NMSBoxes.
	NMSBackend string
}

// Detect decodes outputs per cfg.Type and returns NMS-filtered detections
// in network-input coordinates; callers map through Context.ToOriginal.
func Detect(outputs []tensorspec.Blob, cfg DetectConfig, netW, netH int) ([]Detection, error) {
	var raw []Detection
	var err error

	switch cfg.Type {
	case DetectSSD, DetectTPUSSD:
		raw, err = decodeSSD(outputs, cfg, netW, netH)
	case DetectFasterRCNN:
		raw, err = decodeFasterRCNN(outputs, cfg)
	case DetectYOLO:
		raw, err = decodeYOLO(outputs, cfg, netW, netH)
	default:
		raw, err = decodeRawYOLO(outputs, cfg, netW, netH)
	}
	if err != nil {
		return nil, err
	}

	for i := range raw {
		tensorspec.ClampRect(&raw[i].Rect, float32(netW), float32(netH))
	}
	// NMS is always per-class: the spec gives no mechanism to run it
	// class-agnostic.
	if cfg.NMSBackend == "gocv" {
		return NMSGoCV(raw, cfg.NMSThresh/100, true), nil
	}
	return NMS(raw, cfg.NMSThresh/100, true), nil
}

// decodeSSD handles both SSD and TPUSSD: [N] scores, [Nx4] boxes as
// (y1,x1,y2,x2) normalized to [0,1], [N] class ids. Both variants emit the
// same normalized layout and must be scaled to network-input pixel
// coordinates before clamping/NMS.
func decodeSSD(outputs []tensorspec.Blob, cfg DetectConfig, netW, netH int) ([]Detection, error) {
	if len(outputs) < 3 {
		return nil, errNotEnoughOutputs("SSD", 3, len(outputs))
	}
	scores := outputs[0].Float32()
	boxes := outputs[1].Float32()
	classIDs := outputs[2].Float32()

	threshold := cfg.Thresh / 100
	dets := make([]Detection, 0, len(scores))
	for i, score := range scores {
		if score < threshold {
			continue
		}
		y1, x1, y2, x2 := boxes[i*4], boxes[i*4+1], boxes[i*4+2], boxes[i*4+3]
		rect := tensorspec.Rect{X1: x1 * float32(netW), Y1: y1 * float32(netH), X2: x2 * float32(netW), Y2: y2 * float32(netH)}
		id := int(classIDs[i])
		dets = append(dets, Detection{
			ClassID: id,
			Score:   score,
			Rect:    rect,
			Label:   resolveLabel(cfg.Labels, id, cfg.ClassOffset),
		})
	}
	return dets, nil
}

// decodeFasterRCNN handles the [Nx7] (batch, class, score, x1, y1, x2, y2)
// row layout.
func decodeFasterRCNN(outputs []tensorspec.Blob, cfg DetectConfig) ([]Detection, error) {
	if len(outputs) < 1 {
		return nil, errNotEnoughOutputs("FasterRCNN", 1, len(outputs))
	}
	data := outputs[0].Float32()
	threshold := cfg.Thresh / 100
	dets := make([]Detection, 0, len(data)/7)
	for i := 0; i+7 <= len(data); i += 7 {
		score := data[i+2]
		if score < threshold {
			continue
		}
		id := int(data[i+1])
		dets = append(dets, Detection{
			ClassID: id,
			Score:   score,
			Rect:    tensorspec.Rect{X1: data[i+3], Y1: data[i+4], X2: data[i+5], Y2: data[i+6]},
			Label:   resolveLabel(cfg.Labels, id, cfg.ClassOffset),
		})
	}
	return dets, nil
}

// decodeYOLO handles a model that has already done its own decoding: rows
// of pre-computed detections, one row per candidate. Two row layouts are
// accepted, disambiguated by the output tensor's declared row width (its
// last dimension): a row width of exactly 6 is the fixed
// (x1,y1,x2,y2,score,class) corner-form layout; anything else is the
// (x,y,w,h,conf,class_probs...) center-form layout, whose row width is
// 5+numClasses.
func decodeYOLO(outputs []tensorspec.Blob, cfg DetectConfig, netW, netH int) ([]Detection, error) {
	if len(outputs) < 1 {
		return nil, errNotEnoughOutputs("YOLO", 1, len(outputs))
	}
	data := outputs[0].Float32()
	threshold := cfg.Thresh / 100

	if rowWidth(outputs[0].Attr.Dims) == 6 {
		return decodeYOLOCornerForm(data, cfg, threshold), nil
	}

	numClasses := cfg.ObjectClasses
	if numClasses <= 0 {
		numClasses = 80
	}
	cols := 5 + numClasses

	dets := make([]Detection, 0, len(data)/cols)
	for i := 0; i+cols <= len(data); i += cols {
		objConf := data[i+4]
		bestScore := float32(0)
		bestClass := 0
		for c := 0; c < numClasses; c++ {
			s := data[i+5+c]
			if s > bestScore {
				bestScore = s
				bestClass = c
			}
		}
		score := objConf * bestScore
		if score < threshold {
			continue
		}
		cx, cy, w, h := data[i], data[i+1], data[i+2], data[i+3]
		dets = append(dets, Detection{
			ClassID: bestClass,
			Score:   score,
			Rect: tensorspec.Rect{
				X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2,
			},
			Label: resolveLabel(cfg.Labels, bestClass, cfg.ClassOffset),
		})
	}
	_ = netW
	_ = netH
	return dets, nil
}

// decodeYOLOCornerForm decodes the fixed-width (x1,y1,x2,y2,score,class)
// row layout: boxes are already in corner form and class is a single
// index, not a per-class probability vector.
func decodeYOLOCornerForm(data []float32, cfg DetectConfig, threshold float32) []Detection {
	const cols = 6
	dets := make([]Detection, 0, len(data)/cols)
	for i := 0; i+cols <= len(data); i += cols {
		score := data[i+4]
		if score < threshold {
			continue
		}
		classID := int(data[i+5])
		dets = append(dets, Detection{
			ClassID: classID,
			Score:   score,
			Rect: tensorspec.Rect{
				X1: data[i], Y1: data[i+1], X2: data[i+2], Y2: data[i+3],
			},
			Label: resolveLabel(cfg.Labels, classID, cfg.ClassOffset),
		})
	}
	return dets
}

// rowWidth returns dims' last dimension, or 0 if dims is empty.
func rowWidth(dims []int) int {
	if len(dims) == 0 {
		return 0
	}
	return dims[len(dims)-1]
}

func errNotEnoughOutputs(decoder string, want, got int) error {
	return errors.Errorf("%s: expected at least %d outputs, got %d", decoder, want, got)
}
