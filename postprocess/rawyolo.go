package postprocess

import (
	"strconv"
	"strings"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-dnn-pipeline/errs"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// ParseAnchors parses the RAWYOLO family's anchor grammar: semicolon-
// separated groups, one per raw output layer, each group a comma-separated
// list of alternating width,height pairs in pixel units (e.g.
// "10,13,16,30,33,23;30,61,62,45,59,119"). If exactly one group is supplied
// it is shared across every layer; otherwise the group count must equal
// numLayers, or ErrAnchorMismatch is returned.
func ParseAnchors(spec string, numLayers int) ([][]float32, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errs.NewAnchorMismatch(0, numLayers)
	}
	groupStrs := strings.Split(spec, ";")
	groups := make([][]float32, len(groupStrs))
	for i, g := range groupStrs {
		vals, err := parseFloatList(g)
		if err != nil {
			return nil, err
		}
		if len(vals)%2 != 0 {
			return nil, errs.NewAnchorMismatch(len(groupStrs), numLayers)
		}
		groups[i] = vals
	}

	if len(groups) == 1 && numLayers > 1 {
		shared := groups[0]
		groups = make([][]float32, numLayers)
		for i := range groups {
			groups[i] = shared
		}
		return groups, nil
	}

	if len(groups) != numLayers {
		return nil, errs.NewAnchorMismatch(len(groups), numLayers)
	}
	return groups, nil
}

func parseFloatList(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, errs.NewMalformedSpec(s, "anchor", p)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// decodeRawYOLO decodes the RAWYOLO family: one raw grid tensor per output
// layer, shaped [A, 5+C, Gy, Gx] (anchor, then channel, then grid row, then
// grid column — channels are separate full grid planes, not interleaved per
// cell). Channel 0..4 of each anchor plane holds (tx,ty,tw,th,tobj); channel
// 5.. holds the per-class score input when C > 0. RAWYOLOface carries no
// class channels (single implicit class, face).
//
// Box center: bx = (sigmoid(tx) + gx) * stride, by = (sigmoid(ty) + gy) *
// stride. Box size: bw = exp(tw) * anchor_w, bh = exp(th) * anchor_h, where
// for RAWYOLOv2 the anchors are in grid-cell units and are multiplied by
// stride, and for v3/v4/v3tiny/face the anchors are already in pixel units.
//
// Class scoring: v3/v4/v3tiny/face apply sigmoid per class independently;
// v2 applies softmax across the class channels before multiplying by the
// objectness confidence.
func decodeRawYOLO(outputs []tensorspec.Blob, cfg DetectConfig, netW, netH int) ([]Detection, error) {
	if len(cfg.Anchors) == 0 || len(cfg.Strides) == 0 {
		return nil, errs.NewAnchorMismatch(len(cfg.Anchors), len(outputs))
	}
	if len(cfg.Anchors) != len(outputs) || len(cfg.Strides) != len(outputs) {
		return nil, errs.NewAnchorMismatch(len(cfg.Anchors), len(outputs))
	}

	numClasses := cfg.ObjectClasses
	if cfg.Type == DetectRAWYOLOface {
		numClasses = 0
	} else if numClasses <= 0 {
		numClasses = 80
	}
	threshold := cfg.Thresh / 100

	var dets []Detection
	var classBuf, softmaxBuf []float32
	if numClasses > 0 {
		classBuf = make([]float32, numClasses)
		softmaxBuf = make([]float32, numClasses)
	}

	for layer, out := range outputs {
		anchors := cfg.Anchors[layer]
		stride := cfg.Strides[layer]
		numAnchors := len(anchors) / 2
		cols := 5 + numClasses

		shape := out.Attr.Dims
		gh, gw := gridDims(shape, netW, netH, stride)

		data := out.Dequantize().Float32()
		planeSize := gh * gw

		for gy := 0; gy < gh; gy++ {
			for gx := 0; gx < gw; gx++ {
				cell := gy*gw + gx
				for a := 0; a < numAnchors; a++ {
					idx := func(j int) int {
						return (a*cols+j)*planeSize + cell
					}
					if idx(cols-1) >= len(data) {
						continue
					}
					tx, ty, tw, th, tobj := data[idx(0)], data[idx(1)], data[idx(2)], data[idx(3)], data[idx(4)]
					objConf := tensorspec.Sigmoid(tobj)

					bestScore := objConf
					bestClass := 0
					if numClasses > 0 {
						bestScore = 0
						if cfg.Type == DetectRAWYOLOv2 {
							for c := 0; c < numClasses; c++ {
								classBuf[c] = data[idx(5+c)]
							}
							tensorspec.Softmax(classBuf, 1, softmaxBuf)
							for c, p := range softmaxBuf {
								s := objConf * p
								if s > bestScore {
									bestScore = s
									bestClass = c
								}
							}
						} else {
							for c := 0; c < numClasses; c++ {
								s := objConf * tensorspec.Sigmoid(data[idx(5+c)])
								if s > bestScore {
									bestScore = s
									bestClass = c
								}
							}
						}
					}
					if bestScore < threshold {
						continue
					}

					awPixels, ahPixels := anchorPixels(cfg.Type, anchors[a*2], anchors[a*2+1], stride)
					bx := (tensorspec.Sigmoid(tx) + float32(gx)) * float32(stride)
					by := (tensorspec.Sigmoid(ty) + float32(gy)) * float32(stride)
					bw := math32.Exp(tw) * awPixels
					bh := math32.Exp(th) * ahPixels

					dets = append(dets, Detection{
						ClassID: bestClass,
						Score:   bestScore,
						Rect: tensorspec.Rect{
							X1: bx - bw/2, Y1: by - bh/2, X2: bx + bw/2, Y2: by + bh/2,
						},
						Label: resolveLabel(cfg.Labels, bestClass, cfg.ClassOffset),
					})
				}
			}
		}
	}
	return dets, nil
}

// anchorPixels returns the anchor width/height in pixel units. RAWYOLOv2
// anchors are declared in grid-cell units and must be scaled by stride;
// every other RAWYOLO variant declares anchors already in pixel units.
func anchorPixels(t DetectType, w, h float32, stride int) (float32, float32) {
	if t == DetectRAWYOLOv2 {
		return w * float32(stride), h * float32(stride)
	}
	return w, h
}

// gridDims recovers the output layer's (height, width) grid size, preferring
// the tensor's own declared shape and falling back to the network input size
// divided by stride when the shape is ambiguous (rank < 2).
func gridDims(dims []int, netW, netH, stride int) (int, int) {
	if len(dims) >= 2 {
		return dims[len(dims)-2], dims[len(dims)-1]
	}
	if stride <= 0 {
		stride = 1
	}
	return netH / stride, netW / stride
}
