package postprocess

import (
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// NMS performs per-class non-maximum suppression: detections are sorted by
// descending score, then each later detection is suppressed if its IoU with
// an already-accepted detection of the same class exceeds threshold. Ties
// in score are broken by ascending input index, making the result
// deterministic and idempotent (running NMS twice yields the same set).
func NMS(detections []Detection, threshold float32, perClass bool) []Detection {
	order := make([]int, len(detections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := detections[order[i]], detections[order[j]]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return order[i] < order[j]
	})

	suppressed := make([]bool, len(detections))
	accepted := make([]int, 0, len(detections))

	for _, i := range order {
		if suppressed[i] {
			continue
		}
		keep := true
		for _, j := range accepted {
			if perClass && detections[i].ClassID != detections[j].ClassID {
				continue
			}
			if detections[i].Rect.IoU(detections[j].Rect) > threshold {
				keep = false
				break
			}
		}
		if keep {
			accepted = append(accepted, i)
		} else {
			suppressed[i] = true
		}
	}

	sort.Ints(accepted)
	out := make([]Detection, len(accepted))
	for k, i := range accepted {
		out[k] = detections[i]
	}
	return out
}

// NMSGoCV is an alternate suppression path that delegates to OpenCV's own
// gocv.NMSBoxes kernel instead of the hand-rolled sweep above, for zoo
// entries that select the "gocv" NMS backend. Per-class grouping is done by
// calling NMSBoxes once per class id, since the kernel itself is
// class-agnostic.
func NMSGoCV(detections []Detection, threshold float32, perClass bool) []Detection {
	if len(detections) == 0 {
		return nil
	}
	if !perClass {
		return nmsBoxesGroup(detections, allIndices(len(detections)), threshold)
	}

	byClass := make(map[int][]int)
	for i, d := range detections {
		byClass[d.ClassID] = append(byClass[d.ClassID], i)
	}
	classIDs := make([]int, 0, len(byClass))
	for c := range byClass {
		classIDs = append(classIDs, c)
	}
	sort.Ints(classIDs)

	var out []Detection
	for _, c := range classIDs {
		out = append(out, nmsBoxesGroup(detections, byClass[c], threshold)...)
	}
	return out
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// nmsBoxesGroup runs gocv.NMSBoxes over the detections named by idx and
// returns the surviving subset in ascending idx order.
func nmsBoxesGroup(detections []Detection, idx []int, threshold float32) []Detection {
	boxes := make([]image.Rectangle, len(idx))
	scores := make([]float32, len(idx))
	for k, i := range idx {
		r := detections[i].Rect
		boxes[k] = image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2))
		scores[k] = detections[i].Score
	}

	kept := make([]int, len(boxes))
	for i := range kept {
		kept[i] = -1
	}
	gocv.NMSBoxes(boxes, scores, 0, threshold, kept)

	var keepIdx []int
	for _, k := range kept {
		if k >= 0 {
			keepIdx = append(keepIdx, idx[k])
		}
	}
	sort.Ints(keepIdx)

	out := make([]Detection, len(keepIdx))
	for k, i := range keepIdx {
		out[k] = detections[i]
	}
	return out
}
