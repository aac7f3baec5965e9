package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-dnn-pipeline/labels"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// ClassifyEntry is one ranked classification result.
type ClassifyEntry struct {
	ID    int
	Label string
	Score float32
}

// String renders "id: label: score%" per §4.4.1.
func (e ClassifyEntry) String() string {
	return fmt.Sprintf("%d: %s: %.1f%%", e.ID, e.Label, e.Score*100)
}

// Detection is one decoded detect-mode result, in original image
// coordinates per Context.ToOriginal.
type Detection struct {
	ClassID int
	Score   float32
	Rect    tensorspec.Rect
	Label   string
}

// String renders "id: label: score% @ (x1,y1)-(x2,y2)" per §6, carrying
// class id, class name, score, and coordinates.
func (d Detection) String() string {
	return fmt.Sprintf("%d: %s: %.1f%% @ (%.0f,%.0f)-(%.0f,%.0f)",
		d.ClassID, d.Label, d.Score*100, d.Rect.X1, d.Rect.Y1, d.Rect.X2, d.Rect.Y2)
}

// SegmentResult is a dense per-pixel class id map at network resolution;
// the caller upsamples (nearest-neighbor) to output image size when
// rendering.
type SegmentResult struct {
	Width, Height int
	ClassIDs      []int
}

// At returns the class id at pixel (x, y).
func (s SegmentResult) At(x, y int) int {
	return s.ClassIDs[y*s.Width+x]
}

func resolveLabel(m labels.Map, id, offset int) string {
	if m == nil {
		return fmt.Sprintf("%d", id+offset)
	}
	return m.Get(id + offset)
}
