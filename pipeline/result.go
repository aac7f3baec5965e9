package pipeline

import "github.com/nvr-ai/go-dnn-pipeline/postprocess"

// Result is the decoded output of one frame, tagged by which PostProcessor
// variant produced it. Exactly one of the slice/value fields is meaningful,
// selected by Kind.
type Result struct {
	Kind PostProcKind

	Classify []postprocess.ClassifyEntry
	Detect   []postprocess.Detection
	Segment  postprocess.SegmentResult

	// Info carries the header/bullet diagnostic lines produced while
	// decoding this frame.
	Info []string
}

// PostProcKind mirrors the zoo's postproc key.
type PostProcKind string

const (
	PostProcClassify PostProcKind = "Classify"
	PostProcDetect   PostProcKind = "Detect"
	PostProcSegment  PostProcKind = "Segment"
	PostProcCustom   PostProcKind = "Custom"
)
