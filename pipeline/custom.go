package pipeline

import (
	"github.com/nvr-ai/go-dnn-pipeline/postprocess"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// CustomPostProc is the Custom PostProcessor seat's contract: decode raw
// outputs plus the preproc context into a Result, the same shape the
// built-in Classify/Detect/Segment decoders produce.
type CustomPostProc interface {
	Process(outputs []tensorspec.Blob, ctx postprocess.Context) (Result, error)
}

// Sub-component names used in the setCustom* error messages in pipeline.go.
const (
	subComponentPreproc  = "preproc"
	subComponentNetwork  = "network"
	subComponentPostproc = "postproc"
)
