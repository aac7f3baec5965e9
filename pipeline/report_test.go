package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/go-dnn-pipeline/postprocess"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

func TestReportClassifyEmpty(t *testing.T) {
	lines := Report(Result{Kind: PostProcClassify})
	assert.Equal(t, []string{"(no detections above threshold)"}, lines)
}

func TestReportClassifyEntries(t *testing.T) {
	r := Result{Kind: PostProcClassify, Classify: []postprocess.ClassifyEntry{
		{ID: 1, Label: "cat", Score: 0.9},
	}}
	lines := Report(r)
	assert.Equal(t, []string{"1: cat: 90.0%"}, lines)
}

func TestReportDetectEmpty(t *testing.T) {
	lines := Report(Result{Kind: PostProcDetect})
	assert.Equal(t, []string{"(no detections above threshold)"}, lines)
}

func TestReportDetectEntries(t *testing.T) {
	r := Result{Kind: PostProcDetect, Detect: []postprocess.Detection{
		{ClassID: 3, Label: "car", Score: 0.82, Rect: tensorspec.Rect{X1: 10, Y1: 20, X2: 110, Y2: 220}},
	}}
	lines := Report(r)
	assert.Equal(t, []string{"3: car: 82.0% @ (10,20)-(110,220)"}, lines)
}

func TestReportSegmentSummary(t *testing.T) {
	r := Result{Kind: PostProcSegment, Segment: postprocess.SegmentResult{Width: 640, Height: 480}}
	lines := Report(r)
	assert.Equal(t, []string{"segment: 640x480"}, lines)
}

func TestReportCustomUnknownReturnsNil(t *testing.T) {
	assert.Nil(t, Report(Result{Kind: PostProcCustom}))
}
