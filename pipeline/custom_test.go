package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-dnn-pipeline/postprocess"
	"github.com/nvr-ai/go-dnn-pipeline/preprocess"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
	"github.com/nvr-ai/go-dnn-pipeline/zoo"
)

type nopStage struct{}

func (nopStage) Process(preprocess.Frame, []tensorspec.TensorAttr) ([]tensorspec.Blob, error) {
	return nil, nil
}

type nopPostProc struct{}

func (nopPostProc) Process([]tensorspec.Blob, postprocess.Context) (Result, error) {
	return Result{Kind: PostProcCustom}, nil
}

func TestSetCustomPreProcRejectsNonCustomEntry(t *testing.T) {
	p := &Pipeline{entry: zoo.Entry{Preproc: "Blob"}}
	err := p.SetCustomPreProc(nopStage{})
	assert.Error(t, err)
}

func TestSetCustomPreProcInstallsWhenCustom(t *testing.T) {
	p := &Pipeline{entry: zoo.Entry{Preproc: "Custom"}}
	require.NoError(t, p.SetCustomPreProc(nopStage{}))
	assert.NotNil(t, p.preproc)
}

func TestSetCustomPostProcRejectsNonCustomEntry(t *testing.T) {
	p := &Pipeline{entry: zoo.Entry{PostProc: "Detect"}}
	err := p.SetCustomPostProc(nopPostProc{})
	assert.Error(t, err)
}

func TestSetCustomPostProcInstallsWhenCustom(t *testing.T) {
	p := &Pipeline{entry: zoo.Entry{PostProc: "Custom"}}
	require.NoError(t, p.SetCustomPostProc(nopPostProc{}))
	assert.NotNil(t, p.customPost)
}
