package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-dnn-pipeline/labels"
)

func TestClassifyRanksDescendingScore(t *testing.T) {
	cfg := ClassifyConfig{
		Labels: labels.Map{0: "cat", 1: "dog", 2: "bird"},
		Top:    2,
	}
	got := Classify([]float32{0.1, 0.9, 0.5}, cfg)
	require.Len(t, got, 2)
	assert.Equal(t, "dog", got[0].Label)
	assert.Equal(t, "bird", got[1].Label)
}

func TestClassifyAppliesThreshold(t *testing.T) {
	cfg := ClassifyConfig{Thresh: 60}
	got := Classify([]float32{0.1, 0.9, 0.5}, cfg)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
}

func TestClassifyAppliesClassOffset(t *testing.T) {
	cfg := ClassifyConfig{Labels: labels.Map{5: "person"}, ClassOffset: 5, Top: 1}
	got := Classify([]float32{0.9}, cfg)
	require.Len(t, got, 1)
	assert.Equal(t, "person", got[0].Label)
}

func TestClassifySoftmaxNormalizes(t *testing.T) {
	cfg := ClassifyConfig{Softmax: true, Top: 3}
	got := Classify([]float32{1.0, 2.0, 3.0}, cfg)
	var sum float32
	for _, e := range got {
		sum += e.Score
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestClassifyEntryString(t *testing.T) {
	e := ClassifyEntry{ID: 3, Label: "car", Score: 0.857}
	assert.Equal(t, "3: car: 85.7%", e.String())
}
