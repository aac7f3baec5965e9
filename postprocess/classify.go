package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-dnn-pipeline/labels"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// ClassifyConfig carries the Classify post-processor's zoo-supplied
// parameters (§4.4.1).
type ClassifyConfig struct {
	Labels      labels.Map
	ClassOffset int
	Top         int
	// Thresh is a percentage in [0,100]; a score must be >= Thresh/100 to
	// survive.
	Thresh float32
	Softmax     bool
	ScoreScale  float32
}

// Classify decodes a single 1-D float vector into ranked ClassifyEntry
// results: optionally softmax, multiply by ScoreScale, filter by Thresh,
// sort descending by score (ties broken by ascending id), then keep the
// top Top entries.
func Classify(scores []float32, cfg ClassifyConfig) []ClassifyEntry {
	work := scores
	if cfg.Softmax {
		work = make([]float32, len(scores))
		tensorspec.Softmax(scores, 1, work)
	}

	scale := cfg.ScoreScale
	if scale == 0 {
		scale = 1
	}
	threshold := cfg.Thresh / 100

	entries := make([]ClassifyEntry, 0, len(work))
	for id, s := range work {
		score := s * scale
		if score < threshold {
			continue
		}
		entries = append(entries, ClassifyEntry{
			ID:    id,
			Label: resolveLabel(cfg.Labels, id, cfg.ClassOffset),
			Score: score,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ID < entries[j].ID
	})

	top := cfg.Top
	if top <= 0 || top > len(entries) {
		top = len(entries)
	}
	return entries[:top]
}
