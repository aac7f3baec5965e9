package zoo

import (
	"github.com/mattn/go-tflite/delegates/edgetpu"

	"github.com/nvr-ai/go-dnn-pipeline/errs"
)

// Accelerators resolves the zoo's `accelerator` label to a concrete tpunum
// index, built by probing the EdgeTPU devices actually present rather than
// trusting a raw index baked into the zoo file. The pipeline probes each time
// it builds a TPU network whose entry names an accelerator. Mirrors
// the original toolkit's itsAccelerators map, keyed here by device path
// instead of an opaque label since go-tflite's edgetpu package exposes no
// richer device identity.
type Accelerators struct {
	byPath map[string]int
	count  int
}

// ProbeAccelerators enumerates the EdgeTPU devices visible to the process.
// A probe failure (no library, no permissions) yields an empty set rather
// than an error: accelerator resolution only matters to zoo entries that
// actually name a label.
func ProbeAccelerators() Accelerators {
	devices, err := edgetpu.DeviceList()
	if err != nil {
		return Accelerators{byPath: map[string]int{}}
	}
	byPath := make(map[string]int, len(devices))
	for i, d := range devices {
		byPath[d.Path] = i
	}
	return Accelerators{byPath: byPath, count: len(devices)}
}

// Resolve returns the tpunum index for label. An empty label resolves to
// the entry's own tpunum value unchanged (label-based resolution did not
// apply). A label naming a device not currently present is a
// BackendFailure rather than silently falling back to device 0.
func (a Accelerators) Resolve(label string, fallback int) (int, error) {
	if label == "" {
		return fallback, nil
	}
	idx, ok := a.byPath[label]
	if !ok {
		return 0, errs.NewBackendFailure("tpu", "accelerator label not found: "+label, nil)
	}
	return idx, nil
}

// Count returns the number of EdgeTPU devices probed.
func (a Accelerators) Count() int { return a.count }
