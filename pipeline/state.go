// Package pipeline owns the three stages (PreProcessor, Network,
// PostProcessor), the zoo index, and per-frame sequencing in either
// synchronous or asynchronous mode, so that a slow network backend never
// stalls the camera loop that drives process().
package pipeline

// State is the Pipeline's coarse-grained lifecycle state (§3).
type State int

const (
	// StateIdle: no pipe selected yet.
	StateIdle State = iota
	// StateLoading: the Network is loading weights in the background.
	StateLoading
	// StateReady: all three stages are constructed and the Network is ready.
	StateReady
	// StateRunningSync: a synchronous process() call is executing.
	StateRunningSync
	// StateRunningAsyncInflight: an asynchronous inference is in flight.
	StateRunningAsyncInflight
	// StateError: the last process() call failed; the pipeline will not run
	// again until a parameter change clears it.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRunningSync:
		return "running-sync"
	case StateRunningAsyncInflight:
		return "running-async-inflight"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
