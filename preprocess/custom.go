package preprocess

import "github.com/nvr-ai/go-dnn-pipeline/tensorspec"

// CustomStage wraps a user-supplied Stage implementation, installed by the
// pipeline controller's SetCustomPreProc when the zoo entry's preproc
// key is "Custom". It exists so the pipeline can hold a uniform Stage handle
// regardless of which variant is active, and so a missing implementation
// fails clearly rather than nil-panicking deep in Process.
type CustomStage struct {
	Impl Stage
}

// Process delegates to Impl, which must be installed before the pipeline
// transitions out of *loading*.
func (c *CustomStage) Process(frame Frame, attrs []tensorspec.TensorAttr) ([]tensorspec.Blob, error) {
	if c.Impl == nil {
		return nil, errCustomNotInstalled
	}
	return c.Impl.Process(frame, attrs)
}

var errCustomNotInstalled = &customError{"preprocess: Custom stage selected but no implementation installed"}

type customError struct{ msg string }

func (e *customError) Error() string { return e.msg }
