package network

import (
	"github.com/nvr-ai/go-dnn-pipeline/errs"
	"github.com/nvr-ai/go-dnn-pipeline/tensorspec"
)

// CustomBackend wraps a user-supplied Backend implementation, installed via
// the pipeline controller's setCustomNetwork when the zoo entry's nettype
// key is "Custom".
type CustomBackend struct {
	Impl Backend
}

func (c *CustomBackend) name() string {
	if c.Impl == nil {
		return "custom"
	}
	return c.Impl.name()
}

func (c *CustomBackend) load() error {
	if c.Impl == nil {
		return errs.NewBackendFailure("custom", "no implementation installed", nil)
	}
	return c.Impl.load()
}

func (c *CustomBackend) inputShapes() []tensorspec.TensorAttr {
	if c.Impl == nil {
		return nil
	}
	return c.Impl.inputShapes()
}

func (c *CustomBackend) outputShapes() []tensorspec.TensorAttr {
	if c.Impl == nil {
		return nil
	}
	return c.Impl.outputShapes()
}

func (c *CustomBackend) freeze(doit bool) {
	if c.Impl != nil {
		c.Impl.freeze(doit)
	}
}

func (c *CustomBackend) doProcess(blobs []tensorspec.Blob, info *InfoBuilder) ([]tensorspec.Blob, error) {
	if c.Impl == nil {
		return nil, errs.NewBackendFailure("custom", "no implementation installed", nil)
	}
	return c.Impl.doProcess(blobs, info)
}
