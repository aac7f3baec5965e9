package network

import "github.com/nvr-ai/go-dnn-pipeline/tensorspec"

// StubBackend is a deterministic Backend for exercising Network and Pipeline
// control flow without a native model runtime. It is never selected by a
// zoo nettype value; callers wire it in directly when constructing a
// Network for testing.
type StubBackend struct {
	In, Out []tensorspec.TensorAttr
	LoadErr error

	// Started, if non-nil, receives each doProcess call's input blobs as it
	// is entered, before Gate/Produce run. Lets a caller observe exactly when
	// a forward pass has begun.
	Started chan []tensorspec.Blob
	// Gate, if non-nil, blocks doProcess until the caller sends the output
	// blobs to return. Takes precedence over Produce.
	Gate chan []tensorspec.Blob
	// Produce, if non-nil and Gate is nil, computes doProcess's return value
	// synchronously. With neither Gate nor Produce set, doProcess returns its
	// input blobs unchanged.
	Produce func(blobs []tensorspec.Blob) ([]tensorspec.Blob, error)
}

func (s *StubBackend) load() error                               { return s.LoadErr }
func (s *StubBackend) inputShapes() []tensorspec.TensorAttr      { return s.In }
func (s *StubBackend) outputShapes() []tensorspec.TensorAttr     { return s.Out }
func (s *StubBackend) freeze(bool)                               {}
func (s *StubBackend) name() string                              { return "stub" }

func (s *StubBackend) doProcess(blobs []tensorspec.Blob, info *InfoBuilder) ([]tensorspec.Blob, error) {
	if s.Started != nil {
		s.Started <- blobs
	}
	if s.Gate != nil {
		return <-s.Gate, nil
	}
	if s.Produce != nil {
		return s.Produce(blobs)
	}
	return blobs, nil
}
