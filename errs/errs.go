// Package errs defines the error taxonomy shared by every stage of the
// inference pipeline. Every exported error is constructed with
// github.com/pkg/errors so that a stack trace survives from the point of
// origin to wherever the pipeline controller catches it.
package errs

import "github.com/pkg/errors"

// Sentinel error kinds. Callers branch on kind with errors.Is; detail is
// recovered with errors.As against the matching Detail type below.
var (
	// ErrMalformedSpec is returned by the tensor-spec parser when a field is
	// unrecognized, a dimension fails to parse, or a quant variant is
	// missing required fields or attached to an incompatible element type.
	ErrMalformedSpec = errors.New("malformed tensor spec")

	// ErrAnchorMismatch is returned by the raw-YOLO decoder when the number
	// of anchor groups does not match the number of raw output layers.
	ErrAnchorMismatch = errors.New("anchor group count does not match output layer count")

	// ErrShapeMismatch is returned by the Network when input blobs do not
	// match its declared input attributes.
	ErrShapeMismatch = errors.New("tensor shape mismatch")

	// ErrBlobShapeMismatch is returned by the PreProcessor when the blobs it
	// produced do not match the declared input attributes in count or shape.
	ErrBlobShapeMismatch = errors.New("blob shape mismatch")

	// ErrModelNotLoaded is returned when process() is called before the
	// Network has finished loading.
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrBackendFailure wraps an opaque error surfaced by a backend SDK.
	ErrBackendFailure = errors.New("backend failure")

	// ErrZooParseError is returned when a zoo YAML document cannot be
	// parsed or an entry references an unrecognized key or enum value.
	ErrZooParseError = errors.New("zoo parse error")
)

// kindError pairs a sentinel kind with its detail so that errors.Is matches
// the kind and errors.As recovers the detail from the same error value.
type kindError struct {
	kind, detail error
}

func (e *kindError) Error() string   { return e.kind.Error() + ": " + e.detail.Error() }
func (e *kindError) Unwrap() []error { return []error{e.kind, e.detail} }

// SpecDetail carries the offending field and value for a MalformedSpec error.
type SpecDetail struct {
	Field string
	Value string
	Spec  string
}

func (d *SpecDetail) Error() string {
	return "field " + d.Field + " (" + d.Value + ") in spec " + d.Spec
}

// NewMalformedSpec wraps ErrMalformedSpec with field-level detail.
func NewMalformedSpec(spec, field, value string) error {
	return errors.WithStack(&kindError{ErrMalformedSpec, &SpecDetail{Field: field, Value: value, Spec: spec}})
}

// ShapeDetail carries the expected vs actual shape for a ShapeMismatch error.
type ShapeDetail struct {
	Expected []int
	Actual   []int
	Name     string
}

func (d *ShapeDetail) Error() string {
	return "tensor " + d.Name + ": expected shape does not match actual shape"
}

// NewShapeMismatch wraps ErrShapeMismatch with shape detail.
func NewShapeMismatch(name string, expected, actual []int) error {
	return errors.WithStack(&kindError{ErrShapeMismatch, &ShapeDetail{Name: name, Expected: expected, Actual: actual}})
}

// NewBlobShapeMismatch wraps ErrBlobShapeMismatch with shape detail.
func NewBlobShapeMismatch(name string, expected, actual []int) error {
	return errors.WithStack(&kindError{ErrBlobShapeMismatch, &ShapeDetail{Name: name, Expected: expected, Actual: actual}})
}

// AnchorDetail carries group/layer counts for an AnchorMismatch error.
type AnchorDetail struct {
	Groups int
	Layers int
}

func (d *AnchorDetail) Error() string {
	return "anchor groups do not match raw output layers"
}

// NewAnchorMismatch wraps ErrAnchorMismatch with group/layer counts.
func NewAnchorMismatch(groups, layers int) error {
	return errors.WithStack(&kindError{ErrAnchorMismatch, &AnchorDetail{Groups: groups, Layers: layers}})
}

// NewBackendFailure wraps an opaque backend error with a short message.
func NewBackendFailure(backend, msg string, cause error) error {
	if cause != nil {
		return errors.WithStack(&kindError{ErrBackendFailure, errors.Wrapf(cause, "%s: %s", backend, msg)})
	}
	return errors.Wrapf(errors.WithStack(ErrBackendFailure), "%s: %s", backend, msg)
}

// NewZooParseError wraps ErrZooParseError with the offending pipe name.
func NewZooParseError(pipe, reason string) error {
	return errors.Wrapf(errors.WithStack(ErrZooParseError), "pipe %q: %s", pipe, reason)
}
