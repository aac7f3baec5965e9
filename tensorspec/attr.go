// Package tensorspec parses tensor specification strings into TensorAttr
// values, converts between runtime type enumerations, and hosts the small
// numeric and labeling utilities shared by the pre- and post-processors
// (top-k, softmax, clamp, label-to-color).
package tensorspec

import (
	"fmt"
	"strings"
)

// ElementType is the closed set of tensor element types the pipeline can
// describe. It maps 1:1 onto the type codes accepted in a tensor spec string.
type ElementType int

const (
	TypeUnknown ElementType = iota
	TypeU8
	TypeI8
	TypeU16
	TypeI16
	TypeU32
	TypeI32
	TypeF16
	TypeF32
	TypeBool
)

func (t ElementType) String() string {
	switch t {
	case TypeU8:
		return "u8"
	case TypeI8:
		return "i8"
	case TypeU16:
		return "u16"
	case TypeI16:
		return "i16"
	case TypeU32:
		return "u32"
	case TypeI32:
		return "i32"
	case TypeF16:
		return "f16"
	case TypeF32:
		return "f32"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// IsInteger reports whether t is one of the integer types that may carry
// quantization metadata.
func (t ElementType) IsInteger() bool {
	switch t {
	case TypeU8, TypeI8, TypeU16, TypeI16, TypeU32, TypeI32:
		return true
	default:
		return false
	}
}

// typeCodes maps the short codes used in a tensor spec string to ElementType.
var typeCodes = map[string]ElementType{
	"8U":   TypeU8,
	"8S":   TypeI8,
	"16U":  TypeU16,
	"16S":  TypeI16,
	"32U":  TypeU32,
	"32S":  TypeI32,
	"16F":  TypeF16,
	"32F":  TypeF32,
	"BOOL": TypeBool,
}

var typeCodeStrings = func() map[ElementType]string {
	m := make(map[ElementType]string, len(typeCodes))
	for k, v := range typeCodes {
		m[v] = k
	}
	return m
}()

// Layout is informational metadata about dimension ordering; the pipeline
// never reorders tensor data based on Layout, it only records it.
type Layout int

const (
	LayoutNA Layout = iota
	LayoutNCHW
	LayoutNHWC
)

func (l Layout) String() string {
	switch l {
	case LayoutNCHW:
		return "NCHW"
	case LayoutNHWC:
		return "NHWC"
	default:
		return "NA"
	}
}

var layoutCodes = map[string]Layout{
	"NCHW": LayoutNCHW,
	"NHWC": LayoutNHWC,
	"NA":   LayoutNA,
}

// QuantKind distinguishes the quantization descriptor variants a TensorAttr
// may carry.
type QuantKind int

const (
	QuantNone QuantKind = iota
	QuantDynamicFixedPoint
	QuantAffineAsymmetric
	QuantAffinePerChannel
)

// Quant describes the integer-to-float mapping for a quantized tensor. Only
// one of the variant's fields is meaningful, selected by Kind.
type Quant struct {
	Kind QuantKind

	// DynamicFixedPoint: value = raw / 2^FractionalLength.
	FractionalLength int

	// AffineAsymmetric: value = (raw - ZeroPoint) * Scale.
	Scale     float64
	ZeroPoint int64

	// AffinePerChannel: one (scale, zero point) pair per element along Axis.
	Axis        int
	PerChannel  []float64
	PerChanZero []int64
}

// TensorAttr is the cross-runtime descriptor of one tensor.
type TensorAttr struct {
	Layout Layout
	Type   ElementType
	Dims   []int
	Quant  Quant
}

// Rank returns the number of dimensions.
func (a TensorAttr) Rank() int { return len(a.Dims) }

// ElementCount returns the product of all dimensions.
func (a TensorAttr) ElementCount() int64 {
	var n int64 = 1
	for _, d := range a.Dims {
		n *= int64(d)
	}
	return n
}

// Validate checks the invariants from the data model: rank bounds, quant
// compatibility with the element type, and affine-per-channel shape
// consistency against Axis.
func (a TensorAttr) Validate() error {
	if a.Rank() < 1 || a.Rank() > 8 {
		return fmt.Errorf("tensorspec: rank %d out of range [1,8]", a.Rank())
	}
	if a.Quant.Kind != QuantNone && !a.Type.IsInteger() {
		return fmt.Errorf("tensorspec: quant variant attached to non-integer type %s", a.Type)
	}
	if a.Quant.Kind == QuantAffinePerChannel {
		if a.Quant.Axis < 0 || a.Quant.Axis >= a.Rank() {
			return fmt.Errorf("tensorspec: affine-per-channel axis %d out of range for rank %d", a.Quant.Axis, a.Rank())
		}
		n := a.Dims[a.Quant.Axis]
		if len(a.Quant.PerChannel) != n || len(a.Quant.PerChanZero) != n {
			return fmt.Errorf("tensorspec: affine-per-channel scale/zero_point length must equal dim[axis]=%d", n)
		}
	}
	return nil
}

// String renders a debug-friendly "NxCxHxW TYPE" shape string matching the
// originating toolkit's shapestr/attrstr convention.
func (a TensorAttr) String() string {
	parts := make([]string, len(a.Dims))
	for i, d := range a.Dims {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return strings.Join(parts, "x") + " " + a.Type.String()
}
