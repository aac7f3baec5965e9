package tensorspec

import (
	"encoding/binary"
	"math"
)

// ByteWidth returns the number of bytes one element of t occupies in a
// Blob's Data buffer.
func ByteWidth(t ElementType) int {
	switch t {
	case TypeU16, TypeI16, TypeF16:
		return 2
	case TypeU32, TypeI32, TypeF32:
		return 4
	default:
		return 1
	}
}

func isSigned(t ElementType) bool {
	switch t {
	case TypeI8, TypeI16, TypeI32:
		return true
	default:
		return false
	}
}

// PutQuantized writes q into data at element index i, using t's native byte
// width and little-endian order.
func PutQuantized(t ElementType, data []byte, i int, q int64) {
	off := i * ByteWidth(t)
	switch ByteWidth(t) {
	case 1:
		data[off] = byte(q)
	case 2:
		binary.LittleEndian.PutUint16(data[off:], uint16(q))
	case 4:
		binary.LittleEndian.PutUint32(data[off:], uint32(q))
	}
}

// Blob is a logically n-dimensional numeric buffer paired with the
// TensorAttr that describes its shape, type, and quantization. It is the
// unit passed between every stage: the PreProcessor produces Blobs, the
// Network consumes and produces them, and the PostProcessor decodes them.
// Data is stored as raw bytes in little-endian, element-type-native width
// so integer quantized tensors round-trip without a float widening pass.
type Blob struct {
	Attr TensorAttr
	Data []byte
}

// NewFloat32Blob packs values into a Blob with the given attr, which must
// declare TypeF32.
func NewFloat32Blob(attr TensorAttr, values []float32) Blob {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return Blob{Attr: attr, Data: data}
}

// Float32 reinterprets Data as a float32 slice. Valid only when
// Attr.Type == TypeF32.
func (b Blob) Float32() []float32 {
	n := len(b.Data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b.Data[i*4:]))
	}
	return out
}

// Uint8 reinterprets Data as an unsigned byte slice directly. Valid when
// Attr.Type == TypeU8.
func (b Blob) Uint8() []byte {
	return b.Data
}

// Int8 reinterprets Data as a signed byte slice. Valid when
// Attr.Type == TypeI8.
func (b Blob) Int8() []int8 {
	out := make([]int8, len(b.Data))
	for i, v := range b.Data {
		out[i] = int8(v)
	}
	return out
}

// Dequantize returns a new float32 Blob with the same Attr.Dims, converting
// every element through the declared quant variant. If Attr.Quant.Kind is
// QuantNone, Data is assumed to already be float32 and is returned as-is.
// QuantAffinePerChannel is not converted: such a Blob is also returned as-is.
func (b Blob) Dequantize() Blob {
	switch b.Attr.Quant.Kind {
	case QuantAffineAsymmetric:
		raws := rawInts(b)
		vals := make([]float32, len(raws))
		for i, raw := range raws {
			vals[i] = DequantAffine(raw, b.Attr.Quant.Scale, b.Attr.Quant.ZeroPoint)
		}
		attr := b.Attr
		attr.Type = TypeF32
		attr.Quant = Quant{}
		return NewFloat32Blob(attr, vals)
	case QuantDynamicFixedPoint:
		raws := rawInts(b)
		vals := make([]float32, len(raws))
		for i, raw := range raws {
			vals[i] = DequantDFP(raw, b.Attr.Quant.FractionalLength)
		}
		attr := b.Attr
		attr.Type = TypeF32
		attr.Quant = Quant{}
		return NewFloat32Blob(attr, vals)
	default:
		return b
	}
}

func rawInts(b Blob) []int64 {
	w := ByteWidth(b.Attr.Type)
	n := len(b.Data) / w
	out := make([]int64, n)
	signed := isSigned(b.Attr.Type)
	for i := 0; i < n; i++ {
		off := i * w
		switch w {
		case 1:
			v := b.Data[off]
			if signed {
				out[i] = int64(int8(v))
			} else {
				out[i] = int64(v)
			}
		case 2:
			v := binary.LittleEndian.Uint16(b.Data[off:])
			if signed {
				out[i] = int64(int16(v))
			} else {
				out[i] = int64(v)
			}
		case 4:
			v := binary.LittleEndian.Uint32(b.Data[off:])
			if signed {
				out[i] = int64(int32(v))
			} else {
				out[i] = int64(v)
			}
		}
	}
	return out
}
