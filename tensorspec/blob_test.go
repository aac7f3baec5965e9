package tensorspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat32BlobRoundTrip(t *testing.T) {
	attr := TensorAttr{Type: TypeF32, Dims: []int{3}}
	b := NewFloat32Blob(attr, []float32{1.5, -2.25, 3})
	assert.Equal(t, []float32{1.5, -2.25, 3}, b.Float32())
}

func TestDequantizeAffineAsymmetric(t *testing.T) {
	attr := TensorAttr{
		Type: TypeU8,
		Dims: []int{2},
		Quant: Quant{
			Kind:      QuantAffineAsymmetric,
			Scale:     0.017,
			ZeroPoint: 114,
		},
	}
	b := Blob{Attr: attr, Data: []byte{114, 214}}
	out := b.Dequantize()

	assert.Equal(t, TypeF32, out.Attr.Type)
	assert.Equal(t, QuantNone, out.Attr.Quant.Kind)
	vals := out.Float32()
	assert.InDelta(t, 0, vals[0], 1e-6)
	assert.InDelta(t, 1.7, vals[1], 1e-3)
}

func TestDequantizeNoneReturnsUnchanged(t *testing.T) {
	attr := TensorAttr{Type: TypeF32, Dims: []int{1}}
	b := NewFloat32Blob(attr, []float32{5})
	out := b.Dequantize()
	assert.Equal(t, b.Data, out.Data)
}

func TestInt8Reinterpret(t *testing.T) {
	attr := TensorAttr{Type: TypeI8, Dims: []int{2}}
	b := Blob{Attr: attr, Data: []byte{0xFF, 0x01}}
	assert.Equal(t, []int8{-1, 1}, b.Int8())
}

func TestPutQuantizedAndRawIntsRoundTripU16(t *testing.T) {
	attr := TensorAttr{Type: TypeU16, Dims: []int{2}}
	data := make([]byte, ByteWidth(TypeU16)*2)
	PutQuantized(TypeU16, data, 0, 300)
	PutQuantized(TypeU16, data, 1, 65000)
	b := Blob{Attr: attr, Data: data}
	assert.Equal(t, []int64{300, 65000}, rawInts(b))
}

func TestPutQuantizedAndRawIntsRoundTripI32Negative(t *testing.T) {
	attr := TensorAttr{Type: TypeI32, Dims: []int{2}}
	data := make([]byte, ByteWidth(TypeI32)*2)
	PutQuantized(TypeI32, data, 0, -123456)
	PutQuantized(TypeI32, data, 1, 123456)
	b := Blob{Attr: attr, Data: data}
	assert.Equal(t, []int64{-123456, 123456}, rawInts(b))
}

func TestDequantizeAffineAsymmetricU16(t *testing.T) {
	attr := TensorAttr{
		Type: TypeU16,
		Dims: []int{2},
		Quant: Quant{
			Kind:      QuantAffineAsymmetric,
			Scale:     0.1,
			ZeroPoint: 1000,
		},
	}
	data := make([]byte, ByteWidth(TypeU16)*2)
	PutQuantized(TypeU16, data, 0, 1000)
	PutQuantized(TypeU16, data, 1, 1100)
	b := Blob{Attr: attr, Data: data}
	out := b.Dequantize()
	vals := out.Float32()
	assert.InDelta(t, 0, vals[0], 1e-6)
	assert.InDelta(t, 10, vals[1], 1e-6)
}
