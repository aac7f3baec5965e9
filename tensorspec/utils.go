package tensorspec

import (
	"hash/fnv"
	"sort"

	"github.com/chewxy/math32"
)

// Scored pairs an index with a score, used by TopK's return value.
type Scored struct {
	Index int
	Value float32
}

// TopK returns the k highest-scoring entries of values in descending score
// order, ties broken by ascending index. If k exceeds len(values), all
// entries are returned.
func TopK(values []float32, k int) []Scored {
	scored := make([]Scored, len(values))
	for i, v := range values {
		scored[i] = Scored{Index: i, Value: v}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Value != scored[j].Value {
			return scored[i].Value > scored[j].Value
		}
		return scored[i].Index < scored[j].Index
	})
	if k < 0 || k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// Softmax computes a numerically stable softmax of input with temperature
// fac (divides logits before exponentiating), writing into output. Input and
// output may be the same slice. Softmax is shift-invariant: adding a
// constant to every input leaves the result unchanged.
func Softmax(input []float32, fac float32, output []float32) {
	if fac == 0 {
		fac = 1
	}
	max := input[0]
	for _, v := range input[1:] {
		if v > max {
			max = v
		}
	}
	var sum float32
	for i, v := range input {
		e := math32.Exp((v - max) / fac)
		output[i] = e
		sum += e
	}
	for i := range output {
		output[i] /= sum
	}
}

// Sigmoid is the logistic function, used throughout the raw-YOLO decoder for
// objectness and per-class confidences.
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// Rect is an axis-aligned rectangle with exclusive right/bottom bounds,
// matching image.Rectangle conventions.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Clamp returns the intersection of r with [0,W)x[0,H), collapsing to a
// zero-area rectangle when disjoint; the collapsed corners are not moved to
// the origin. Clamp is idempotent.
func Clamp(r Rect, w, h float32) Rect {
	out := r
	ClampRect(&out, w, h)
	return out
}

// ClampRect clamps r in place against [0,W)x[0,H). Kept alongside the
// value-returning Clamp to avoid an allocation per detection in the hot
// per-box loop of the Detect post-processor.
func ClampRect(r *Rect, w, h float32) {
	if r.X1 < 0 {
		r.X1 = 0
	}
	if r.Y1 < 0 {
		r.Y1 = 0
	}
	if r.X2 > w {
		r.X2 = w
	}
	if r.Y2 > h {
		r.Y2 = h
	}
	if r.X2 < r.X1 {
		r.X2 = r.X1
	}
	if r.Y2 < r.Y1 {
		r.Y2 = r.Y1
	}
}

// Area returns the rectangle's area, treating a collapsed/invalid rectangle
// as zero area.
func (r Rect) Area() float32 {
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return 0
	}
	return (r.X2 - r.X1) * (r.Y2 - r.Y1)
}

// IoU returns the intersection-over-union of r and o.
func (r Rect) IoU(o Rect) float32 {
	ix1, iy1 := max32(r.X1, o.X1), max32(r.Y1, o.Y1)
	ix2, iy2 := min32(r.X2, o.X2), min32(r.Y2, o.Y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	inter := (ix2 - ix1) * (iy2 - iy1)
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

// LabelToColor hashes label to a stable 24-bit RGB value folded into a
// caller-supplied alpha, so that equal labels always render the same color
// regardless of class id ordering. Pure function of label alone; alpha never
// affects the RGB channels.
func LabelToColor(label string, alpha uint8) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	sum := h.Sum32()
	r := uint8(sum >> 16)
	g := uint8(sum >> 8)
	b := uint8(sum)
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(alpha)
}

// DequantAffine converts a raw integer sample to float32 using the
// affine-asymmetric mapping value = (raw - zero_point) * scale.
func DequantAffine(raw int64, scale float64, zeroPoint int64) float32 {
	return float32(float64(raw-zeroPoint) * scale)
}

// QuantAffine is the inverse of DequantAffine, used by the pre-processor
// when packing a float sample into an affine-asymmetric integer tensor. The
// result saturates to [lo, hi].
func QuantAffine(value float32, scale float64, zeroPoint int64, lo, hi int64) int64 {
	raw := int64(math32.Round(value/float32(scale))) + zeroPoint
	if raw < lo {
		return lo
	}
	if raw > hi {
		return hi
	}
	return raw
}

// DequantDFP converts a raw integer sample to float32 using the
// dynamic-fixed-point mapping value = raw / 2^fractionalLength.
func DequantDFP(raw int64, fractionalLength int) float32 {
	return float32(raw) / float32(int64(1)<<uint(fractionalLength))
}

// QuantDFP is the inverse of DequantDFP.
func QuantDFP(value float32, fractionalLength int) int64 {
	return int64(math32.Round(value * float32(int64(1)<<uint(fractionalLength))))
}
