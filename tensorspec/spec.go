package tensorspec

import (
	"strconv"
	"strings"

	"github.com/nvr-ai/go-dnn-pipeline/errs"
)

// Parse parses a comma-separated tensor spec string, such as
// "NCHW:8U:1x3x224x224:AA:0.017:114, NCHW:8U:1x3x224x224:AA:0.017:114",
// into an ordered list of TensorAttr. Empty input yields an empty,
// non-nil-error list.
func Parse(spec string) ([]TensorAttr, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	fields := strings.Split(spec, ",")
	attrs := make([]TensorAttr, 0, len(fields))
	for _, f := range fields {
		attr, err := parseOne(spec, strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func parseOne(spec, field string) (TensorAttr, error) {
	parts := strings.Split(field, ":")
	if len(parts) < 3 {
		return TensorAttr{}, errs.NewMalformedSpec(spec, "descriptor", field)
	}

	layout, ok := layoutCodes[strings.ToUpper(parts[0])]
	if !ok {
		return TensorAttr{}, errs.NewMalformedSpec(spec, "Layout", parts[0])
	}

	typ, ok := typeCodes[strings.ToUpper(parts[1])]
	if !ok {
		return TensorAttr{}, errs.NewMalformedSpec(spec, "Type", parts[1])
	}

	dims, err := ParseShape(parts[2])
	if err != nil {
		return TensorAttr{}, errs.NewMalformedSpec(spec, "Shape", parts[2])
	}
	if len(dims) == 0 {
		return TensorAttr{}, errs.NewMalformedSpec(spec, "Shape", parts[2])
	}

	attr := TensorAttr{Layout: layout, Type: typ, Dims: dims}

	if len(parts) > 3 {
		quant, err := parseQuant(parts[3:], typ)
		if err != nil {
			return TensorAttr{}, errs.NewMalformedSpec(spec, "Quant", strings.Join(parts[3:], ":"))
		}
		attr.Quant = quant
	}

	if err := attr.Validate(); err != nil {
		return TensorAttr{}, errs.NewMalformedSpec(spec, "Attr", err.Error())
	}
	return attr, nil
}

// ParseShape parses a "DxDxD..." shape string into a slice of ints.
func ParseShape(s string) ([]int, error) {
	pieces := strings.Split(s, "x")
	dims := make([]int, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, errs.ErrMalformedSpec
		}
		d, err := strconv.Atoi(p)
		if err != nil || d <= 0 {
			return nil, errs.ErrMalformedSpec
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func parseQuant(fields []string, typ ElementType) (Quant, error) {
	kind := strings.ToUpper(fields[0])
	switch kind {
	case "AA":
		if len(fields) != 3 {
			return Quant{}, errs.ErrMalformedSpec
		}
		scale, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Quant{}, errs.ErrMalformedSpec
		}
		zp, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return Quant{}, errs.ErrMalformedSpec
		}
		if !typ.IsInteger() {
			return Quant{}, errs.ErrMalformedSpec
		}
		return Quant{Kind: QuantAffineAsymmetric, Scale: scale, ZeroPoint: zp}, nil

	case "DFP":
		if len(fields) != 2 {
			return Quant{}, errs.ErrMalformedSpec
		}
		fl, err := strconv.Atoi(fields[1])
		if err != nil {
			return Quant{}, errs.ErrMalformedSpec
		}
		if !typ.IsInteger() {
			return Quant{}, errs.ErrMalformedSpec
		}
		return Quant{Kind: QuantDynamicFixedPoint, FractionalLength: fl}, nil

	default:
		return Quant{}, errs.ErrMalformedSpec
	}
}

// Format renders attrs back into the canonical spec-string grammar. Parse
// and Format round-trip modulo whitespace: Parse(Format(attrs)) yields
// logically identical attrs.
func Format(attrs []TensorAttr) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		dims := make([]string, len(a.Dims))
		for j, d := range a.Dims {
			dims[j] = strconv.Itoa(d)
		}
		s := a.Layout.String() + ":" + typeCodeStrings[a.Type] + ":" + strings.Join(dims, "x")
		switch a.Quant.Kind {
		case QuantAffineAsymmetric:
			s += ":AA:" + strconv.FormatFloat(a.Quant.Scale, 'g', -1, 64) + ":" + strconv.FormatInt(a.Quant.ZeroPoint, 10)
		case QuantDynamicFixedPoint:
			s += ":DFP:" + strconv.Itoa(a.Quant.FractionalLength)
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}
