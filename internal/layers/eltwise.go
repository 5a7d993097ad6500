package layers

import (
	"fmt"
	"strings"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// Element-wise operations.
const (
	EltwiseProd = "PROD"
	EltwiseSum  = "SUM"
	EltwiseMax  = "MAX"
)

// EltwiseLayer combines equally shaped bottoms element by element.
type EltwiseLayer struct {
	base
	op     string
	coeffs []float32
}

func newEltwise(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	op := strings.ToUpper(spec.AttrString("operation", EltwiseSum))
	switch op {
	case EltwiseProd, EltwiseSum, EltwiseMax:
	default:
		return nil, fmt.Errorf("unknown eltwise operation %q", op)
	}
	coeffs := spec.AttrFloats("coeff")
	if len(coeffs) > 0 && op != EltwiseSum {
		return nil, fmt.Errorf("eltwise layer only takes coefficients for summation")
	}
	return &EltwiseLayer{base: newBase(ctx, spec), op: op, coeffs: coeffs}, nil
}

// Setup checks arity and coefficient count.
func (l *EltwiseLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkMinCounts(bottom, top, 2, 1); err != nil {
		return err
	}
	if err := l.checkCounts(bottom, top, -1, 1); err != nil {
		return err
	}
	if len(l.coeffs) == 0 {
		l.coeffs = make([]float32, len(bottom))
		for i := range l.coeffs {
			l.coeffs[i] = 1
		}
	} else if len(l.coeffs) != len(bottom) {
		return fmt.Errorf("eltwise layer %q takes one coefficient per bottom blob (%d), got %d", l.spec.Name, len(bottom), len(l.coeffs))
	}
	return l.Reshape(bottom, top)
}

// Reshape requires identical bottom shapes.
func (l *EltwiseLayer) Reshape(bottom, top []*tensor.RawTensor) error {
	for i := 1; i < len(bottom); i++ {
		if !bottom[i].Shape().Equal(bottom[0].Shape()) {
			return fmt.Errorf("eltwise layer %q: bottom %d shape %s differs from bottom 0 shape %s",
				l.spec.Name, i, bottom[i].ShapeString(), bottom[0].ShapeString())
		}
	}
	if inPlace(bottom, top, 0) {
		return nil
	}
	return top[0].ReshapeLike(bottom[0])
}

// Forward applies the operation. Each output element depends only on the
// same element of each bottom, so top may alias bottom 0.
func (l *EltwiseLayer) Forward(bottom, top []*tensor.RawTensor) (float32, error) {
	out := top[0].AsFloat32()
	ins := make([][]float32, len(bottom))
	for i, b := range bottom {
		ins[i] = b.AsFloat32()
	}
	for j := range out {
		var acc float32
		switch l.op {
		case EltwiseSum:
			for i, in := range ins {
				acc += l.coeffs[i] * in[j]
			}
		case EltwiseProd:
			acc = ins[0][j]
			for _, in := range ins[1:] {
				acc *= in[j]
			}
		case EltwiseMax:
			acc = ins[0][j]
			for _, in := range ins[1:] {
				acc = max(acc, in[j])
			}
		}
		out[j] = acc
	}
	return 0, nil
}
