package layers

import (
	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// ReLULayer computes max(x, 0) + negative_slope * min(x, 0). It may run in place.
type ReLULayer struct {
	base
	negativeSlope float32
}

func newReLU(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	return &ReLULayer{
		base:          newBase(ctx, spec),
		negativeSlope: spec.AttrFloat("negative_slope", 0),
	}, nil
}

// Setup checks arity and sizes the top.
func (l *ReLULayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 1, 1); err != nil {
		return err
	}
	return l.Reshape(bottom, top)
}

// Reshape gives the top the bottom's shape.
func (l *ReLULayer) Reshape(bottom, top []*tensor.RawTensor) error {
	if inPlace(bottom, top, 0) {
		return nil
	}
	return top[0].ReshapeLike(bottom[0])
}

// Forward applies the activation element-wise.
func (l *ReLULayer) Forward(bottom, top []*tensor.RawTensor) (float32, error) {
	in := bottom[0].AsFloat32()
	out := top[0].AsFloat32()
	for i, x := range in {
		if x > 0 {
			out[i] = x
		} else {
			out[i] = l.negativeSlope * x
		}
	}
	return 0, nil
}
