package layers

import (
	"math"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// SoftmaxLayer normalizes along one axis.
type SoftmaxLayer struct {
	base
	axis int
}

func newSoftmax(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	return &SoftmaxLayer{base: newBase(ctx, spec)}, nil
}

// Setup checks arity and sizes the top.
func (l *SoftmaxLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 1, 1); err != nil {
		return err
	}
	return l.Reshape(bottom, top)
}

// Reshape resolves the axis against the current bottom shape. A scalar has
// no axis to resolve and normalizes to 1.
func (l *SoftmaxLayer) Reshape(bottom, top []*tensor.RawTensor) error {
	if len(bottom[0].Shape()) > 0 {
		axis, err := bottom[0].Shape().CanonicalAxis(l.spec.AttrInt("axis", 1))
		if err != nil {
			return err
		}
		l.axis = axis
	}
	if inPlace(bottom, top, 0) {
		return nil
	}
	return top[0].ReshapeLike(bottom[0])
}

// Forward computes a numerically stable softmax.
func (l *SoftmaxLayer) Forward(bottom, top []*tensor.RawTensor) (float32, error) {
	shape := bottom[0].Shape()
	if len(shape) == 0 {
		top[0].Fill(1)
		return 0, nil
	}
	outer := shape.CountRange(0, l.axis)
	dim := shape[l.axis]
	inner := shape.CountRange(l.axis+1, len(shape))
	in := bottom[0].AsFloat32()
	out := top[0].AsFloat32()

	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			offset := o*dim*inner + i
			peak := float32(math.Inf(-1))
			for d := 0; d < dim; d++ {
				peak = max(peak, in[offset+d*inner])
			}
			var sum float32
			for d := 0; d < dim; d++ {
				idx := offset + d*inner
				e := float32(math.Exp(float64(in[idx] - peak)))
				out[idx] = e
				sum += e
			}
			for d := 0; d < dim; d++ {
				out[offset+d*inner] /= sum
			}
		}
	}
	return 0, nil
}
