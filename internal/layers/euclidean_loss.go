package layers

import (
	"fmt"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// EuclideanLossLayer computes sum((a-b)²) / (2·N) where N is the first
// dimension of the inputs. Its single top is a scalar.
type EuclideanLossLayer struct {
	base
}

func newEuclideanLoss(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	return &EuclideanLossLayer{base: newBase(ctx, spec)}, nil
}

// LossWeights defaults to 1 for the scalar top.
func (l *EuclideanLossLayer) LossWeights() []float32 {
	if len(l.spec.LossWeight) == 0 {
		return []float32{1}
	}
	return l.spec.LossWeight
}

// Setup checks arity and sizes the top.
func (l *EuclideanLossLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 2, 1); err != nil {
		return err
	}
	return l.Reshape(bottom, top)
}

// Reshape requires equal input counts and makes the top a scalar.
func (l *EuclideanLossLayer) Reshape(bottom, top []*tensor.RawTensor) error {
	if bottom[0].NumElements() != bottom[1].NumElements() {
		return fmt.Errorf("euclidean loss layer %q: inputs must have the same count, got %s and %s",
			l.spec.Name, bottom[0].ShapeString(), bottom[1].ShapeString())
	}
	return top[0].Reshape(tensor.Shape{})
}

// Forward writes the unweighted loss to the top. The graph applies the top's
// loss weight, so the returned contribution is zero.
func (l *EuclideanLossLayer) Forward(bottom, top []*tensor.RawTensor) (float32, error) {
	a := bottom[0].AsFloat32()
	b := bottom[1].AsFloat32()
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	num := bottom[0].Shape().LegacyDim(0)
	if num == 0 {
		num = 1
	}
	top[0].AsFloat32()[0] = sum / float32(num) / 2
	return 0, nil
}
