package layers

import (
	"fmt"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/parallel"
	"github.com/born-ml/blobnet/internal/tensor"
)

// InnerProductLayer is a fully connected layer: y = x · Wᵀ + b.
//
// Dimensions before "axis" are batch dimensions; the rest are flattened into
// K input features. Parameters are weight [N, K] and, with bias_term, bias [N].
type InnerProductLayer struct {
	base
	numOutput int
	biasTerm  bool
	axis      int
	k         int
	m         int
}

func newInnerProduct(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	n := spec.AttrInt("num_output", 0)
	if n <= 0 {
		return nil, fmt.Errorf("num_output must be positive, got %d", n)
	}
	return &InnerProductLayer{
		base:      newBase(ctx, spec),
		numOutput: n,
		biasTerm:  spec.AttrBool("bias_term", true),
	}, nil
}

// Setup creates and fills the weight and bias blobs from the bottom shape.
func (l *InnerProductLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 1, 1); err != nil {
		return err
	}
	shape := bottom[0].Shape()
	axis, err := shape.CanonicalAxis(l.spec.AttrInt("axis", 1))
	if err != nil {
		return err
	}
	l.axis = axis
	l.k = shape.CountRange(axis, len(shape))

	weight, err := tensor.NewRaw(tensor.Shape{l.numOutput, l.k}, tensor.Float32)
	if err != nil {
		return err
	}
	if err := fill(weight, l.spec.AttrMap("weight_filler")); err != nil {
		return fmt.Errorf("weight_filler: %w", err)
	}
	l.blobs = []*tensor.RawTensor{weight}

	if l.biasTerm {
		bias, err := tensor.NewRaw(tensor.Shape{l.numOutput}, tensor.Float32)
		if err != nil {
			return err
		}
		if err := fill(bias, l.spec.AttrMap("bias_filler")); err != nil {
			return fmt.Errorf("bias_filler: %w", err)
		}
		l.blobs = append(l.blobs, bias)
	}
	return l.Reshape(bottom, top)
}

// Reshape sizes the top as bottom[:axis] + [num_output].
func (l *InnerProductLayer) Reshape(bottom, top []*tensor.RawTensor) error {
	shape := bottom[0].Shape()
	if l.axis > len(shape) {
		return fmt.Errorf("inner product layer %q: axis %d out of range for %d-D bottom", l.spec.Name, l.axis, len(shape))
	}
	if k := shape.CountRange(l.axis, len(shape)); k != l.k {
		return fmt.Errorf("inner product layer %q: input size %d incompatible with %d weight columns", l.spec.Name, k, l.k)
	}
	l.m = shape.CountRange(0, l.axis)

	topShape := make(tensor.Shape, 0, l.axis+1)
	topShape = append(topShape, shape[:l.axis]...)
	topShape = append(topShape, l.numOutput)
	return top[0].Reshape(topShape)
}

// Forward computes one output row per batch row.
func (l *InnerProductLayer) Forward(bottom, top []*tensor.RawTensor) (float32, error) {
	x := bottom[0].AsFloat32()
	y := top[0].AsFloat32()
	w := l.blobs[0].AsFloat32()
	var b []float32
	if l.biasTerm {
		b = l.blobs[1].AsFloat32()
	}
	n, k := l.numOutput, l.k

	parallel.For(l.m, l.ctx.Parallel, func(row int) {
		in := x[row*k : (row+1)*k]
		out := y[row*n : (row+1)*n]
		for j := range out {
			wj := w[j*k : (j+1)*k]
			var acc float32
			for i, v := range in {
				acc += v * wj[i]
			}
			if b != nil {
				acc += b[j]
			}
			out[j] = acc
		}
	})
	return 0, nil
}
