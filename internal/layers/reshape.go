package layers

import (
	"fmt"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// FlattenLayer collapses dimensions [axis, end_axis] into one.
type FlattenLayer struct {
	base
}

func newFlatten(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	return &FlattenLayer{base: newBase(ctx, spec)}, nil
}

// Setup checks arity and sizes the top.
func (l *FlattenLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 1, 1); err != nil {
		return err
	}
	if inPlace(bottom, top, 0) {
		return fmt.Errorf("flatten layer %q cannot run in place", l.spec.Name)
	}
	return l.Reshape(bottom, top)
}

// Reshape computes the flattened shape.
func (l *FlattenLayer) Reshape(bottom, top []*tensor.RawTensor) error {
	shape := bottom[0].Shape()
	start, err := shape.CanonicalAxis(l.spec.AttrInt("axis", 1))
	if err != nil {
		return err
	}
	end, err := shape.CanonicalAxis(l.spec.AttrInt("end_axis", -1))
	if err != nil {
		return err
	}
	if end < start {
		return fmt.Errorf("flatten layer %q: end_axis %d precedes axis %d", l.spec.Name, end, start)
	}
	out := make(tensor.Shape, 0, len(shape))
	out = append(out, shape[:start]...)
	out = append(out, shape.CountRange(start, end+1))
	out = append(out, shape[end+1:]...)
	return top[0].Reshape(out)
}

// Forward copies the data unchanged.
func (l *FlattenLayer) Forward(bottom, top []*tensor.RawTensor) (float32, error) {
	copy(top[0].Data(), bottom[0].Data())
	return 0, nil
}

// ReshapeLayer gives its bottom a new shape. In the "shape" attribute a 0
// copies the bottom dimension at the same index and a single -1 is inferred.
type ReshapeLayer struct {
	base
	target []int
}

func newReshape(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	target := spec.AttrInts("shape")
	inferred := 0
	for _, d := range target {
		if d == -1 {
			inferred++
		} else if d < -1 {
			return nil, fmt.Errorf("invalid reshape dimension %d", d)
		}
	}
	if inferred > 1 {
		return nil, fmt.Errorf("at most one reshape dimension may be -1, got %d", inferred)
	}
	return &ReshapeLayer{base: newBase(ctx, spec), target: target}, nil
}

// Setup checks arity and sizes the top.
func (l *ReshapeLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 1, 1); err != nil {
		return err
	}
	if inPlace(bottom, top, 0) {
		return fmt.Errorf("reshape layer %q cannot run in place", l.spec.Name)
	}
	return l.Reshape(bottom, top)
}

// Reshape resolves copied and inferred dimensions.
func (l *ReshapeLayer) Reshape(bottom, top []*tensor.RawTensor) error {
	in := bottom[0].Shape()
	out := make(tensor.Shape, len(l.target))
	known, inferAt := 1, -1
	for i, d := range l.target {
		switch d {
		case 0:
			if i >= len(in) {
				return fmt.Errorf("reshape layer %q: cannot copy dimension %d of %d-D bottom", l.spec.Name, i, len(in))
			}
			out[i] = in[i]
		case -1:
			inferAt = i
			continue
		default:
			out[i] = d
		}
		known *= out[i]
	}
	total := bottom[0].NumElements()
	if inferAt >= 0 {
		if known == 0 || total%known != 0 {
			return fmt.Errorf("reshape layer %q: cannot infer dimension of %s into %v", l.spec.Name, bottom[0].ShapeString(), l.target)
		}
		out[inferAt] = total / known
	}
	if out.NumElements() != total {
		return fmt.Errorf("reshape layer %q: output count %d does not match input count %d", l.spec.Name, out.NumElements(), total)
	}
	return top[0].Reshape(out)
}

// Forward copies the data unchanged.
func (l *ReshapeLayer) Forward(bottom, top []*tensor.RawTensor) (float32, error) {
	copy(top[0].Data(), bottom[0].Data())
	return 0, nil
}
