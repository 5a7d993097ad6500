package layers

import (
	"fmt"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// InputLayer produces the graph's externally fed blobs. Its tops are sized
// once from the "shape" attribute and afterwards only change when the caller
// reshapes them directly.
type InputLayer struct {
	base
	shapes [][]int
}

func newInput(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	return &InputLayer{base: newBase(ctx, spec), shapes: spec.AttrShapes("shape")}, nil
}

// Setup sizes each top from the declared shapes. One shape applies to every top.
func (l *InputLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 0, -1); err != nil {
		return err
	}
	if n := len(l.shapes); n > 1 && n != len(top) {
		return fmt.Errorf("input layer %q declares %d shapes for %d tops", l.spec.Name, n, len(top))
	}
	if len(l.shapes) == 0 {
		return nil
	}
	for i, t := range top {
		shape := l.shapes[0]
		if len(l.shapes) > 1 {
			shape = l.shapes[i]
		}
		if err := t.Reshape(tensor.Shape(shape)); err != nil {
			return fmt.Errorf("input layer %q top %d: %w", l.spec.Name, i, err)
		}
	}
	return nil
}

// Reshape leaves input shapes to the caller.
func (l *InputLayer) Reshape(_, _ []*tensor.RawTensor) error {
	return nil
}

// Forward is a no-op: input data is written by the caller.
func (l *InputLayer) Forward(_, _ []*tensor.RawTensor) (float32, error) {
	return 0, nil
}
