package layers

import (
	"fmt"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// SplitLayer copies its single bottom into every top. It is inserted by
// netspec.InsertSplits wherever a blob has several consumers.
type SplitLayer struct {
	base
}

func newSplit(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	return &SplitLayer{base: newBase(ctx, spec)}, nil
}

// Setup checks arity and rejects in-place use.
func (l *SplitLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 1, -1); err != nil {
		return err
	}
	if err := l.checkMinCounts(bottom, top, 1, 1); err != nil {
		return err
	}
	for i, t := range top {
		if t == bottom[0] {
			return fmt.Errorf("split layer %q does not allow in-place computation (top %d)", l.spec.Name, i)
		}
	}
	return l.Reshape(bottom, top)
}

// Reshape gives every top the bottom's shape.
func (l *SplitLayer) Reshape(bottom, top []*tensor.RawTensor) error {
	for _, t := range top {
		if err := t.ReshapeLike(bottom[0]); err != nil {
			return err
		}
	}
	return nil
}

// Forward copies the bottom into each top.
func (l *SplitLayer) Forward(bottom, top []*tensor.RawTensor) (float32, error) {
	src := bottom[0].Data()
	for _, t := range top {
		copy(t.Data(), src)
	}
	return 0, nil
}
