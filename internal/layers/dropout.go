package layers

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// DropoutLayer zeroes a random fraction of its input during training and
// scales the survivors by 1/(1-ratio). At test time it is the identity.
type DropoutLayer struct {
	base
	ratio float32
	rng   *rand.Rand
}

func newDropout(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	ratio := spec.AttrFloat("dropout_ratio", 0.5)
	if ratio < 0 || ratio >= 1 {
		return nil, fmt.Errorf("dropout_ratio must be in [0, 1), got %g", ratio)
	}
	//nolint:gosec // G404: reproducible masks, not security sensitive
	rng := rand.New(rand.NewSource(int64(spec.AttrInt("seed", 1))))
	return &DropoutLayer{base: newBase(ctx, spec), ratio: ratio, rng: rng}, nil
}

// Setup checks arity and sizes the top.
func (l *DropoutLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 1, 1); err != nil {
		return err
	}
	return l.Reshape(bottom, top)
}

// Reshape mirrors the bottom shape.
func (l *DropoutLayer) Reshape(bottom, top []*tensor.RawTensor) error {
	if inPlace(bottom, top, 0) {
		return nil
	}
	return top[0].ReshapeLike(bottom[0])
}

// Forward applies the mask in the training phase.
func (l *DropoutLayer) Forward(bottom, top []*tensor.RawTensor) (float32, error) {
	in := bottom[0].AsFloat32()
	out := top[0].AsFloat32()
	if l.ctx.Phase != netspec.Train {
		if !inPlace(bottom, top, 0) {
			copy(out, in)
		}
		return 0, nil
	}
	scale := 1 / (1 - l.ratio)
	for i, v := range in {
		if l.rng.Float32() < l.ratio {
			out[i] = 0
		} else {
			out[i] = v * scale
		}
	}
	return 0, nil
}
