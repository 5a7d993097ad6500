package layers

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// fill initializes a parameter blob from a filler block such as
// {type: constant, value: 0.1} or {type: uniform, min: -1, max: 1, seed: 7}.
// A missing block means constant zero.
func fill(t *tensor.RawTensor, filler map[string]any) error {
	kind, _ := filler["type"].(string)
	switch kind {
	case "", "constant":
		t.Fill(netspec.FloatAttr(filler, "value", 0))
		return nil
	case "uniform":
		lo := netspec.FloatAttr(filler, "min", 0)
		hi := netspec.FloatAttr(filler, "max", 1)
		if hi < lo {
			return fmt.Errorf("uniform filler: max %g < min %g", hi, lo)
		}
		//nolint:gosec // G404: deterministic initialization, not security sensitive
		rng := rand.New(rand.NewSource(int64(netspec.FloatAttr(filler, "seed", 1))))
		data := t.AsFloat32()
		for i := range data {
			data[i] = lo + (hi-lo)*rng.Float32()
		}
		return nil
	default:
		return fmt.Errorf("unsupported filler type %q", kind)
	}
}
