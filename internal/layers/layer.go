// Package layers defines the layer contract the graph engine drives and a
// registry of built-in layer kinds.
//
// A layer never owns the blobs it reads and writes: the engine passes them in
// on every call. A layer does own its learnable parameter blobs, which it
// creates during Setup and exposes through Blobs.
package layers

import (
	"fmt"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/parallel"
	"github.com/born-ml/blobnet/internal/tensor"
)

// Layer is a named processing unit with a fixed bottom/top arity.
type Layer interface {
	// Setup validates blob counts, creates parameter blobs and sizes tops.
	Setup(bottom, top []*tensor.RawTensor) error

	// Reshape recomputes top shapes from bottom shapes without computing.
	Reshape(bottom, top []*tensor.RawTensor) error

	// Forward computes tops from bottoms and returns any contribution to
	// the objective beyond its loss-weighted tops, which the graph adds
	// itself. Built-in layers return zero.
	Forward(bottom, top []*tensor.RawTensor) (float32, error)

	// Blobs returns the layer's learnable parameters in declaration order.
	Blobs() []*tensor.RawTensor
}

// LossWeighter is implemented by layers that weight their tops in the objective.
type LossWeighter interface {
	LossWeights() []float32
}

// Context carries construction-time settings shared by all layers of a net.
type Context struct {
	Phase    netspec.Phase
	Parallel parallel.Config
}

// base carries the fields every built-in layer needs.
type base struct {
	ctx   *Context
	spec  *netspec.LayerSpec
	blobs []*tensor.RawTensor
}

func newBase(ctx *Context, spec *netspec.LayerSpec) base {
	if ctx == nil {
		ctx = &Context{Phase: netspec.Test, Parallel: parallel.DefaultConfig()}
	}
	return base{ctx: ctx, spec: spec}
}

// Blobs returns the layer's learnable parameters.
func (b *base) Blobs() []*tensor.RawTensor {
	return b.blobs
}

// Spec returns the declaration the layer was built from.
func (b *base) Spec() *netspec.LayerSpec {
	return b.spec
}

// LossWeights returns the declared per-top loss weights.
func (b *base) LossWeights() []float32 {
	return b.spec.LossWeight
}

// checkCounts enforces exact bottom/top arities; -1 means "any".
func (b *base) checkCounts(bottom, top []*tensor.RawTensor, nBottom, nTop int) error {
	if nBottom >= 0 && len(bottom) != nBottom {
		return fmt.Errorf("%s layer %q takes %d bottom blob(s), got %d", b.spec.Type, b.spec.Name, nBottom, len(bottom))
	}
	if nTop >= 0 && len(top) != nTop {
		return fmt.Errorf("%s layer %q produces %d top blob(s), got %d", b.spec.Type, b.spec.Name, nTop, len(top))
	}
	return nil
}

// checkMinCounts enforces lower bounds on arities.
func (b *base) checkMinCounts(bottom, top []*tensor.RawTensor, minBottom, minTop int) error {
	if len(bottom) < minBottom {
		return fmt.Errorf("%s layer %q takes at least %d bottom blob(s), got %d", b.spec.Type, b.spec.Name, minBottom, len(bottom))
	}
	if len(top) < minTop {
		return fmt.Errorf("%s layer %q produces at least %d top blob(s), got %d", b.spec.Type, b.spec.Name, minTop, len(top))
	}
	return nil
}

// inPlace reports whether top i aliases bottom i.
func inPlace(bottom, top []*tensor.RawTensor, i int) bool {
	return i < len(bottom) && i < len(top) && bottom[i] == top[i]
}
