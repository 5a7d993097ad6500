// Package net builds and runs layer graphs.
//
// A Net is constructed once from a NetSpec: the NetSpec is filtered against its
// run state, multi-consumer blobs are split, and the remaining layers are
// wired in declaration order into an arena of buffers, layers and parameter
// slots addressed by integer ids. Construction either succeeds completely or
// returns the first *BuildError.
//
// A Net is not safe for concurrent use.
package net

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/blobnet/internal/layers"
	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/parallel"
	"github.com/born-ml/blobnet/internal/tensor"
)

// Buffer is a named, graph-owned blob flowing between layers.
type Buffer struct {
	ID         int
	Name       string
	Data       *tensor.RawTensor
	NeedsGrad  bool
	LossWeight float32
}

// LayerNode is one wired layer.
type LayerNode struct {
	ID              int
	Name            string
	Type            string
	Layer           layers.Layer
	Bottoms         []int // Buffer ids
	Tops            []int // Buffer ids
	Params          []int // ParamSlot ids
	BottomNeedsGrad []bool
	NeedsGrad       bool

	bottom    []*tensor.RawTensor
	top       []*tensor.RawTensor
	propagate []bool
}

// ParamSlot records one (layer, parameter index) pair.
type ParamSlot struct {
	ID          int
	DisplayName string
	Owner       int // Own id for owners, otherwise the id of the owning slot
	Learnable   int // Learnable id shared by an owner and all its sharers
	LayerID     int
	Index       int
}

// IsOwner reports whether the slot holds its own storage.
func (p *ParamSlot) IsOwner() bool {
	return p.Owner == p.ID
}

// Learnable is one trainable tensor identity with its effective multipliers.
// Unset multipliers default to 1.
type Learnable struct {
	ID           int
	Data         *tensor.RawTensor
	LRMult       float32
	HasLRMult    bool
	DecayMult    float32
	HasDecayMult bool
}

// Options configures graph construction.
type Options struct {
	// Registry resolves layer type tags. Defaults to layers.NewRegistry().
	Registry *layers.Registry

	// Logger receives construction and load narration.
	Logger logrus.FieldLogger

	// Parallel controls intra-kernel parallelism of built-in layers.
	Parallel parallel.Config

	// State overrides the run state declared in the NetSpec when set.
	State *netspec.RunState
}

// DefaultOptions returns the default construction options.
func DefaultOptions() Options {
	return Options{
		Registry: layers.NewRegistry(),
		Logger:   logrus.StandardLogger(),
		Parallel: parallel.DefaultConfig(),
	}
}

func resolveOptions(opts []Options) Options {
	o := DefaultOptions()
	if len(opts) == 0 {
		return o
	}
	given := opts[0]
	if given.Registry != nil {
		o.Registry = given.Registry
	}
	if given.Logger != nil {
		o.Logger = given.Logger
	}
	if given.Parallel != (parallel.Config{}) {
		o.Parallel = given.Parallel
	}
	o.State = given.State
	return o
}

// Net is a wired layer graph.
type Net struct {
	name  string
	phase netspec.Phase
	log   logrus.FieldLogger

	buffers    []*Buffer
	layers     []*LayerNode
	params     []*ParamSlot
	learnables []*Learnable

	inputs  []int
	outputs []int

	bufferIndex     map[string]int
	layerIndex      map[string]int
	paramNamesIndex map[string]int

	memoryUsed int64
}

// New filters spec against its run state, inserts Split layers for blobs with
// several consumers and builds the resulting graph.
func New(spec *netspec.NetSpec, opts ...Options) (*Net, error) {
	o := resolveOptions(opts)
	if o.State != nil {
		spec = spec.Clone()
		spec.State = *o.State
		spec.State.Stages = append([]string(nil), o.State.Stages...)
	}

	filtered, err := netspec.Filter(spec, o.Logger)
	if err != nil {
		if errors.Is(err, netspec.ErrMalformedRule) {
			return nil, &BuildError{Kind: KindMalformedRuleSpec, Err: err}
		}
		return nil, err
	}
	return build(netspec.InsertSplits(filtered), o)
}

// Build wires spec as given, without filtering or split insertion. Every
// blob name must be consumed at most once.
func Build(spec *netspec.NetSpec, opts ...Options) (*Net, error) {
	return build(spec, resolveOptions(opts))
}

// Name returns the network name.
func (n *Net) Name() string {
	return n.name
}

// Phase returns the phase the net was built for.
func (n *Net) Phase() netspec.Phase {
	return n.phase
}
