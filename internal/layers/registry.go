package layers

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/blobnet/internal/netspec"
)

// ErrUnknownType is returned when no constructor is registered for a layer type.
var ErrUnknownType = errors.New("unknown layer type")

// Constructor builds a layer from its declaration.
type Constructor func(ctx *Context, spec *netspec.LayerSpec) (Layer, error)

// Registry maps layer type tags to constructors.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates a registry with all built-in layer kinds.
func NewRegistry() *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
	}

	r.Register("Input", newInput)
	r.Register(netspec.SplitType, newSplit)
	r.Register("ReLU", newReLU)
	r.Register("InnerProduct", newInnerProduct)
	r.Register("Eltwise", newEltwise)
	r.Register("Softmax", newSoftmax)
	r.Register("Flatten", newFlatten)
	r.Register("Reshape", newReshape)
	r.Register("Dropout", newDropout)
	r.Register("EuclideanLoss", newEuclideanLoss)
	r.Register("DetectionOutput", newDetectionOutput)

	return r
}

// Register adds or replaces the constructor for a layer type.
func (r *Registry) Register(layerType string, c Constructor) {
	r.constructors[layerType] = c
}

// Get returns the constructor for a layer type.
func (r *Registry) Get(layerType string) (Constructor, bool) {
	c, ok := r.constructors[layerType]
	return c, ok
}

// Create builds a new layer instance for spec.
func (r *Registry) Create(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	c, ok := r.constructors[spec.Type]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%q (layer %q, known types: %v)", spec.Type, spec.Name, r.SupportedTypes())
	}
	layer, err := c(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%s layer %q: %w", spec.Type, spec.Name, err)
	}
	return layer, nil
}

// SupportedTypes returns the registered layer types in sorted order.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.constructors))
	for t := range r.constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
