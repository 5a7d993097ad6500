// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers exposes the layer contract and the registry of layer kinds.
//
// Custom layer kinds are added by registering a constructor on a registry and
// passing that registry to net.New through net.Options:
//
//	reg := layers.NewRegistry()
//	reg.Register("Scale2", func(ctx *layers.Context, spec *netspec.LayerSpec) (layers.Layer, error) {
//	    return newScale2(spec), nil
//	})
//
//	opts := net.DefaultOptions()
//	opts.Registry = reg
//	n, err := net.New(spec, opts)
package layers

import (
	"github.com/born-ml/blobnet/internal/layers"
)

// Layer is a processing unit driven by the graph engine.
type Layer = layers.Layer

// LossWeighter is implemented by layers that weight their tops in the objective.
type LossWeighter = layers.LossWeighter

// Context carries construction-time settings shared by all layers of a net.
type Context = layers.Context

// Constructor builds a layer from its declaration.
type Constructor = layers.Constructor

// Registry maps layer type tags to constructors.
type Registry = layers.Registry

// ErrUnknownType is returned when no constructor is registered for a type.
var ErrUnknownType = layers.ErrUnknownType

// NewRegistry creates a registry holding every built-in layer kind.
func NewRegistry() *Registry {
	return layers.NewRegistry()
}
