// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package net

import (
	"github.com/born-ml/blobnet/internal/net"
	"github.com/born-ml/blobnet/netspec"
)

// Graph types.
type (
	Net       = net.Net
	Options   = net.Options
	Buffer    = net.Buffer
	LayerNode = net.LayerNode
	ParamSlot = net.ParamSlot
	Learnable = net.Learnable
)

// New filters spec, normalizes fan-out and builds the graph.
func New(spec *netspec.NetSpec, opts ...Options) (*Net, error) {
	return net.New(spec, opts...)
}

// Build wires spec as given, without filtering or split insertion.
func Build(spec *netspec.NetSpec, opts ...Options) (*Net, error) {
	return net.Build(spec, opts...)
}

// DefaultOptions returns the default construction options.
func DefaultOptions() Options {
	return net.DefaultOptions()
}
