// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package netspec describes networks declaratively.
//
// A network document lists layers in execution order. Each layer names the
// blobs it reads (bottom) and writes (top), may declare parameter names for
// sharing, and may carry include/exclude rules evaluated against a run state.
//
// Example document:
//
//	name: mlp
//	state: {phase: test}
//	layer:
//	  - {name: data, type: Input, top: [data], attrs: {shape: [1, 3]}}
//	  - name: fc
//	    type: InnerProduct
//	    bottom: [data]
//	    top: [fc]
//	    param: [{name: fc_w, lr_mult: 1}, {lr_mult: 2}]
//	    attrs: {num_output: 2}
//	  - {name: relu, type: ReLU, bottom: [fc], top: [fc]}
//
// Usage:
//
//	spec, err := netspec.LoadFile("mlp.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	filtered, err := netspec.Filter(spec, logrus.StandardLogger())
package netspec

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/blobnet/internal/netspec"
)

// Declaration types.
type (
	NetSpec   = netspec.NetSpec
	LayerSpec = netspec.LayerSpec
	ParamSpec = netspec.ParamSpec
	Rule      = netspec.Rule
	RunState  = netspec.RunState
	Phase     = netspec.Phase
	ShareMode = netspec.ShareMode
)

// Phases.
const (
	Train Phase = netspec.Train
	Test  Phase = netspec.Test
)

// Share modes.
const (
	ShareStrict     ShareMode = netspec.ShareStrict
	SharePermissive ShareMode = netspec.SharePermissive
)

// SplitType is the layer type of inserted fan-out layers.
const SplitType = netspec.SplitType

// ErrMalformedRule is returned when a layer has both include and exclude rules.
var ErrMalformedRule = netspec.ErrMalformedRule

// Parse decodes a YAML network document.
func Parse(data []byte) (*NetSpec, error) {
	return netspec.Parse(data)
}

// Decode reads a YAML network document from r.
func Decode(r io.Reader) (*NetSpec, error) {
	return netspec.Decode(r)
}

// LoadFile reads a YAML network document from path.
func LoadFile(path string) (*NetSpec, error) {
	return netspec.LoadFile(path)
}

// Marshal encodes spec as YAML.
func Marshal(spec *NetSpec) ([]byte, error) {
	return netspec.Marshal(spec)
}

// ParsePhase accepts "train" or "test" in any case.
func ParsePhase(s string) (Phase, error) {
	return netspec.ParsePhase(s)
}

// StateMeetsRule reports whether state satisfies rule, and if not, why.
func StateMeetsRule(state RunState, rule Rule) (bool, string) {
	return netspec.StateMeetsRule(state, rule)
}

// Filter returns a copy of spec holding only the layers included for its state.
func Filter(spec *NetSpec, log logrus.FieldLogger) (*NetSpec, error) {
	return netspec.Filter(spec, log)
}

// InsertSplits rewrites blobs with several consumers into explicit Split layers.
func InsertSplits(spec *NetSpec) *NetSpec {
	return netspec.InsertSplits(spec)
}
