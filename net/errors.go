// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package net

import (
	"github.com/born-ml/blobnet/internal/net"
)

// BuildError describes the first structural defect found while building.
type BuildError = net.BuildError

// LoadError describes a weight blob that could not be copied into a graph.
type LoadError = net.LoadError

// Kind names one failure category.
type Kind = net.Kind

// Error kinds.
const (
	KindUnknownInputBuffer      = net.KindUnknownInputBuffer
	KindDuplicateOutputBuffer   = net.KindDuplicateOutputBuffer
	KindParamShapeMismatch      = net.KindParamShapeMismatch
	KindParamMultiplierConflict = net.KindParamMultiplierConflict
	KindMalformedRuleSpec       = net.KindMalformedRuleSpec
	KindParamCountMismatch      = net.KindParamCountMismatch
	KindLayerCreate             = net.KindLayerCreate
	KindLayerSetup              = net.KindLayerSetup
	KindPropagateCountMismatch  = net.KindPropagateCountMismatch
	KindWeightShapeMismatch     = net.KindWeightShapeMismatch
	KindWeightCountMismatch     = net.KindWeightCountMismatch
)

// Sentinel errors, matched with errors.Is.
var (
	ErrUnknownInputBuffer      = net.ErrUnknownInputBuffer
	ErrDuplicateOutputBuffer   = net.ErrDuplicateOutputBuffer
	ErrParamShapeMismatch      = net.ErrParamShapeMismatch
	ErrParamMultiplierConflict = net.ErrParamMultiplierConflict
	ErrMalformedRuleSpec       = net.ErrMalformedRuleSpec
	ErrParamCountMismatch      = net.ErrParamCountMismatch
	ErrLayerCreate             = net.ErrLayerCreate
	ErrLayerSetup              = net.ErrLayerSetup
	ErrPropagateCountMismatch  = net.ErrPropagateCountMismatch
	ErrWeightShapeMismatch     = net.ErrWeightShapeMismatch
	ErrWeightCountMismatch     = net.ErrWeightCountMismatch
)
