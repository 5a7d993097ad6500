package net

import (
	"errors"
	"fmt"
)

// Construction errors. A *BuildError unwraps to exactly one of these.
var (
	ErrUnknownInputBuffer      = errors.New("unknown input buffer")
	ErrDuplicateOutputBuffer   = errors.New("output buffer produced by multiple sources")
	ErrParamShapeMismatch      = errors.New("shared parameter shape mismatch")
	ErrParamMultiplierConflict = errors.New("shared parameter multiplier conflict")
	ErrMalformedRuleSpec       = errors.New("layer has both include and exclude rules")
	ErrParamCountMismatch      = errors.New("too many parameter specs for layer")
	ErrLayerCreate             = errors.New("layer construction failed")
	ErrLayerSetup              = errors.New("layer setup failed")
	ErrPropagateCountMismatch  = errors.New("propagate_down count does not match bottom count")
)

// Load errors. A *LoadError unwraps to one of these.
var (
	ErrWeightShapeMismatch = errors.New("weight shape mismatch")
	ErrWeightCountMismatch = errors.New("incompatible number of weight blobs")
)

// Kind names one failure category.
type Kind string

// Error kinds.
const (
	KindUnknownInputBuffer      Kind = "unknown_input_buffer"
	KindDuplicateOutputBuffer   Kind = "duplicate_output_buffer"
	KindParamShapeMismatch      Kind = "param_shape_mismatch"
	KindParamMultiplierConflict Kind = "param_multiplier_conflict"
	KindMalformedRuleSpec       Kind = "malformed_rule_spec"
	KindParamCountMismatch      Kind = "param_count_mismatch"
	KindLayerCreate             Kind = "layer_create"
	KindLayerSetup              Kind = "layer_setup"
	KindPropagateCountMismatch  Kind = "propagate_count_mismatch"
	KindWeightShapeMismatch     Kind = "weight_shape_mismatch"
	KindWeightCountMismatch     Kind = "weight_count_mismatch"
)

var sentinels = map[Kind]error{
	KindUnknownInputBuffer:      ErrUnknownInputBuffer,
	KindDuplicateOutputBuffer:   ErrDuplicateOutputBuffer,
	KindParamShapeMismatch:      ErrParamShapeMismatch,
	KindParamMultiplierConflict: ErrParamMultiplierConflict,
	KindMalformedRuleSpec:       ErrMalformedRuleSpec,
	KindParamCountMismatch:      ErrParamCountMismatch,
	KindLayerCreate:             ErrLayerCreate,
	KindLayerSetup:              ErrLayerSetup,
	KindPropagateCountMismatch:  ErrPropagateCountMismatch,
	KindWeightShapeMismatch:     ErrWeightShapeMismatch,
	KindWeightCountMismatch:     ErrWeightCountMismatch,
}

// BuildError describes the first structural defect found while building a graph.
type BuildError struct {
	Kind    Kind   // Failure category
	Layer   string // Layer being wired
	Blob    string // Buffer or parameter name involved, if any
	Details string // Additional details
	Err     error  // Underlying cause (factory or setup error), if any
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	msg := string(e.Kind)
	if e.Layer != "" {
		msg += fmt.Sprintf(": layer %q", e.Layer)
	}
	if e.Blob != "" {
		msg += fmt.Sprintf(": blob %q", e.Blob)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind's sentinel and the underlying cause.
func (e *BuildError) Unwrap() []error {
	errs := []error{sentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// LoadError describes a weight blob that could not be copied into the graph.
type LoadError struct {
	Kind    Kind
	Layer   string
	Index   int // Positional parameter index, -1 for layer-level errors
	Details string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: layer %q param %d: %s", e.Kind, e.Layer, e.Index, e.Details)
	}
	return fmt.Sprintf("%s: layer %q: %s", e.Kind, e.Layer, e.Details)
}

// Unwrap returns the kind's sentinel.
func (e *LoadError) Unwrap() error {
	return sentinels[e.Kind]
}
