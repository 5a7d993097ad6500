package netspec

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrMalformedRule is returned when a layer declares both include and exclude rules.
var ErrMalformedRule = errors.New("specify either include rules or exclude rules; not both")

// StateMeetsRule reports whether state satisfies rule. When it does not, the
// second result explains which constraint failed.
func StateMeetsRule(state RunState, rule Rule) (bool, string) {
	if rule.Phase != nil && *rule.Phase != state.Phase {
		return false, fmt.Sprintf("phase %s differs from rule phase %s", state.Phase, *rule.Phase)
	}
	if rule.MinLevel != nil && state.Level < *rule.MinLevel {
		return false, fmt.Sprintf("level %d is below min_level %d", state.Level, *rule.MinLevel)
	}
	if rule.MaxLevel != nil && state.Level > *rule.MaxLevel {
		return false, fmt.Sprintf("level %d is above max_level %d", state.Level, *rule.MaxLevel)
	}
	for _, stage := range rule.Stages {
		if !state.HasStage(stage) {
			return false, fmt.Sprintf("state does not contain stage %q", stage)
		}
	}
	for _, stage := range rule.NotStages {
		if state.HasStage(stage) {
			return false, fmt.Sprintf("state contains not_stage %q", stage)
		}
	}
	return true, ""
}

// Included decides whether layer takes part in a graph built for state.
//
// Without include rules a layer is in unless an exclude rule matches. With
// include rules it is out unless one of them matches.
func Included(state RunState, layer *LayerSpec, log logrus.FieldLogger) (bool, error) {
	if len(layer.Include) > 0 && len(layer.Exclude) > 0 {
		return false, errors.Wrapf(ErrMalformedRule, "layer %q", layer.Name)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	if len(layer.Include) == 0 {
		for _, rule := range layer.Exclude {
			if ok, _ := StateMeetsRule(state, rule); ok {
				log.WithField("layer", layer.Name).Debug("Excluded by matching exclude rule")
				return false, nil
			}
		}
		return true, nil
	}

	for _, rule := range layer.Include {
		ok, reason := StateMeetsRule(state, rule)
		if ok {
			return true, nil
		}
		log.WithFields(logrus.Fields{"layer": layer.Name, "reason": reason}).Debug("Include rule not met")
	}
	return false, nil
}

// Filter returns a copy of spec holding only the layers included for
// spec.State, in declaration order.
func Filter(spec *NetSpec, log logrus.FieldLogger) (*NetSpec, error) {
	filtered := &NetSpec{Name: spec.Name, State: spec.State}
	filtered.State.Stages = append([]string(nil), spec.State.Stages...)
	for i := range spec.Layers {
		layer := &spec.Layers[i]
		ok, err := Included(spec.State, layer, log)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered.Layers = append(filtered.Layers, layer.Clone())
		}
	}
	return filtered, nil
}
