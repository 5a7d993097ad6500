// Package netspec describes networks declaratively.
//
// A NetSpec is an ordered list of LayerSpecs. Each layer names the blobs it
// reads (bottoms) and writes (tops), declares its learnable parameters, and may
// carry include/exclude rules that select it for a given RunState.
//
// Key components:
//   - NetSpec, LayerSpec, ParamSpec, Rule, RunState: the in-memory model
//   - Parse, LoadFile: YAML decoding of a network document
//   - Filter: drops layers whose rules do not match the run state
//   - InsertSplits: rewrites multi-consumer blobs into explicit Split layers
package netspec

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Phase selects between training and inference graphs.
type Phase int

// Supported phases.
const (
	Train Phase = iota
	Test
)

// String returns the phase name as it appears in network documents.
func (p Phase) String() string {
	switch p {
	case Train:
		return "TRAIN"
	case Test:
		return "TEST"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ParsePhase accepts "train"/"test" in any case.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRAIN":
		return Train, nil
	case "TEST":
		return Test, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", s)
	}
}

// UnmarshalYAML decodes a phase from its name.
func (p *Phase) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	phase, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = phase
	return nil
}

// MarshalYAML encodes a phase by name.
func (p Phase) MarshalYAML() (any, error) {
	return p.String(), nil
}

// RunState is the phase/level/stage context the filter evaluates rules against.
type RunState struct {
	Phase  Phase    `yaml:"phase"`
	Level  int      `yaml:"level"`
	Stages []string `yaml:"stage"`
}

// HasStage reports whether the state carries the given stage tag.
func (s RunState) HasStage(stage string) bool {
	for _, st := range s.Stages {
		if st == stage {
			return true
		}
	}
	return false
}

// Rule is one include or exclude condition. Nil fields are unconstrained.
type Rule struct {
	Phase     *Phase   `yaml:"phase,omitempty"`
	MinLevel  *int     `yaml:"min_level,omitempty"`
	MaxLevel  *int     `yaml:"max_level,omitempty"`
	Stages    []string `yaml:"stage,omitempty"`
	NotStages []string `yaml:"not_stage,omitempty"`
}

// ShareMode controls how strictly a shared parameter must match its owner.
type ShareMode int

const (
	// ShareStrict requires identical dimensions (the default).
	ShareStrict ShareMode = iota
	// SharePermissive only requires equal element counts.
	SharePermissive
)

// String returns the mode name as it appears in network documents.
func (m ShareMode) String() string {
	if m == SharePermissive {
		return "PERMISSIVE"
	}
	return "STRICT"
}

// UnmarshalYAML decodes "STRICT" or "PERMISSIVE".
func (m *ShareMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STRICT", "":
		*m = ShareStrict
	case "PERMISSIVE":
		*m = SharePermissive
	default:
		return fmt.Errorf("unknown share_mode %q", s)
	}
	return nil
}

// MarshalYAML encodes a share mode by name.
func (m ShareMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// ParamSpec declares how one learnable parameter of a layer is named and
// scaled. A nil multiplier means "not set", which is distinct from zero.
type ParamSpec struct {
	Name      string    `yaml:"name,omitempty"`
	LRMult    *float32  `yaml:"lr_mult,omitempty"`
	DecayMult *float32  `yaml:"decay_mult,omitempty"`
	ShareMode ShareMode `yaml:"share_mode,omitempty"`
}

// LayerSpec declares one layer of the network.
type LayerSpec struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Bottoms    []string       `yaml:"bottom,omitempty"`
	Tops       []string       `yaml:"top,omitempty"`
	Params     []ParamSpec    `yaml:"param,omitempty"`
	Propagate  []bool         `yaml:"propagate_down,omitempty"`
	LossWeight []float32      `yaml:"loss_weight,omitempty"`
	Include    []Rule         `yaml:"include,omitempty"`
	Exclude    []Rule         `yaml:"exclude,omitempty"`
	Attrs      map[string]any `yaml:"attrs,omitempty"`
}

// Clone returns a copy whose slices can be modified independently.
// Attrs is shared: layer attributes are read-only after decoding.
func (l *LayerSpec) Clone() LayerSpec {
	c := *l
	c.Bottoms = append([]string(nil), l.Bottoms...)
	c.Tops = append([]string(nil), l.Tops...)
	c.Params = append([]ParamSpec(nil), l.Params...)
	c.Propagate = append([]bool(nil), l.Propagate...)
	c.LossWeight = append([]float32(nil), l.LossWeight...)
	c.Include = append([]Rule(nil), l.Include...)
	c.Exclude = append([]Rule(nil), l.Exclude...)
	return c
}

// NetSpec is a whole network declaration. Layer order is execution order.
type NetSpec struct {
	Name   string      `yaml:"name"`
	State  RunState    `yaml:"state"`
	Layers []LayerSpec `yaml:"layer"`
}

// Clone returns a deep copy of the layer list.
func (n *NetSpec) Clone() *NetSpec {
	c := &NetSpec{Name: n.Name, State: n.State}
	c.State.Stages = append([]string(nil), n.State.Stages...)
	c.Layers = make([]LayerSpec, len(n.Layers))
	for i := range n.Layers {
		c.Layers[i] = n.Layers[i].Clone()
	}
	return c
}
