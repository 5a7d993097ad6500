package netspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lenetDoc = `
name: tiny
state:
  phase: test
  level: 1
  stage: [deploy]
layer:
  - name: data
    type: Input
    top: [data]
    attrs:
      shape: [2, 4]
  - name: fc1
    type: InnerProduct
    bottom: [data]
    top: [fc1]
    param:
      - name: shared_w
        lr_mult: 0.5
      - decay_mult: 0
        share_mode: permissive
    attrs:
      num_output: 3
      weight_filler: {type: constant, value: 0.1}
  - name: relu1
    type: ReLU
    bottom: [fc1]
    top: [fc1]
    propagate_down: [false]
  - name: drop
    type: Dropout
    bottom: [fc1]
    top: [fc1]
    include:
      - phase: train
        min_level: 0
        not_stage: [deploy]
`

func TestParse(t *testing.T) {
	spec, err := Parse([]byte(lenetDoc))
	require.NoError(t, err)

	assert.Equal(t, "tiny", spec.Name)
	assert.Equal(t, Test, spec.State.Phase)
	assert.Equal(t, 1, spec.State.Level)
	assert.Equal(t, []string{"deploy"}, spec.State.Stages)
	require.Len(t, spec.Layers, 4)

	data := spec.Layers[0]
	assert.Equal(t, [][]int{{2, 4}}, data.AttrShapes("shape"))

	fc := spec.Layers[1]
	require.Len(t, fc.Params, 2)
	assert.Equal(t, "shared_w", fc.Params[0].Name)
	require.NotNil(t, fc.Params[0].LRMult)
	assert.InDelta(t, 0.5, *fc.Params[0].LRMult, 1e-6)
	assert.Nil(t, fc.Params[0].DecayMult, "absent multiplier must stay unset")
	require.NotNil(t, fc.Params[1].DecayMult)
	assert.Zero(t, *fc.Params[1].DecayMult, "explicit zero must be kept")
	assert.Equal(t, SharePermissive, fc.Params[1].ShareMode)
	assert.Equal(t, 3, fc.AttrInt("num_output", 0))
	assert.InDelta(t, 0.1, FloatAttr(fc.AttrMap("weight_filler"), "value", 0), 1e-6)

	assert.Equal(t, []bool{false}, spec.Layers[2].Propagate)

	drop := spec.Layers[3]
	require.Len(t, drop.Include, 1)
	require.NotNil(t, drop.Include[0].Phase)
	assert.Equal(t, Train, *drop.Include[0].Phase)
	require.NotNil(t, drop.Include[0].MinLevel)
	assert.Nil(t, drop.Include[0].MaxLevel)
	assert.Equal(t, []string{"deploy"}, drop.Include[0].NotStages)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"unknown field", "name: x\nlayers: []\n"},
		{"bad phase", "state: {phase: eval}\n"},
		{"bad share mode", "layer: [{name: a, type: ReLU, param: [{share_mode: loose}]}]\n"},
		{"missing type", "layer: [{name: a}]\n"},
		{"duplicate name", "layer: [{name: a, type: ReLU}, {name: a, type: ReLU}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	spec, err := Parse([]byte(lenetDoc))
	require.NoError(t, err)

	data, err := Marshal(spec)
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, spec.State, again.State)
	assert.Equal(t, spec.Layers[1].Params, again.Layers[1].Params)
	assert.Equal(t, spec.Layers[3].Include, again.Layers[3].Include)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	require.NoError(t, os.WriteFile(path, []byte(lenetDoc), 0o600))

	spec, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, spec.Layers, 4)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAttrAccessors(t *testing.T) {
	l := &LayerSpec{Attrs: map[string]any{
		"i":      3,
		"f":      0.25,
		"b":      true,
		"s":      "SUM",
		"ints":   []any{1, 2, 3},
		"floats": []any{1, 0.5},
		"shapes": []any{[]any{1, 2}, []any{3}},
	}}

	assert.Equal(t, 3, l.AttrInt("i", 0))
	assert.Equal(t, 7, l.AttrInt("missing", 7))
	assert.InDelta(t, 0.25, l.AttrFloat("f", 0), 1e-6)
	assert.InDelta(t, 3, l.AttrFloat("i", 0), 1e-6)
	assert.True(t, l.AttrBool("b", false))
	assert.Equal(t, "SUM", l.AttrString("s", ""))
	assert.Equal(t, []int{1, 2, 3}, l.AttrInts("ints"))
	assert.Equal(t, []int{3}, l.AttrInts("i"))
	assert.Equal(t, []float32{1, 0.5}, l.AttrFloats("floats"))
	assert.Equal(t, [][]int{{1, 2}, {3}}, l.AttrShapes("shapes"))
	assert.True(t, l.HasAttr("s"))
	assert.False(t, l.HasAttr("nope"))
}

func TestParseDefaultsToTestPhase(t *testing.T) {
	spec, err := Parse([]byte("name: x\nlayer: [{name: a, type: ReLU}]\n"))
	require.NoError(t, err)
	assert.Equal(t, Test, spec.State.Phase)

	spec, err = Parse([]byte("name: x\nstate: {level: 2}\n"))
	require.NoError(t, err)
	assert.Equal(t, Test, spec.State.Phase)
	assert.Equal(t, 2, spec.State.Level)
}
