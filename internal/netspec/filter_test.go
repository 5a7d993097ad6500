package netspec

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phasePtr(p Phase) *Phase { return &p }
func intPtr(n int) *int       { return &n }

func TestStateMeetsRule(t *testing.T) {
	state := RunState{Phase: Test, Level: 2, Stages: []string{"deploy", "fp32"}}

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"empty rule", Rule{}, true},
		{"phase match", Rule{Phase: phasePtr(Test)}, true},
		{"phase mismatch", Rule{Phase: phasePtr(Train)}, false},
		{"min level met", Rule{MinLevel: intPtr(2)}, true},
		{"min level broken", Rule{MinLevel: intPtr(3)}, false},
		{"max level met", Rule{MaxLevel: intPtr(2)}, true},
		{"max level broken", Rule{MaxLevel: intPtr(1)}, false},
		{"all stages present", Rule{Stages: []string{"deploy", "fp32"}}, true},
		{"missing stage", Rule{Stages: []string{"deploy", "int8"}}, false},
		{"not_stage absent", Rule{NotStages: []string{"int8"}}, true},
		{"not_stage present", Rule{NotStages: []string{"fp32"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := StateMeetsRule(state, tt.rule)
			assert.Equal(t, tt.want, got)
			if !got {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestIncluded(t *testing.T) {
	log, _ := test.NewNullLogger()
	state := RunState{Phase: Test}

	t.Run("no rules", func(t *testing.T) {
		ok, err := Included(state, &LayerSpec{Name: "a"}, log)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("matching exclude", func(t *testing.T) {
		layer := &LayerSpec{Name: "a", Exclude: []Rule{{Phase: phasePtr(Test)}}}
		ok, err := Included(state, layer, log)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-matching exclude", func(t *testing.T) {
		layer := &LayerSpec{Name: "a", Exclude: []Rule{{Phase: phasePtr(Train)}}}
		ok, err := Included(state, layer, log)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("include needs a match", func(t *testing.T) {
		layer := &LayerSpec{Name: "a", Include: []Rule{{Phase: phasePtr(Train)}, {Stages: []string{"x"}}}}
		ok, err := Included(state, layer, log)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("any include rule suffices", func(t *testing.T) {
		layer := &LayerSpec{Name: "a", Include: []Rule{{Phase: phasePtr(Train)}, {Phase: phasePtr(Test)}}}
		ok, err := Included(state, layer, log)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("both rule kinds", func(t *testing.T) {
		layer := &LayerSpec{
			Name:    "bad",
			Include: []Rule{{Phase: phasePtr(Test)}},
			Exclude: []Rule{{Phase: phasePtr(Train)}},
		}
		_, err := Included(state, layer, log)
		require.ErrorIs(t, err, ErrMalformedRule)
		assert.Contains(t, err.Error(), `"bad"`)
	})
}

func TestIncludedLogsReason(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	layer := &LayerSpec{Name: "train_only", Include: []Rule{{Phase: phasePtr(Train)}}}
	ok, err := Included(RunState{Phase: Test}, layer, log)
	require.NoError(t, err)
	require.False(t, ok)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "train_only", entry.Data["layer"])
	assert.Contains(t, entry.Data["reason"], "phase")
}

func TestFilterPreservesOrder(t *testing.T) {
	log, _ := test.NewNullLogger()
	spec := &NetSpec{
		Name:  "net",
		State: RunState{Phase: Test},
		Layers: []LayerSpec{
			{Name: "data", Type: "Input"},
			{Name: "train_data", Type: "Input", Include: []Rule{{Phase: phasePtr(Train)}}},
			{Name: "fc", Type: "InnerProduct"},
			{Name: "loss", Type: "EuclideanLoss", Exclude: []Rule{{Phase: phasePtr(Test)}}},
			{Name: "prob", Type: "Softmax"},
		},
	}

	filtered, err := Filter(spec, log)
	require.NoError(t, err)

	names := make([]string, len(filtered.Layers))
	for i := range filtered.Layers {
		names[i] = filtered.Layers[i].Name
	}
	assert.Equal(t, []string{"data", "fc", "prob"}, names)
	assert.Len(t, spec.Layers, 5, "input spec must not be modified")
}

func TestFilterStopsOnMalformedRule(t *testing.T) {
	log, _ := test.NewNullLogger()
	spec := &NetSpec{Layers: []LayerSpec{{
		Name:    "bad",
		Include: []Rule{{}},
		Exclude: []Rule{{}},
	}}}

	_, err := Filter(spec, log)
	assert.ErrorIs(t, err, ErrMalformedRule)
}
