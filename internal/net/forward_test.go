package net

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/blobnet/internal/tensor"
)

func fillInput(t *testing.T, n *Net, values ...float32) {
	t.Helper()
	in := n.Inputs()[0].Data
	require.Equal(t, len(values), in.NumElements())
	copy(in.AsFloat32(), values)
}

func TestRunAll(t *testing.T) {
	n := mustNew(t, mlpDoc)
	fillInput(t, n, 1, 2, 3, -1, -2, -3)

	outputs, loss, err := n.RunAll()
	require.NoError(t, err)
	assert.Zero(t, loss)
	require.Len(t, outputs, 1)
	// fc1 = row sums (6, -6) broadcast to 4 units, relu, then fc2 = 0.5 * sum.
	assert.Equal(t, tensor.Shape{2, 2}, outputs[0].Data.Shape())
	assert.Equal(t, []float32{12, 12, 0, 0}, outputs[0].Data.AsFloat32())
}

func TestRunRange_MatchesRunAll(t *testing.T) {
	n := mustNew(t, mlpDoc)
	fillInput(t, n, 1, 1, 1, 1, 1, 1)

	_, err := n.RunRange(0, n.LayerCount()-1)
	require.NoError(t, err)
	want := append([]float32(nil), n.Outputs()[0].Data.AsFloat32()...)
	ids := append([]int(nil), n.OutputIDs()...)

	outputs, _, err := n.RunAll()
	require.NoError(t, err)
	require.Len(t, outputs, len(ids))
	for i, out := range outputs {
		assert.Equal(t, ids[i], out.ID)
	}
	assert.Equal(t, want, outputs[0].Data.AsFloat32())
}

func TestRunRange_Partial(t *testing.T) {
	n := mustNew(t, mlpDoc)
	fillInput(t, n, 1, 1, 1, 1, 1, 1)

	_, err := n.RunTo(1)
	require.NoError(t, err)
	fc1, _ := n.BufferByName("fc1")
	assert.Equal(t, float32(3), fc1.Data.AsFloat32()[0])

	fc2, _ := n.BufferByName("fc2")
	assert.Equal(t, float32(0), fc2.Data.AsFloat32()[0])

	_, err = n.RunFrom(2)
	require.NoError(t, err)
	assert.Equal(t, float32(6), fc2.Data.AsFloat32()[0])
}

func TestRunRange_BoundsPanic(t *testing.T) {
	n := mustNew(t, mlpDoc)
	assert.Panics(t, func() { _, _ = n.RunRange(-1, 0) })
	assert.Panics(t, func() { _, _ = n.RunRange(0, n.LayerCount()) })
	assert.NotPanics(t, func() { _, _ = n.RunRange(2, 1) })
}

func TestReshapeAll_PropagatesNewInputShape(t *testing.T) {
	n := mustNew(t, mlpDoc)

	require.NoError(t, n.Inputs()[0].Data.Reshape(tensor.Shape{5, 3}))
	require.NoError(t, n.ReshapeAll())
	fc1, _ := n.BufferByName("fc1")
	assert.Equal(t, tensor.Shape{5, 4}, fc1.Data.Shape())

	outputs, _, err := n.RunAll()
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 2}, outputs[0].Data.Shape())

	// Idempotent.
	require.NoError(t, n.ReshapeAll())
	assert.Equal(t, tensor.Shape{5, 2}, outputs[0].Data.Shape())
}

func TestReshapeAll_ReportsLayerError(t *testing.T) {
	n := mustNew(t, mlpDoc)
	require.NoError(t, n.Inputs()[0].Data.Reshape(tensor.Shape{2, 7}))
	err := n.ReshapeAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `layer "fc1"`)
}

const lossDoc = `
name: regression
layer:
  - {name: data, type: Input, top: [x, y], attrs: {shape: [2, 1]}}
  - name: loss
    type: EuclideanLoss
    bottom: [x, y]
    top: [loss]
    loss_weight: [%s]
`

func TestRunAll_Loss(t *testing.T) {
	tests := []struct {
		weight string
		want   float32
	}{
		{"1", 2},
		{"2", 4},
	}
	for _, tt := range tests {
		t.Run(tt.weight, func(t *testing.T) {
			n := mustNew(t, fmt.Sprintf(lossDoc, tt.weight))
			inputs := n.Inputs()
			copy(inputs[0].Data.AsFloat32(), []float32{1, 2})
			copy(inputs[1].Data.AsFloat32(), []float32{3, 4})

			outputs, loss, err := n.RunAll()
			require.NoError(t, err)
			assert.InDelta(t, tt.want, loss, 1e-6)
			require.Len(t, outputs, 1)
			assert.InDelta(t, 2, outputs[0].Data.AsFloat32()[0], 1e-6)
		})
	}
}

func TestRunAll_LossThroughSplit(t *testing.T) {
	// The explicit weight moves from loss to its split, which must still count.
	n := mustNew(t, `
name: regression
layer:
  - {name: data, type: Input, top: [x, y], attrs: {shape: [2, 1]}}
  - {name: loss, type: EuclideanLoss, bottom: [x, y], top: [loss], loss_weight: [1]}
  - {name: relu, type: ReLU, bottom: [loss], top: [r]}
`)
	loss, ok := n.BufferByName("loss")
	require.True(t, ok)
	assert.Zero(t, loss.LossWeight)

	inputs := n.Inputs()
	copy(inputs[0].Data.AsFloat32(), []float32{1, 2})
	copy(inputs[1].Data.AsFloat32(), []float32{3, 4})
	_, total, err := n.RunAll()
	require.NoError(t, err)
	assert.InDelta(t, 2, total, 1e-6)
}

func TestRunAll_LossWeightOnPlainLayer(t *testing.T) {
	n := mustNew(t, `
name: weighted
layer:
  - {name: data, type: Input, top: [x], attrs: {shape: [2]}}
  - {name: relu, type: ReLU, bottom: [x], top: [r], loss_weight: [1]}
`)
	copy(n.Inputs()[0].Data.AsFloat32(), []float32{3, 4})
	_, total, err := n.RunAll()
	require.NoError(t, err)
	assert.InDelta(t, 7, total, 1e-6)

	// RunRange over the input layer alone carries no weighted tops.
	partial, err := n.RunRange(0, 0)
	require.NoError(t, err)
	assert.Zero(t, partial)
}

func TestNew_LossWeightDefaultsForLossLayers(t *testing.T) {
	n := mustNew(t, `
name: regression
layer:
  - {name: data, type: Input, top: [x, y], attrs: {shape: [2, 1]}}
  - {name: loss, type: EuclideanLoss, bottom: [x, y], top: [loss]}
`)
	loss, _ := n.BufferByName("loss")
	assert.Equal(t, float32(1), loss.LossWeight)
	x, _ := n.BufferByName("x")
	assert.Zero(t, x.LossWeight)
}
