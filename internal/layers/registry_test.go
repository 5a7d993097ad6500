package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

func TestRegistry_SupportedTypes(t *testing.T) {
	r := NewRegistry()
	types := r.SupportedTypes()

	assert.Contains(t, types, "Input")
	assert.Contains(t, types, netspec.SplitType)
	assert.Contains(t, types, "DetectionOutput")
	assert.IsIncreasing(t, types)
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(nil, &netspec.LayerSpec{Name: "x", Type: "Bogus"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Contains(t, err.Error(), "Bogus")
}

func TestRegistry_ConstructorErrorIsWrapped(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(nil, &netspec.LayerSpec{Name: "fc", Type: "InnerProduct"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `InnerProduct layer "fc"`)
	assert.Contains(t, err.Error(), "num_output")
}

type constLayer struct{ base }

func (l *constLayer) Setup(_, top []*tensor.RawTensor) error {
	return top[0].Reshape(tensor.Shape{1})
}

func (l *constLayer) Reshape(_, _ []*tensor.RawTensor) error { return nil }

func (l *constLayer) Forward(_, top []*tensor.RawTensor) (float32, error) {
	top[0].Fill(42)
	return 0, nil
}

func TestRegistry_RegisterCustom(t *testing.T) {
	r := NewRegistry()
	r.Register("Const", func(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
		return &constLayer{base: newBase(ctx, spec)}, nil
	})

	_, ok := r.Get("Const")
	require.True(t, ok)

	l, err := r.Create(nil, &netspec.LayerSpec{Name: "c", Type: "Const"})
	require.NoError(t, err)
	top := tensor.New(tensor.Float32)
	require.NoError(t, l.Setup(nil, []*tensor.RawTensor{top}))
	_, err = l.Forward(nil, []*tensor.RawTensor{top})
	require.NoError(t, err)
	assert.Equal(t, []float32{42}, top.AsFloat32())
}
