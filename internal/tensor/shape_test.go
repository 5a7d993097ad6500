package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3, 4}, 24},
		{Shape{2, 0, 4}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", []int(tt.shape))
	}
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "2 3 4 (24)", Shape{2, 3, 4}.String())
}

func TestCanonicalAxis(t *testing.T) {
	s := Shape{2, 3, 4}

	axis, err := s.CanonicalAxis(-1)
	require.NoError(t, err)
	assert.Equal(t, 2, axis)

	axis, err = s.CanonicalAxis(1)
	require.NoError(t, err)
	assert.Equal(t, 1, axis)

	_, err = s.CanonicalAxis(3)
	assert.Error(t, err)
	_, err = s.CanonicalAxis(-4)
	assert.Error(t, err)
}

func TestCountRangeAndLegacyDim(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 12, s.CountRange(1, 3))
	assert.Equal(t, 1, s.CountRange(1, 1))
	assert.Equal(t, 4, s.LegacyDim(2))
	assert.Equal(t, 1, s.LegacyDim(3))
	assert.Equal(t, 1, s.LegacyDim(-1))
}

func TestParseDataType(t *testing.T) {
	for _, dt := range []DataType{Float32, Float64, Int32, Int64, Uint8} {
		got, ok := ParseDataType(dt.String())
		require.True(t, ok)
		assert.Equal(t, dt, got)
	}
	_, ok := ParseDataType("complex64")
	assert.False(t, ok)
}
