package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements described by the shape.
// An empty shape describes a scalar and has one element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that no dimension is negative. Zero-sized dimensions are
// allowed: a layer may legitimately produce an empty blob.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// CountRange returns the product of dimensions in [start, end).
func (s Shape) CountRange(start, end int) int {
	n := 1
	for i := start; i < end; i++ {
		n *= s[i]
	}
	return n
}

// CanonicalAxis maps a possibly negative axis onto [0, len(s)).
func (s Shape) CanonicalAxis(axis int) (int, error) {
	if axis < -len(s) || axis >= max(len(s), 1) {
		return 0, fmt.Errorf("axis %d out of range for %d-D shape %v", axis, len(s), []int(s))
	}
	if axis < 0 {
		return axis + len(s), nil
	}
	return axis, nil
}

// LegacyDim returns dimension i, or 1 when i is outside the shape.
// It mirrors the num/channels/height/width accessors of 4-D blobs.
func (s Shape) LegacyDim(i int) int {
	if i >= 0 && i < len(s) {
		return s[i]
	}
	return 1
}

// String formats the shape as "2 3 4 (24)".
func (s Shape) String() string {
	var b strings.Builder
	for _, dim := range s {
		b.WriteString(strconv.Itoa(dim))
		b.WriteByte(' ')
	}
	b.WriteByte('(')
	b.WriteString(strconv.Itoa(s.NumElements()))
	b.WriteByte(')')
	return b.String()
}

// ComputeStrides calculates row-major strides for the shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}
