// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/blobnet/internal/tensor"
)

// RawTensor is a typed N-d storage slot.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), NumElements()
//   - Zero-copy typed access via AsFloat32() and AsFloat64()
//   - In-place resizing via Reshape() and ReshapeLike()
//   - Storage aliasing via ShareData()
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
//	raw.Fill(1)
//	clone := raw.Clone() // independent copy
type RawTensor = tensor.RawTensor

// New creates an empty tensor with no shape and no storage.
func New(dtype DataType) *RawTensor {
	return tensor.New(dtype)
}

// NewRaw creates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromFloat32 creates a float32 tensor holding a copy of data.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape)
}
