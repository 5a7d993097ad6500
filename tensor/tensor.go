// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/blobnet/internal/tensor"
)

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
)

// Shape is a list of dimensions. The empty shape is a scalar.
type Shape = tensor.Shape

// ErrCountMismatch is returned when element counts of two tensors differ.
var ErrCountMismatch = tensor.ErrCountMismatch

// ParseDataType maps a name such as "float32" to a DataType.
func ParseDataType(name string) (DataType, bool) {
	return tensor.ParseDataType(name)
}
