// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the blob storage the graph engine reads and writes.
//
// # Overview
//
// A RawTensor is a typed, row-major buffer with a shape. Graph buffers,
// layer parameters and loaded weights are all RawTensors. Storage grows
// monotonically: shrinking a tensor keeps its allocation, so a view taken
// before the shrink stays valid.
//
// # Basic Usage
//
//	raw, _ := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	fmt.Println(raw.ShapeString()) // "2 3 (6)"
//
//	data := raw.AsFloat32() // zero-copy view
//	data[0] = 10
//
// Shapes with four or fewer dimensions also answer the legacy N/C/H/W
// accessors through Shape.LegacyDim, which pads missing leading axes with 1.
package tensor
